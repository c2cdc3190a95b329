package forecast

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"FinCast/internal/domain/models"
)

// ForestConfig holds random forest hyperparameters.
type ForestConfig struct {
	NEstimators     int   `json:"n_estimators"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Seed            int64 `json:"random_state"`
}

// DefaultForestConfig mirrors the standard feature-model hyperparameters.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NEstimators:     100,
		MaxDepth:        10,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
	}
}

// Map converts the config to the metadata hyperparameter map.
func (c ForestConfig) Map() map[string]float64 {
	return map[string]float64{
		"n_estimators":      float64(c.NEstimators),
		"max_depth":         float64(c.MaxDepth),
		"min_samples_split": float64(c.MinSamplesSplit),
		"min_samples_leaf":  float64(c.MinSamplesLeaf),
		"random_state":      float64(c.Seed),
	}
}

// treeNode is one node of a regression tree. Leaves carry the mean target
// of their samples.
type treeNode struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Value     float64   `json:"v"`
	Leaf      bool      `json:"leaf"`
	Left      *treeNode `json:"l,omitempty"`
	Right     *treeNode `json:"r,omitempty"`
}

// Forest is a bagged ensemble of depth-limited CART regression trees.
// Training is deterministic for a given seed.
type Forest struct {
	Config ForestConfig `json:"config"`
	Trees  []*treeNode  `json:"trees"`

	NFeatures int `json:"n_features"`
}

// TrainForest fits a random forest regressor on X (rows of feature
// vectors) against y. Each tree trains on a bootstrap sample and considers
// a random sqrt(p)-sized feature subset per split.
func TrainForest(X [][]float64, y []float64, cfg ForestConfig) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("%w: %d samples / %d targets", models.ErrModelFit, len(X), len(y))
	}
	if len(X) < cfg.MinSamplesSplit {
		return nil, fmt.Errorf("%w: %d samples below min_samples_split %d",
			models.ErrInsufficientData, len(X), cfg.MinSamplesSplit)
	}
	p := len(X[0])
	mtry := int(math.Ceil(math.Sqrt(float64(p))))
	rng := rand.New(rand.NewSource(cfg.Seed))

	f := &Forest{Config: cfg, NFeatures: p, Trees: make([]*treeNode, 0, cfg.NEstimators)}
	for t := 0; t < cfg.NEstimators; t++ {
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = rng.Intn(len(X))
		}
		f.Trees = append(f.Trees, buildTree(X, y, idx, 0, mtry, cfg, rng))
	}
	return f, nil
}

// Predict averages the trees' outputs for one feature vector.
func (f *Forest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += predictTree(t, x)
	}
	return sum / float64(len(f.Trees))
}

// Score is the in-sample R² against the training targets.
func (f *Forest) Score(X [][]float64, y []float64) float64 {
	preds := make([]float64, len(X))
	for i, row := range X {
		preds[i] = f.Predict(row)
	}
	return rSquared(y, preds)
}

func predictTree(n *treeNode, x []float64) float64 {
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

func buildTree(X [][]float64, y []float64, idx []int, depth, mtry int, cfg ForestConfig, rng *rand.Rand) *treeNode {
	if depth >= cfg.MaxDepth || len(idx) < cfg.MinSamplesSplit {
		return &treeNode{Leaf: true, Value: meanAt(y, idx)}
	}

	feat, thresh, ok := bestSplit(X, y, idx, mtry, cfg.MinSamplesLeaf, rng)
	if !ok {
		return &treeNode{Leaf: true, Value: meanAt(y, idx)}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feat] <= thresh {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < cfg.MinSamplesLeaf || len(right) < cfg.MinSamplesLeaf {
		return &treeNode{Leaf: true, Value: meanAt(y, idx)}
	}

	return &treeNode{
		Feature:   feat,
		Threshold: thresh,
		Left:      buildTree(X, y, left, depth+1, mtry, cfg, rng),
		Right:     buildTree(X, y, right, depth+1, mtry, cfg, rng),
	}
}

// bestSplit scans a random feature subset for the split minimizing the
// summed squared error of the two children, using an incremental sum scan
// over sorted feature values.
func bestSplit(X [][]float64, y []float64, idx []int, mtry, minLeaf int, rng *rand.Rand) (int, float64, bool) {
	p := len(X[0])
	feats := rng.Perm(p)
	if mtry < len(feats) {
		feats = feats[:mtry]
	}

	bestSSE := math.Inf(1)
	bestFeat, bestThresh := -1, 0.0

	order := make([]int, len(idx))
	for _, feat := range feats {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][feat] < X[order[b]][feat] })

		var totalSum, totalSumSq float64
		for _, i := range order {
			totalSum += y[i]
			totalSumSq += y[i] * y[i]
		}

		var leftSum, leftSumSq float64
		n := len(order)
		for k := 0; k < n-1; k++ {
			i := order[k]
			leftSum += y[i]
			leftSumSq += y[i] * y[i]

			// no valid threshold between equal feature values
			if X[i][feat] == X[order[k+1]][feat] {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			rightSum := totalSum - leftSum
			rightSumSq := totalSumSq - leftSumSq
			sse := (leftSumSq - leftSum*leftSum/float64(nl)) +
				(rightSumSq - rightSum*rightSum/float64(nr))
			if sse < bestSSE {
				bestSSE = sse
				bestFeat = feat
				bestThresh = (X[i][feat] + X[order[k+1]][feat]) / 2
			}
		}
	}
	return bestFeat, bestThresh, bestFeat >= 0
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}
