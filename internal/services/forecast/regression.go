package forecast

import (
	"fmt"
	"math"

	"FinCast/internal/domain/models"
)

// polyFit fits y = c0 + c1*x + ... + cD*x^D by least squares over the
// normal equations, solved with Gaussian elimination. Degree 1 is plain
// linear regression.
func polyFit(x, y []float64, degree int) ([]float64, error) {
	if len(x) != len(y) || len(x) <= degree {
		return nil, fmt.Errorf("%w: %d samples for degree-%d fit", models.ErrModelFit, len(x), degree)
	}
	n := degree + 1

	// Accumulate the moment matrix sums: sum(x^k) for k in [0, 2*degree]
	// and sum(y * x^k) for k in [0, degree].
	pow := make([]float64, 2*degree+1)
	rhs := make([]float64, n)
	for i := range x {
		xp := 1.0
		for k := 0; k <= 2*degree; k++ {
			pow[k] += xp
			if k <= degree {
				rhs[k] += y[i] * xp
			}
			xp *= x[i]
		}
	}

	a := make([][]float64, n)
	for r := 0; r < n; r++ {
		a[r] = make([]float64, n+1)
		for c := 0; c < n; c++ {
			a[r][c] = pow[r+c]
		}
		a[r][n] = rhs[r]
	}
	coeffs, err := solveGaussian(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrModelFit, err)
	}
	return coeffs, nil
}

// polyEval evaluates the fitted polynomial at x.
func polyEval(coeffs []float64, x float64) float64 {
	v := 0.0
	xp := 1.0
	for _, c := range coeffs {
		v += c * xp
		xp *= x
	}
	return v
}

// rSquared is the coefficient of determination of predictions against
// actuals. Can be negative for fits worse than the mean; a constant target
// with a perfect fit scores 1.
func rSquared(actual, predicted []float64) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return 0
	}
	mean := 0.0
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range actual {
		d := actual[i] - predicted[i]
		ssRes += d * d
		t := actual[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func solveGaussian(a [][]float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		// partial pivot
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c <= n; c++ {
				a[r][c] -= factor * a[col][c]
			}
		}
	}

	out := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		v := a[r][n]
		for c := r + 1; c < n; c++ {
			v -= a[r][c] * out[c]
		}
		out[r] = v / a[r][r]
	}
	return out, nil
}
