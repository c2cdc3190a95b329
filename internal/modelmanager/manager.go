package modelmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

// Config tunes version lifecycle policy.
type Config struct {
	MaxAgeDays        int
	AccuracyThreshold float64
	KeepVersions      int
}

func DefaultConfig() Config {
	return Config{
		MaxAgeDays:        7,
		AccuracyThreshold: 0.5,
		KeepVersions:      3,
	}
}

// Manager owns model version lifecycle: persisting trained artifacts,
// loading the current version, deciding staleness and pruning history.
// Writes for a given model name are serialized.
type Manager struct {
	l         *applogger.Logger
	cfg       Config
	registry  repository.VersionRegistry
	artifacts repository.ArtifactStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(l *applogger.Logger, cfg Config, registry repository.VersionRegistry, artifacts repository.ArtifactStore) *Manager {
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 7
	}
	if cfg.KeepVersions <= 0 {
		cfg.KeepVersions = 3
	}
	return &Manager{
		l:         l,
		cfg:       cfg,
		registry:  registry,
		artifacts: artifacts,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (m *Manager) lockFor(model string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lk, ok := m.locks[model]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[model] = lk
	}
	return lk
}

// SaveModel persists a trained artifact as a new version and marks it
// current. Returns the registered version entry.
func (m *Manager) SaveModel(ctx context.Context, name string, blob []byte, hyper, metrics map[string]float64) (models.ModelVersion, error) {
	lk := m.lockFor(name)
	lk.Lock()
	defer lk.Unlock()

	versionID := uuid.NewString()
	ref, err := m.artifacts.Put(ctx, name, versionID, blob)
	if err != nil {
		return models.ModelVersion{}, err
	}

	v := models.ModelVersion{
		ModelName:       name,
		VersionID:       versionID,
		CreatedAt:       time.Now().UTC(),
		Hyperparameters: hyper,
		Metrics:         metrics,
		ArtifactRef:     ref,
	}

	if err := m.registry.Append(ctx, v); err != nil {
		// roll back the orphaned artifact
		_ = m.artifacts.Delete(ctx, name, versionID)
		return models.ModelVersion{}, err
	}
	if err := m.registry.SetCurrent(ctx, name, versionID); err != nil {
		// keep the version list and current pointer moving together
		_ = m.registry.Remove(ctx, name, versionID)
		_ = m.artifacts.Delete(ctx, name, versionID)
		return models.ModelVersion{}, err
	}

	m.l.Info("model version saved",
		applogger.String("model", name),
		applogger.String("version", versionID),
		applogger.Any("metrics", metrics))
	return v, nil
}

// LoadModel returns the current version's artifact blob and metadata.
func (m *Manager) LoadModel(ctx context.Context, name string) ([]byte, models.ModelVersion, error) {
	v, ok, err := m.registry.Current(ctx, name)
	if err != nil {
		return nil, models.ModelVersion{}, err
	}
	if !ok {
		return nil, models.ModelVersion{}, fmt.Errorf("%w: no current version for %s", models.ErrArtifactIO, name)
	}

	blob, err := m.artifacts.Get(ctx, name, v.VersionID)
	if err != nil {
		return nil, models.ModelVersion{}, err
	}
	return blob, v, nil
}

// ShouldRetrain reports whether the model needs retraining, with the
// reasons. recentAccuracy is a 0..1 directional hit rate; pass a
// negative value when no accuracy reading is available.
func (m *Manager) ShouldRetrain(ctx context.Context, name string, recentAccuracy float64) (bool, []string, error) {
	v, ok, err := m.registry.Current(ctx, name)
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return true, []string{"no trained version"}, nil
	}

	var reasons []string
	age := time.Since(v.CreatedAt)
	if age >= time.Duration(m.cfg.MaxAgeDays)*24*time.Hour {
		reasons = append(reasons, fmt.Sprintf("version is %.1f days old", age.Hours()/24))
	}
	if recentAccuracy >= 0 && recentAccuracy < m.cfg.AccuracyThreshold {
		reasons = append(reasons, fmt.Sprintf("recent accuracy %.2f below %.2f", recentAccuracy, m.cfg.AccuracyThreshold))
	}
	return len(reasons) > 0, reasons, nil
}

// GetModelInfo summarizes the model's lifecycle state.
func (m *Manager) GetModelInfo(ctx context.Context, name string) (models.ModelInfo, error) {
	versions, err := m.registry.Versions(ctx, name)
	if err != nil {
		return models.ModelInfo{}, err
	}

	info := models.ModelInfo{
		Name:          name,
		TotalVersions: len(versions),
	}

	v, ok, err := m.registry.Current(ctx, name)
	if err != nil {
		return models.ModelInfo{}, err
	}
	if !ok {
		return info, nil
	}

	info.Trained = true
	info.CurrentVersion = v.VersionID
	info.CreatedAt = v.CreatedAt
	info.AgeDays = int(time.Since(v.CreatedAt).Hours() / 24)
	info.Hyperparameters = v.Hyperparameters
	info.Metrics = v.Metrics
	return info, nil
}

// CleanupOldVersions prunes version history down to keep entries,
// oldest first, removing artifact and registry entry together. The
// current version is never pruned. Returns the number removed.
func (m *Manager) CleanupOldVersions(ctx context.Context, name string, keep int) (int, error) {
	if keep <= 0 {
		keep = m.cfg.KeepVersions
	}

	lk := m.lockFor(name)
	lk.Lock()
	defer lk.Unlock()

	versions, err := m.registry.Versions(ctx, name)
	if err != nil {
		return 0, err
	}
	if len(versions) <= keep {
		return 0, nil
	}

	current, hasCurrent, err := m.registry.Current(ctx, name)
	if err != nil {
		return 0, err
	}

	removed := 0
	excess := len(versions) - keep
	for _, v := range versions {
		if removed >= excess {
			break
		}
		if hasCurrent && v.VersionID == current.VersionID {
			continue
		}
		if err := m.artifacts.Delete(ctx, name, v.VersionID); err != nil {
			return removed, err
		}
		if err := m.registry.Remove(ctx, name, v.VersionID); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		m.l.Info("pruned model versions",
			applogger.String("model", name),
			applogger.Int("removed", removed),
			applogger.Int("kept", len(versions)-removed))
	}
	return removed, nil
}

// OptimizeHyperparameters nudges forest hyperparameters based on the
// recent average error percentage: grow capacity when the model is
// struggling, shrink it when error is tiny and overfitting is the
// bigger risk.
func (m *Manager) OptimizeHyperparameters(current map[string]float64, recentErrorPct float64) map[string]float64 {
	out := make(map[string]float64, len(current))
	for k, v := range current {
		out[k] = v
	}
	if _, ok := out["max_depth"]; !ok {
		out["max_depth"] = 10
	}
	if _, ok := out["n_estimators"]; !ok {
		out["n_estimators"] = 100
	}
	if _, ok := out["min_samples_split"]; !ok {
		out["min_samples_split"] = 2
	}

	switch {
	case recentErrorPct > 2.0:
		out["max_depth"] = 15
		out["n_estimators"] = 150
	case recentErrorPct < 0.5:
		out["max_depth"] = 8
		out["min_samples_split"] = 5
	}
	return out
}
