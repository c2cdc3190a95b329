package modelmanager

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return New(applogger.Nop(), DefaultConfig(), NewMemoryRegistry(), NewMemoryArtifactStore())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	blob := []byte(`{"trees":[]}`)
	hyper := map[string]float64{"max_depth": 10, "n_estimators": 100}
	metrics := map[string]float64{"train_r2_score": 0.91}

	v, err := m.SaveModel(ctx, models.ModelFeatures, blob, hyper, metrics)
	require.NoError(t, err)
	assert.NotEmpty(t, v.VersionID)
	assert.Equal(t, models.ModelFeatures, v.ModelName)

	got, loaded, err := m.LoadModel(ctx, models.ModelFeatures)
	require.NoError(t, err)
	assert.Equal(t, blob, got)
	assert.Equal(t, v.VersionID, loaded.VersionID)
	assert.Equal(t, hyper, loaded.Hyperparameters)
}

func TestLoadModelWithoutVersion(t *testing.T) {
	m := newTestManager(t)
	_, _, err := m.LoadModel(context.Background(), models.ModelFeatures)
	assert.ErrorIs(t, err, models.ErrArtifactIO)
}

func TestSaveModelMarksLatestCurrent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.SaveModel(ctx, models.ModelFeatures, []byte("v1"), nil, nil)
	require.NoError(t, err)
	v2, err := m.SaveModel(ctx, models.ModelFeatures, []byte("v2"), nil, nil)
	require.NoError(t, err)

	blob, current, err := m.LoadModel(ctx, models.ModelFeatures)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), blob)
	assert.Equal(t, v2.VersionID, current.VersionID)
}

func TestShouldRetrainNoVersion(t *testing.T) {
	m := newTestManager(t)

	need, reasons, err := m.ShouldRetrain(context.Background(), models.ModelFeatures, -1)
	require.NoError(t, err)
	assert.True(t, need)
	assert.Equal(t, []string{"no trained version"}, reasons)
}

func TestShouldRetrainFreshAccurateModel(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	_, err := m.SaveModel(ctx, models.ModelFeatures, []byte("v1"), nil, nil)
	require.NoError(t, err)

	need, reasons, err := m.ShouldRetrain(ctx, models.ModelFeatures, 0.7)
	require.NoError(t, err)
	assert.False(t, need)
	assert.Empty(t, reasons)
}

func TestShouldRetrainStaleVersion(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry()
	m := New(applogger.Nop(), DefaultConfig(), registry, NewMemoryArtifactStore())

	old := models.ModelVersion{
		ModelName: models.ModelFeatures,
		VersionID: "old-version",
		CreatedAt: time.Now().UTC().Add(-8 * 24 * time.Hour),
	}
	require.NoError(t, registry.Append(ctx, old))
	require.NoError(t, registry.SetCurrent(ctx, models.ModelFeatures, old.VersionID))

	need, reasons, err := m.ShouldRetrain(ctx, models.ModelFeatures, 0.7)
	require.NoError(t, err)
	assert.True(t, need)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "days old")
}

func TestShouldRetrainLowAccuracy(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	_, err := m.SaveModel(ctx, models.ModelFeatures, []byte("v1"), nil, nil)
	require.NoError(t, err)

	need, reasons, err := m.ShouldRetrain(ctx, models.ModelFeatures, 0.4)
	require.NoError(t, err)
	assert.True(t, need)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "accuracy")
}

func TestCleanupKeepsCurrentVersion(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry()
	artifacts := NewMemoryArtifactStore()
	m := New(applogger.Nop(), DefaultConfig(), registry, artifacts)

	var last models.ModelVersion
	for i := 0; i < 5; i++ {
		v, err := m.SaveModel(ctx, models.ModelFeatures, []byte{byte(i)}, nil, nil)
		require.NoError(t, err)
		last = v
	}

	removed, err := m.CleanupOldVersions(ctx, models.ModelFeatures, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	versions, err := registry.Versions(ctx, models.ModelFeatures)
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	// the current version survives pruning
	blob, current, err := m.LoadModel(ctx, models.ModelFeatures)
	require.NoError(t, err)
	assert.Equal(t, last.VersionID, current.VersionID)
	assert.Equal(t, []byte{4}, blob)
}

func TestCleanupNoExcess(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	_, err := m.SaveModel(ctx, models.ModelFeatures, []byte("v1"), nil, nil)
	require.NoError(t, err)

	removed, err := m.CleanupOldVersions(ctx, models.ModelFeatures, 3)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestGetModelInfo(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	info, err := m.GetModelInfo(ctx, models.ModelFeatures)
	require.NoError(t, err)
	assert.False(t, info.Trained)
	assert.Zero(t, info.TotalVersions)

	v, err := m.SaveModel(ctx, models.ModelFeatures, []byte("v1"),
		map[string]float64{"max_depth": 10}, map[string]float64{"train_r2_score": 0.9})
	require.NoError(t, err)

	info, err = m.GetModelInfo(ctx, models.ModelFeatures)
	require.NoError(t, err)
	assert.True(t, info.Trained)
	assert.Equal(t, v.VersionID, info.CurrentVersion)
	assert.Equal(t, 1, info.TotalVersions)
}

func TestOptimizeHyperparameters(t *testing.T) {
	m := newTestManager(t)

	grown := m.OptimizeHyperparameters(map[string]float64{"max_depth": 10, "n_estimators": 100}, 3.5)
	assert.Equal(t, 15.0, grown["max_depth"])
	assert.Equal(t, 150.0, grown["n_estimators"])

	shrunk := m.OptimizeHyperparameters(map[string]float64{"max_depth": 10}, 0.3)
	assert.Equal(t, 8.0, shrunk["max_depth"])
	assert.Equal(t, 5.0, shrunk["min_samples_split"])

	unchanged := m.OptimizeHyperparameters(map[string]float64{"max_depth": 10, "n_estimators": 100}, 1.0)
	assert.Equal(t, 10.0, unchanged["max_depth"])
	assert.Equal(t, 100.0, unchanged["n_estimators"])
}

func TestFileRegistryPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.json")

	reg, err := NewFileRegistry(path)
	require.NoError(t, err)

	v := models.ModelVersion{ModelName: models.ModelFeatures, VersionID: "v1", CreatedAt: time.Now().UTC()}
	require.NoError(t, reg.Append(ctx, v))
	require.NoError(t, reg.SetCurrent(ctx, models.ModelFeatures, "v1"))

	reopened, err := NewFileRegistry(path)
	require.NoError(t, err)

	current, ok, err := reopened.Current(ctx, models.ModelFeatures)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", current.VersionID)
}

func TestFileRegistryRejectsDuplicateVersion(t *testing.T) {
	ctx := context.Background()
	reg, err := NewFileRegistry(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	v := models.ModelVersion{ModelName: models.ModelFeatures, VersionID: "v1"}
	require.NoError(t, reg.Append(ctx, v))
	assert.Error(t, reg.Append(ctx, v))
}

func TestFSArtifactStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFSArtifactStore(t.TempDir())

	ref, err := store.Put(ctx, models.ModelFeatures, "v1", []byte("artifact"))
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	blob, err := store.Get(ctx, models.ModelFeatures, "v1")
	require.NoError(t, err)
	assert.Equal(t, []byte("artifact"), blob)

	require.NoError(t, store.Delete(ctx, models.ModelFeatures, "v1"))
	_, err = store.Get(ctx, models.ModelFeatures, "v1")
	assert.Error(t, err)

	// deleting a missing artifact is not an error
	assert.NoError(t, store.Delete(ctx, models.ModelFeatures, "v1"))
}

type setCurrentFailRegistry struct {
	*MemoryRegistry
}

func (r *setCurrentFailRegistry) SetCurrent(context.Context, string, string) error {
	return errors.New("registry unavailable")
}

func TestSaveModelRollsBackWhenSetCurrentFails(t *testing.T) {
	ctx := context.Background()
	registry := &setCurrentFailRegistry{MemoryRegistry: NewMemoryRegistry()}
	artifacts := NewMemoryArtifactStore()
	m := New(applogger.Nop(), DefaultConfig(), registry, artifacts)

	_, err := m.SaveModel(ctx, models.ModelFeatures, []byte{1, 2, 3}, nil, nil)
	require.Error(t, err)

	// the appended version and its artifact are both rolled back
	versions, err := registry.Versions(ctx, models.ModelFeatures)
	require.NoError(t, err)
	assert.Empty(t, versions)
	assert.Empty(t, artifacts.blobs)
}
