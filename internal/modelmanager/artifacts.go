package modelmanager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"FinCast/internal/domain/models"
)

// FSArtifactStore keeps serialized model artifacts as files under
// root/<model>/<version_id>.bin.
type FSArtifactStore struct {
	root string
}

func NewFSArtifactStore(root string) *FSArtifactStore {
	return &FSArtifactStore{root: root}
}

func (s *FSArtifactStore) Put(_ context.Context, model, versionID string, blob []byte) (string, error) {
	dir := filepath.Join(s.root, model)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrArtifactIO, err)
	}

	path := filepath.Join(dir, versionID+".bin")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return "", fmt.Errorf("%w: write artifact: %v", models.ErrArtifactIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("%w: replace artifact: %v", models.ErrArtifactIO, err)
	}
	return path, nil
}

func (s *FSArtifactStore) Get(_ context.Context, model, versionID string) ([]byte, error) {
	path := filepath.Join(s.root, model, versionID+".bin")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read artifact %s: %v", models.ErrArtifactIO, path, err)
	}
	return b, nil
}

func (s *FSArtifactStore) Delete(_ context.Context, model, versionID string) error {
	path := filepath.Join(s.root, model, versionID+".bin")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: delete artifact %s: %v", models.ErrArtifactIO, path, err)
	}
	return nil
}

// MemoryArtifactStore is an in-memory ArtifactStore used in tests.
type MemoryArtifactStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{blobs: make(map[string][]byte)}
}

func (s *MemoryArtifactStore) key(model, versionID string) string {
	return model + "/" + versionID
}

func (s *MemoryArtifactStore) Put(_ context.Context, model, versionID string, blob []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	s.blobs[s.key(model, versionID)] = cp
	return "mem://" + s.key(model, versionID), nil
}

func (s *MemoryArtifactStore) Get(_ context.Context, model, versionID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[s.key(model, versionID)]
	if !ok {
		return nil, fmt.Errorf("%w: no artifact %s/%s", models.ErrArtifactIO, model, versionID)
	}
	return b, nil
}

func (s *MemoryArtifactStore) Delete(_ context.Context, model, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, s.key(model, versionID))
	return nil
}
