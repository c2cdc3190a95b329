package modelmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"FinCast/internal/domain/models"
)

// FileRegistry keeps the whole version log in a single JSON file,
// rewritten atomically on every mutation. The file is the source of
// truth; the in-memory state is just a parsed view of it.
type FileRegistry struct {
	mu      sync.RWMutex
	path    string
	entries map[string][]models.ModelVersion
	current map[string]string
}

type registryFile struct {
	Versions map[string][]models.ModelVersion `json:"versions"`
	Current  map[string]string                `json:"current"`
}

// NewFileRegistry opens (or creates) a registry file at path.
func NewFileRegistry(path string) (*FileRegistry, error) {
	r := &FileRegistry{
		path:    path,
		entries: make(map[string][]models.ModelVersion),
		current: make(map[string]string),
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("%w: read registry: %v", models.ErrArtifactIO, err)
	}

	var f registryFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: parse registry: %v", models.ErrArtifactIO, err)
	}
	if f.Versions != nil {
		r.entries = f.Versions
	}
	if f.Current != nil {
		r.current = f.Current
	}
	return r, nil
}

func (r *FileRegistry) Append(_ context.Context, v models.ModelVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.entries[v.ModelName] {
		if existing.VersionID == v.VersionID {
			return fmt.Errorf("%w: version %s already registered for %s",
				models.ErrArtifactIO, v.VersionID, v.ModelName)
		}
	}
	r.entries[v.ModelName] = append(r.entries[v.ModelName], v)
	return r.persistLocked()
}

func (r *FileRegistry) SetCurrent(_ context.Context, model, versionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasVersionLocked(model, versionID) {
		return fmt.Errorf("%w: unknown version %s for %s", models.ErrArtifactIO, versionID, model)
	}
	r.current[model] = versionID
	return r.persistLocked()
}

func (r *FileRegistry) Current(_ context.Context, model string) (models.ModelVersion, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.current[model]
	if !ok {
		return models.ModelVersion{}, false, nil
	}
	for _, v := range r.entries[model] {
		if v.VersionID == id {
			return v, true, nil
		}
	}
	return models.ModelVersion{}, false, nil
}

// Versions returns the version list sorted oldest first.
func (r *FileRegistry) Versions(_ context.Context, model string) ([]models.ModelVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ModelVersion, len(r.entries[model]))
	copy(out, r.entries[model])
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *FileRegistry) Remove(_ context.Context, model, versionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	vs := r.entries[model]
	for i, v := range vs {
		if v.VersionID == versionID {
			r.entries[model] = append(vs[:i], vs[i+1:]...)
			if r.current[model] == versionID {
				delete(r.current, model)
			}
			return r.persistLocked()
		}
	}
	return fmt.Errorf("%w: unknown version %s for %s", models.ErrArtifactIO, versionID, model)
}

func (r *FileRegistry) hasVersionLocked(model, versionID string) bool {
	for _, v := range r.entries[model] {
		if v.VersionID == versionID {
			return true
		}
	}
	return false
}

func (r *FileRegistry) persistLocked() error {
	b, err := json.MarshalIndent(registryFile{Versions: r.entries, Current: r.current}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode registry: %v", models.ErrArtifactIO, err)
	}

	tmp := r.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", models.ErrArtifactIO, err)
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("%w: write registry: %v", models.ErrArtifactIO, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("%w: replace registry: %v", models.ErrArtifactIO, err)
	}
	return nil
}

// MemoryRegistry is an in-memory VersionRegistry used in tests.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string][]models.ModelVersion
	current map[string]string
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string][]models.ModelVersion),
		current: make(map[string]string),
	}
}

func (r *MemoryRegistry) Append(_ context.Context, v models.ModelVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[v.ModelName] = append(r.entries[v.ModelName], v)
	return nil
}

func (r *MemoryRegistry) SetCurrent(_ context.Context, model, versionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current[model] = versionID
	return nil
}

func (r *MemoryRegistry) Current(_ context.Context, model string) (models.ModelVersion, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.current[model]
	if !ok {
		return models.ModelVersion{}, false, nil
	}
	for _, v := range r.entries[model] {
		if v.VersionID == id {
			return v, true, nil
		}
	}
	return models.ModelVersion{}, false, nil
}

func (r *MemoryRegistry) Versions(_ context.Context, model string) ([]models.ModelVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ModelVersion, len(r.entries[model]))
	copy(out, r.entries[model])
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRegistry) Remove(_ context.Context, model, versionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	vs := r.entries[model]
	for i, v := range vs {
		if v.VersionID == versionID {
			r.entries[model] = append(vs[:i], vs[i+1:]...)
			if r.current[model] == versionID {
				delete(r.current, model)
			}
			return nil
		}
	}
	return fmt.Errorf("unknown version %s for %s", versionID, model)
}
