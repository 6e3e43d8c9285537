package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v3"
)

// fileSnapshot is the on-disk YAML shape.
type fileSnapshot struct {
	Entities []KnownEntity `yaml:"entities"`
}

// FileStore keeps the entity snapshot in a single YAML file. Suited to
// small knowledge bases that are edited by hand or regenerated by an
// external pipeline; Reload diffs the file against memory so a watcher
// can feed incremental deltas to the index.
type FileStore struct {
	fs   afero.Fs
	path string

	mu       sync.RWMutex
	entities map[string]KnownEntity
}

// NewFileStore opens (or creates) a YAML-backed store. A nil fs uses the
// OS filesystem; tests pass afero.NewMemMapFs().
func NewFileStore(fs afero.Fs, path string) (*FileStore, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	s := &FileStore{
		fs:       fs,
		path:     path,
		entities: make(map[string]KnownEntity),
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("check store file %s: %w", path, err)
	}
	if exists {
		loaded, err := s.readSnapshot()
		if err != nil {
			return nil, err
		}
		s.entities = loaded
	}
	return s, nil
}

// Path returns the snapshot file path. The watcher needs it.
func (s *FileStore) Path() string {
	return s.path
}

// ListAll returns every entity, ordered by id for stable output.
func (s *FileStore) ListAll(_ context.Context) ([]KnownEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]KnownEntity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FileStore) GetByID(_ context.Context, id string) (*KnownEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	return &e, nil
}

// Put inserts or replaces an entity, assigning an id when absent, and
// persists the whole snapshot.
func (s *FileStore) Put(_ context.Context, e KnownEntity) (KnownEntity, error) {
	if strings.TrimSpace(e.Name) == "" {
		return KnownEntity{}, fmt.Errorf("entity name must not be empty")
	}
	if e.ID == "" {
		e.ID = "ent-" + uuid.NewString()[:8]
	}
	e.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.ID] = e
	if err := s.persistLocked(); err != nil {
		return KnownEntity{}, err
	}
	return e, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[id]; !ok {
		return fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	delete(s.entities, id)
	return s.persistLocked()
}

func (s *FileStore) Close() error { return nil }

// Reload re-reads the snapshot file and returns the delta against the
// in-memory state, updating memory to match the file. Called by the
// watcher on file change.
func (s *FileStore) Reload() (EntityDelta, error) {
	loaded, err := s.readSnapshot()
	if err != nil {
		return EntityDelta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var delta EntityDelta
	for id, e := range loaded {
		prev, existed := s.entities[id]
		switch {
		case !existed:
			delta.Added = append(delta.Added, e)
		case !reflect.DeepEqual(prev, e):
			delta.Updated = append(delta.Updated, e)
		}
	}
	for id := range s.entities {
		if _, still := loaded[id]; !still {
			delta.DeletedIDs = append(delta.DeletedIDs, id)
		}
	}

	sort.Slice(delta.Added, func(i, j int) bool { return delta.Added[i].ID < delta.Added[j].ID })
	sort.Slice(delta.Updated, func(i, j int) bool { return delta.Updated[i].ID < delta.Updated[j].ID })
	sort.Strings(delta.DeletedIDs)

	s.entities = loaded
	return delta, nil
}

func (s *FileStore) readSnapshot() (map[string]KnownEntity, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("read store file %s: %w", s.path, err)
	}

	var snap fileSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse store file %s: %w", s.path, err)
	}

	entities := make(map[string]KnownEntity, len(snap.Entities))
	for _, e := range snap.Entities {
		if e.ID == "" || strings.TrimSpace(e.Name) == "" {
			// Malformed rows are skipped, not fatal; the index applies the
			// same rule on rebuild.
			continue
		}
		entities[e.ID] = e
	}
	return entities, nil
}

// persistLocked writes the snapshot via a temp file and rename so a
// concurrent reader never sees a half-written file. Caller holds mu.
func (s *FileStore) persistLocked() error {
	out := make([]KnownEntity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	data, err := yaml.Marshal(fileSnapshot{Entities: out})
	if err != nil {
		return fmt.Errorf("marshal store snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store directory %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store file %s: %w", s.path, err)
	}
	return nil
}
