package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/konverge-io/konverge/internal/provider"
	"github.com/konverge-io/konverge/internal/spec"
)

// FileStore keeps one YAML state document per cluster under a directory.
// Every mutation rewrites the document through a temp file and rename, so
// a crash never leaves a torn state file on disk.
type FileStore struct {
	mu      sync.Mutex
	dir     string
	cluster string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the state directory if needed and returns a store
// scoped to one cluster.
func NewFileStore(dir, cluster string) (*FileStore, error) {
	if cluster == "" {
		return nil, fmt.Errorf("cluster name is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}
	return &FileStore{dir: dir, cluster: cluster}, nil
}

func (f *FileStore) path() string {
	return filepath.Join(f.dir, f.cluster+".state.yaml")
}

func (f *FileStore) Load(_ context.Context) (*State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileStore) load() (*State, error) {
	data, err := os.ReadFile(f.path())
	if os.IsNotExist(err) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	st := NewState()
	if err := yaml.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if st.Records == nil {
		st.Records = make(map[string]provider.ResourceRecord)
	}
	return st, nil
}

func (f *FileStore) Save(_ context.Context, rec provider.ResourceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.load()
	if err != nil {
		return err
	}
	st.Records[rec.ID] = rec
	return f.write(st)
}

func (f *FileStore) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.load()
	if err != nil {
		return err
	}
	delete(st.Records, id)
	return f.write(st)
}

func (f *FileStore) SnapshotSpec(_ context.Context, s *spec.ClusterSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.load()
	if err != nil {
		return err
	}
	st.Spec = s
	st.SpecHash = s.Hash()
	return f.write(st)
}

// write replaces the state document atomically via rename.
func (f *FileStore) write(st *State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, "."+f.cluster+".state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tmpName, f.path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
