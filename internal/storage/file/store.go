package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"tap_amazon_ads/internal/domain"
)

// Store reads and writes the state file given on the command line. A store
// that cannot write keeps the last saved state in memory, so repeated runs in
// one process resume from it instead of the input file.
type Store struct {
	path     string
	readOnly bool

	mu    sync.Mutex
	saved *domain.State
}

type Option func(*Store)

// ReadOnly leaves the input file untouched; Save only updates the in-memory copy.
func ReadOnly() Option {
	return func(s *Store) { s.readOnly = true }
}

func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns an empty state when no path is set or the file is missing.
func (s *Store) Load(_ context.Context) (*domain.State, error) {
	s.mu.Lock()
	saved := s.saved
	s.mu.Unlock()
	if saved != nil {
		return saved.Clone(), nil
	}

	if s.path == "" {
		return domain.NewState(), nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	state := domain.NewState()
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	if state.Bookmarks == nil {
		state.Bookmarks = make(map[string]map[string]string)
	}
	return state, nil
}

// Save replaces the file atomically through a temp file in the same directory.
func (s *Store) Save(_ context.Context, state *domain.State) error {
	if s.path == "" || s.readOnly {
		s.mu.Lock()
		s.saved = state.Clone()
		s.mu.Unlock()
		return nil
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
