package preset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/markusressel/psu2go/internal/data"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/markusressel/psu2go/internal/util"
	"os"
	"sync"
)

var ErrPersistence = errors.New("unable to persist presets")

// Load reads the presets document at path.
// If the file is missing or is not a JSON object, the default presets are
// returned and written to path. Invalid entries of an object are skipped and
// the file is left untouched.
func Load(path string) *Presets {
	presets, err := read(path)
	if err == nil {
		return presets
	}

	if errors.Is(err, os.ErrNotExist) {
		ui.Info("No presets found at %s, creating defaults", path)
	} else {
		ui.Warning("Unable to read presets from %s, falling back to defaults: %v", path, err)
	}

	presets = DefaultPresets()
	if err = Save(path, presets); err != nil {
		ui.Warning("Unable to persist default presets: %v", err)
	}
	return presets
}

func read(path string) (*Presets, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(content, func(name string, err error) {
		ui.Warning("Skipping invalid preset %q in %s: %v", name, path, err)
	})
}

// Save writes presets to path as an indented JSON object.
func Save(path string, presets *Presets) error {
	content, err := encode(presets)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err = util.WriteFileAtomic(path, content); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func encode(presets *Presets) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(presets); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Store owns the in-memory presets and the file they are persisted to.
// The in-memory copy may diverge from the file until Save or Commit is called.
type Store struct {
	mu      sync.RWMutex
	path    string
	presets *Presets
}

// NewStore loads the presets at path
func NewStore(path string) *Store {
	return &Store{
		path:    path,
		presets: Load(path),
	}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Put(name string, voltage float64, current float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presets.Put(name, voltage, current)
}

func (s *Store) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets.Remove(name)
}

func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presets.List()
}

func (s *Store) Get(name string) (data.Setpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presets.Get(name)
}

// Snapshot returns a copy of the current presets
func (s *Store) Snapshot() *Presets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presets.Clone()
}

// Save persists the in-memory presets
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Save(s.path, s.presets)
}

// Edit returns an editor working on a private copy of the presets
func (s *Store) Edit() *Editor {
	return &Editor{presets: s.Snapshot()}
}

// Update runs fn on an editor of the current presets and persists the result.
// Concurrent updates are applied one after another, each on top of the last.
// Nothing changes if fn or persisting fails.
func (s *Store) Update(fn func(editor *Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	editor := &Editor{presets: s.presets.Clone()}
	if err := fn(editor); err != nil {
		return err
	}
	presets := editor.Presets()
	if err := Save(s.path, presets); err != nil {
		return err
	}
	s.presets = presets
	return nil
}

// Commit persists the editor's presets and, if that succeeded, makes them
// the current presets of this store.
func (s *Store) Commit(editor *Editor) error {
	presets := editor.Presets()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := Save(s.path, presets); err != nil {
		return err
	}
	s.presets = presets
	return nil
}
