// Package manifest persists the durable record of what binge has installed:
// one TOML document, loaded whole before a batch and atomically replaced
// after it. The manifest is a value, not a live handle; all mutation
// happens in memory between exactly one Load and one Save.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// currentVersion is written on save; newer on-disk versions are rejected
// rather than silently misread.
const currentVersion = 1

// Entry records one installed binary.
type Entry struct {
	Owner   string `toml:"owner" json:"owner" yaml:"owner"`
	Repo    string `toml:"repo" json:"repo" yaml:"repo"`
	Name    string `toml:"name" json:"name" yaml:"name"`
	Version string `toml:"version" json:"version" yaml:"version"`
	Path    string `toml:"path" json:"path" yaml:"path"`
}

// Manifest is the full set of installed binaries, at most one entry per
// (owner, repo).
type Manifest struct {
	Version  int     `toml:"version"`
	Binaries []Entry `toml:"binaries,omitempty"`
}

// Find returns a pointer to the entry for owner/repo, or nil. The pointer
// aliases the manifest's backing slice so callers can mutate in place.
func (m *Manifest) Find(owner, repo string) *Entry {
	for i := range m.Binaries {
		if m.Binaries[i].Owner == owner && m.Binaries[i].Repo == repo {
			return &m.Binaries[i]
		}
	}
	return nil
}

// FindName returns the entry whose installed name is name, or nil.
func (m *Manifest) FindName(name string) *Entry {
	for i := range m.Binaries {
		if m.Binaries[i].Name == name {
			return &m.Binaries[i]
		}
	}
	return nil
}

// Add appends an entry. Callers check Find first; Add does not.
func (m *Manifest) Add(e Entry) {
	m.Binaries = append(m.Binaries, e)
}

// Remove deletes the entry for owner/repo, reporting whether it existed.
func (m *Manifest) Remove(owner, repo string) bool {
	for i := range m.Binaries {
		if m.Binaries[i].Owner == owner && m.Binaries[i].Repo == repo {
			m.Binaries = append(m.Binaries[:i], m.Binaries[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Manifest) sort() {
	sort.SliceStable(m.Binaries, func(i, j int) bool {
		a, b := m.Binaries[i], m.Binaries[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.Repo < b.Repo
	})
}

// Store reads and writes the manifest file at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store bound to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the manifest file location.
func (s *Store) Path() string {
	return s.path
}

// DefaultPath places the manifest under the XDG state directory. The
// manifest is mutable bookkeeping, not configuration, so it lives in state
// rather than config.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "binge", "manifest.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating manifest: %w", err)
	}
	return filepath.Join(home, ".local", "state", "binge", "manifest.toml"), nil
}

// Load reads the manifest. A missing file is an empty manifest, not an
// error. Any parse or consistency problem is fatal to the run and names the
// offending record; entries are never silently dropped.
func (s *Store) Load() (*Manifest, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Manifest{Version: currentVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("parsing manifest %s:%d:%d: %s", s.path, row, col, derr.Error())
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return nil, fmt.Errorf("parsing manifest %s: unknown keys:\n%s", s.path, serr.String())
		}
		return nil, fmt.Errorf("parsing manifest %s: %w", s.path, err)
	}

	if m.Version > currentVersion {
		return nil, fmt.Errorf("manifest %s has version %d, this binge understands up to %d", s.path, m.Version, currentVersion)
	}

	if err := validate(&m); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", s.path, err)
	}
	return &m, nil
}

// validate enforces the record invariants: complete entries, unique
// (owner, repo).
func validate(m *Manifest) error {
	seen := make(map[string]bool, len(m.Binaries))
	for i, e := range m.Binaries {
		switch {
		case e.Owner == "" || e.Repo == "":
			return fmt.Errorf("entry %d: missing owner/repo", i+1)
		case e.Name == "":
			return fmt.Errorf("entry %d (%s/%s): missing name", i+1, e.Owner, e.Repo)
		case e.Version == "":
			return fmt.Errorf("entry %d (%s/%s): missing version", i+1, e.Owner, e.Repo)
		}
		key := e.Owner + "/" + e.Repo
		if seen[key] {
			return fmt.Errorf("entry %d: duplicate record for %s", i+1, key)
		}
		seen[key] = true
	}
	return nil
}

// Save writes the whole manifest: marshal, write to a temp file beside the
// target, fsync, then rename over it. A crash or concurrent reader never
// sees a half-written manifest.
func (s *Store) Save(m *Manifest) error {
	if m.Version == 0 {
		m.Version = currentVersion
	}
	m.sort()

	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.toml")
	if err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing manifest: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing manifest: %w", err)
	}
	return nil
}
