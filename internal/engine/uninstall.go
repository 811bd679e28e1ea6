package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/matze/binge/internal/target"
)

// Uninstall removes installed files and their manifest entries. When the
// file cannot be deleted the entry is kept, so the manifest never claims
// less than what is on disk. A file that is already gone still clears its
// entry.
func (e *Engine) Uninstall(refs []target.Ref) ([]Result, error) {
	if err := validateUnique(refs); err != nil {
		return nil, err
	}

	m, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(refs))
	for i, ref := range refs {
		results[i].Ref = ref

		ent := m.Find(ref.Owner, ref.Repo)
		if ent == nil {
			results[i].Err = &NotInstalledError{Ref: ref}
			continue
		}

		if err := os.Remove(ent.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			results[i].Err = fmt.Errorf("removing %s: %w", ent.Path, err)
			continue
		}

		results[i].Outcome = OutcomeRemoved
		results[i].Entry = *ent
		m.Remove(ref.Owner, ref.Repo)
	}

	if err := e.store.Save(m); err != nil {
		return results, fmt.Errorf("saving manifest: %w", err)
	}
	return results, nil
}
