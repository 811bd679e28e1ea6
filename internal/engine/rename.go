package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/matze/binge/internal/target"
)

// Rename moves an installed binary to a new filename and records the new
// name. The manifest is only saved after the file move succeeded. The
// returned error is batch-fatal (manifest load or save); everything else
// lands in the result.
func (e *Engine) Rename(ref target.Ref, newName string) (Result, error) {
	res := Result{Ref: ref}

	m, err := e.store.Load()
	if err != nil {
		return res, err
	}

	if err := target.ValidateName(newName); err != nil {
		res.Err = err
		return res, nil
	}

	ent := m.Find(ref.Owner, ref.Repo)
	if ent == nil {
		res.Err = &NotInstalledError{Ref: ref}
		return res, nil
	}
	if other := m.FindName(newName); other != nil && (other.Owner != ref.Owner || other.Repo != ref.Repo) {
		res.Err = &NameConflictError{Name: newName, Holder: target.Ref{Owner: other.Owner, Repo: other.Repo}}
		return res, nil
	}

	newPath := filepath.Join(filepath.Dir(ent.Path), newName)
	if err := os.Rename(ent.Path, newPath); err != nil {
		res.Err = fmt.Errorf("renaming %s: %w", ent.Path, err)
		return res, nil
	}

	ent.Name = newName
	ent.Path = newPath
	res.Outcome = OutcomeRenamed
	res.Entry = *ent

	if err := e.store.Save(m); err != nil {
		return res, fmt.Errorf("saving manifest: %w", err)
	}
	return res, nil
}
