package engine

import (
	"fmt"

	"github.com/matze/binge/internal/target"
)

// AlreadyInstalledError reports an install of a repository the manifest
// already records. Install never silently overwrites; that is update's
// job.
type AlreadyInstalledError struct {
	Ref     target.Ref
	Version string
}

func (e *AlreadyInstalledError) Error() string {
	return fmt.Sprintf("%s is already installed (%s); use \"binge update\" to upgrade it", e.Ref, e.Version)
}

// NotInstalledError reports an operation on a repository the manifest does
// not record.
type NotInstalledError struct {
	Ref target.Ref
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("%s is not installed", e.Ref)
}

// NameConflictError reports a collision on an installed filename. Holder
// is zero when the clash is with another target in the same batch rather
// than an existing entry.
type NameConflictError struct {
	Name   string
	Holder target.Ref
}

func (e *NameConflictError) Error() string {
	if e.Holder == (target.Ref{}) {
		return fmt.Sprintf("name %q is claimed by another target in this batch", e.Name)
	}
	return fmt.Sprintf("name %q is already used by %s", e.Name, e.Holder)
}
