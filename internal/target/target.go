// Package target parses the owner/repo[:alias] references binge operates on.
package target

import (
	"fmt"
	"strings"
)

// Ref identifies a GitHub repository by owner and name.
type Ref struct {
	Owner string
	Repo  string
}

func (r Ref) String() string {
	return r.Owner + "/" + r.Repo
}

// Target is one unit of work: a repository plus an optional alias naming the
// file to place in the install directory.
type Target struct {
	Ref
	Alias string
}

func (t Target) String() string {
	if t.Alias == "" {
		return t.Ref.String()
	}
	return t.Ref.String() + ":" + t.Alias
}

// ParseRef parses a "owner/repo" reference.
func ParseRef(s string) (Ref, error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.ContainsAny(repo, "/:") {
		return Ref{}, fmt.Errorf("invalid repository %q: expected owner/repo", s)
	}
	return Ref{Owner: owner, Repo: repo}, nil
}

// ValidateName checks that name can serve as an installed filename. The
// same rule applies to install aliases and rename arguments.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is empty")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("name %q must be a bare filename", name)
	}
	return nil
}

// Parse parses a "owner/repo" or "owner/repo:alias" argument. The alias,
// when present, becomes the installed filename, so it must be a bare name.
func Parse(s string) (Target, error) {
	refPart := s
	var alias string
	if i := strings.IndexByte(s, ':'); i >= 0 {
		refPart, alias = s[:i], s[i+1:]
		if err := ValidateName(alias); err != nil {
			return Target{}, fmt.Errorf("invalid target %q: %w", s, err)
		}
	}
	ref, err := ParseRef(refPart)
	if err != nil {
		return Target{}, err
	}
	return Target{Ref: ref, Alias: alias}, nil
}
