// Package engine orchestrates per-target pipelines: resolve the latest
// release, match an asset, stream-extract the executable, place it in the
// install directory, and stage the manifest mutation. Targets within one
// batch run concurrently and fail independently; the manifest is loaded
// once before and saved once after the whole batch.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/matze/binge/internal/github"
	"github.com/matze/binge/internal/manifest"
	"github.com/matze/binge/internal/platform"
	"github.com/matze/binge/internal/target"
)

// ReleaseClient is the release-query boundary the engine consumes. The
// production implementation is internal/github; tests substitute fakes.
type ReleaseClient interface {
	LatestRelease(ctx context.Context, owner, repo string, includePrerelease bool) (*github.Release, error)
	OpenAsset(ctx context.Context, asset github.Asset) (io.ReadCloser, error)
}

// Engine runs batches of install, update, uninstall, and rename
// operations.
type Engine struct {
	client     ReleaseClient
	store      *manifest.Store
	platform   platform.Descriptor
	installDir string
	limit      int
}

// New creates an engine. limit bounds concurrent target pipelines and is
// clamped to at least 1.
func New(client ReleaseClient, store *manifest.Store, p platform.Descriptor, installDir string, limit int) *Engine {
	if limit < 1 {
		limit = 1
	}
	return &Engine{
		client:     client,
		store:      store,
		platform:   p,
		installDir: installDir,
		limit:      limit,
	}
}

// Outcome is the terminal state of one successful target operation.
type Outcome int

const (
	OutcomeInstalled Outcome = iota
	OutcomeUpdated
	OutcomeAlreadyLatest
	OutcomeRemoved
	OutcomeRenamed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInstalled:
		return "installed"
	case OutcomeUpdated:
		return "updated"
	case OutcomeAlreadyLatest:
		return "up to date"
	case OutcomeRemoved:
		return "removed"
	case OutcomeRenamed:
		return "renamed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is one target's terminal state. Results are returned in input
// order regardless of pipeline completion order.
type Result struct {
	Ref     target.Ref
	Outcome Outcome
	// Entry is the manifest entry after the operation, for reporting.
	Entry manifest.Entry
	// Asset is the release asset a download drew from, when one happened.
	Asset string
	Err   error
}

// validateUnique rejects batches naming the same repository twice. Two
// pipelines must never race over one install path.
func validateUnique(refs []target.Ref) error {
	seen := make(map[target.Ref]bool, len(refs))
	for _, r := range refs {
		if seen[r] {
			return fmt.Errorf("target %s given more than once", r)
		}
		seen[r] = true
	}
	return nil
}

// forEach runs fn(i) for every index with bounded parallelism and waits
// for all of them. Each fn writes only its own results slot, so no further
// synchronization is needed.
func (e *Engine) forEach(indexes []int, fn func(i int)) {
	if len(indexes) == 0 {
		return
	}
	sem := make(chan struct{}, e.limit)
	var wg sync.WaitGroup
	for _, i := range indexes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}

// staging accumulates manifest mutations from concurrent pipelines. The
// manifest itself is only written by Save after every pipeline finished.
type staging struct {
	mu      sync.Mutex
	m       *manifest.Manifest
	claimed map[string]bool
}

func newStaging(m *manifest.Manifest) *staging {
	return &staging{m: m, claimed: make(map[string]bool)}
}

// claim reserves an installed filename before anything is written under
// it. Conflicts with existing entries and with names claimed earlier in
// the same batch both fail.
func (s *staging) claim(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed[name] {
		return &NameConflictError{Name: name}
	}
	if ent := s.m.FindName(name); ent != nil {
		return &NameConflictError{Name: name, Holder: target.Ref{Owner: ent.Owner, Repo: ent.Repo}}
	}
	s.claimed[name] = true
	return nil
}

func (s *staging) add(e manifest.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Add(e)
}

func (s *staging) setVersion(owner, repo, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ent := s.m.Find(owner, repo); ent != nil {
		ent.Version = version
	}
}
