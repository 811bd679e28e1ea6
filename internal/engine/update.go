package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/matze/binge/internal/manifest"
	"github.com/matze/binge/internal/target"
)

// Update re-resolves the latest release for each ref and replaces the
// installed file when the tag moved. An empty refs slice means every
// installed binary, in manifest order. A target whose recorded version
// already equals the latest tag finishes as AlreadyLatest without opening
// any asset stream.
func (e *Engine) Update(ctx context.Context, refs []target.Ref, includePrerelease bool) ([]Result, error) {
	if len(refs) > 0 {
		if err := validateUnique(refs); err != nil {
			return nil, err
		}
	}

	m, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	if len(refs) == 0 {
		for _, ent := range m.Binaries {
			refs = append(refs, target.Ref{Owner: ent.Owner, Repo: ent.Repo})
		}
	}

	results := make([]Result, len(refs))
	st := newStaging(m)

	// Pipelines work on copies; the shared manifest is only touched
	// through staging.
	entries := make([]manifest.Entry, len(refs))
	run := make([]int, 0, len(refs))
	for i, ref := range refs {
		results[i].Ref = ref
		ent := m.Find(ref.Owner, ref.Repo)
		if ent == nil {
			results[i].Err = &NotInstalledError{Ref: ref}
			continue
		}
		entries[i] = *ent
		run = append(run, i)
	}

	e.forEach(run, func(i int) {
		results[i] = e.updateOne(ctx, refs[i], entries[i], includePrerelease, st)
	})

	if err := e.store.Save(m); err != nil {
		return results, fmt.Errorf("saving manifest: %w", err)
	}
	return results, nil
}

func (e *Engine) updateOne(ctx context.Context, ref target.Ref, ent manifest.Entry, includePrerelease bool, st *staging) Result {
	res := Result{Ref: ref}

	rel, err := e.client.LatestRelease(ctx, ref.Owner, ref.Repo, includePrerelease)
	if err != nil {
		res.Err = err
		return res
	}

	if rel.Tag == ent.Version {
		res.Outcome = OutcomeAlreadyLatest
		res.Entry = ent
		return res
	}

	pl, err := e.download(ctx, rel, hints(ent.Name, ref.Repo))
	if err != nil {
		res.Err = err
		return res
	}
	defer pl.Close()

	// The file is replaced where it was installed, under its existing
	// name, even if the configured install directory has since changed.
	if _, err := placeFile(filepath.Dir(ent.Path), ent.Name, pl.exe); err != nil {
		res.Err = err
		return res
	}
	st.setVersion(ref.Owner, ref.Repo, rel.Tag)

	ent.Version = rel.Tag
	res.Outcome = OutcomeUpdated
	res.Entry = ent
	res.Asset = pl.asset.Name
	return res
}
