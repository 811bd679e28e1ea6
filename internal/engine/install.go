package engine

import (
	"context"
	"fmt"

	"github.com/matze/binge/internal/manifest"
	"github.com/matze/binge/internal/target"
)

// Install runs the install pipeline for every target. Targets already
// recorded in the manifest fail with AlreadyInstalledError without any
// network traffic. The returned error is batch-fatal (duplicate targets,
// manifest load or save); per-target failures live in the results.
func (e *Engine) Install(ctx context.Context, targets []target.Target, includePrerelease bool) ([]Result, error) {
	refs := make([]target.Ref, len(targets))
	for i, t := range targets {
		refs[i] = t.Ref
	}
	if err := validateUnique(refs); err != nil {
		return nil, err
	}

	m, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(targets))
	st := newStaging(m)

	run := make([]int, 0, len(targets))
	for i, tgt := range targets {
		results[i].Ref = tgt.Ref
		if ent := m.Find(tgt.Owner, tgt.Repo); ent != nil {
			results[i].Err = &AlreadyInstalledError{Ref: tgt.Ref, Version: ent.Version}
			continue
		}
		// Aliased names are known up front; claim them before any
		// pipeline spends bandwidth on a doomed target.
		if tgt.Alias != "" {
			if err := st.claim(tgt.Alias); err != nil {
				results[i].Err = err
				continue
			}
		}
		run = append(run, i)
	}

	e.forEach(run, func(i int) {
		results[i] = e.installOne(ctx, targets[i], includePrerelease, st)
	})

	if err := e.store.Save(m); err != nil {
		return results, fmt.Errorf("saving manifest: %w", err)
	}
	return results, nil
}

func (e *Engine) installOne(ctx context.Context, tgt target.Target, includePrerelease bool, st *staging) Result {
	res := Result{Ref: tgt.Ref}

	rel, err := e.client.LatestRelease(ctx, tgt.Owner, tgt.Repo, includePrerelease)
	if err != nil {
		res.Err = err
		return res
	}

	pl, err := e.download(ctx, rel, hints(tgt.Alias, tgt.Repo))
	if err != nil {
		res.Err = err
		return res
	}
	defer pl.Close()

	// Installed name: alias, then the executable's own name inside the
	// archive, then the repository name (raw assets carry decorated
	// filenames that nobody wants to type).
	name := tgt.Alias
	if name == "" {
		name = pl.exe.Name
		if name == "" {
			name = tgt.Repo
		}
		if err := st.claim(name); err != nil {
			res.Err = err
			return res
		}
	}

	path, err := placeFile(e.installDir, name, pl.exe)
	if err != nil {
		res.Err = err
		return res
	}

	entry := manifest.Entry{
		Owner:   tgt.Owner,
		Repo:    tgt.Repo,
		Name:    name,
		Version: rel.Tag,
		Path:    path,
	}
	st.add(entry)

	res.Outcome = OutcomeInstalled
	res.Entry = entry
	res.Asset = pl.asset.Name
	return res
}
