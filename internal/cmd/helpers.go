package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matze/binge/internal/config"
	"github.com/matze/binge/internal/engine"
	"github.com/matze/binge/internal/github"
	"github.com/matze/binge/internal/logging"
	"github.com/matze/binge/internal/manifest"
	"github.com/matze/binge/internal/platform"
	"github.com/matze/binge/internal/ui"
)

// newEngine wires config, host platform, manifest store, and the GitHub
// client into a ready engine, and sweeps leftovers from interrupted runs.
func newEngine() (*engine.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	host, err := platform.Host()
	if err != nil {
		return nil, err
	}

	installDir, err := cfg.ResolveInstallDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating install directory %s: %w", installDir, err)
	}
	engine.SweepTemp(installDir)

	token, err := cfg.ResolveToken()
	if err != nil {
		return nil, err
	}

	opts := []github.Option{github.WithUserAgent("binge/" + bingeVersion)}
	if token != "" {
		opts = append(opts, github.WithToken(token))
	}
	if api := os.Getenv("BINGE_GITHUB_API"); api != "" {
		opts = append(opts, github.WithBaseURL(api))
	}

	store, err := openStore()
	if err != nil {
		return nil, err
	}

	logging.Debug("engine ready",
		"installDir", installDir,
		"platform", host,
		"concurrency", cfg.ResolveConcurrency(),
		"authenticated", token != "")
	return engine.New(github.NewClient(opts...), store, host, installDir, cfg.ResolveConcurrency()), nil
}

func openStore() (*manifest.Store, error) {
	path, err := manifest.DefaultPath()
	if err != nil {
		return nil, err
	}
	return manifest.NewStore(path), nil
}

// spinner creates the progress spinner. It stays silent when stderr is not
// a terminal or quiet mode is on.
func spinner() *ui.Spinner {
	return ui.NewSpinner(os.Stderr, quiet)
}

func progressMsg(verb string, n int, first string) string {
	if n == 1 {
		return fmt.Sprintf("%s %s", verb, first)
	}
	return fmt.Sprintf("%s %d targets", verb, n)
}

// reportResults prints one line per target in input order plus a summary,
// and returns an error when any target failed so the process exits
// non-zero.
func reportResults(cmd *cobra.Command, results []engine.Result) error {
	p := ui.NewPrinter(cmd.OutOrStdout(), quiet)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			p.Failf("%s: %v", res.Ref, res.Err)
			continue
		}
		switch res.Outcome {
		case engine.OutcomeInstalled:
			p.Successf("installed %s %s as %s", res.Ref, res.Entry.Version, ui.Bold(res.Entry.Name))
		case engine.OutcomeUpdated:
			p.Successf("updated %s to %s", res.Ref, res.Entry.Version)
		case engine.OutcomeAlreadyLatest:
			p.Skipf("%s is up to date (%s)", res.Ref, res.Entry.Version)
		case engine.OutcomeRemoved:
			p.Successf("removed %s (%s)", res.Ref, res.Entry.Name)
		case engine.OutcomeRenamed:
			p.Successf("renamed %s to %s", res.Ref, ui.Bold(res.Entry.Name))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(results))
	}
	return nil
}
