// Package cmd wires the binge command tree: install, uninstall, update,
// rename, list, completion, and version.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matze/binge/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	quiet      bool

	// Build identification, set by Execute.
	bingeVersion = "dev"
	bingeCommit  = "none"
	bingeDate    = "unknown"
)

// Execute builds the command tree and runs it against os.Args.
func Execute(ctx context.Context, version, commit, date string) error {
	bingeVersion, bingeCommit, bingeDate = version, commit, date
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "binge",
		Short: "Install single-binary tools from GitHub releases",
		Long: `binge installs single-binary tools straight from their GitHub release
assets: it picks the asset matching this machine, streams the executable
out of whatever archive wraps it, and keeps a manifest of everything it
installed so updating is one command.`,
		Version:      bingeVersion,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetVerbosity(verbose, quiet)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to binge.toml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newUninstallCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newRenameCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
