package cmd

import (
	"github.com/spf13/cobra"

	"github.com/matze/binge/internal/target"
)

func newInstallCmd() *cobra.Command {
	var prerelease bool

	cmd := &cobra.Command{
		Use:   "install <owner/repo[:alias]>...",
		Short: "Install binaries from GitHub release assets",
		Long: `Install downloads the latest release of each repository, picks the asset
matching this machine, extracts the executable, and places it in the
install directory. An alias after the colon names the installed file.

Examples:
  binge install sharkdp/fd
  binge install idursun/jjui:jj BurntSushi/ripgrep:rg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]target.Target, len(args))
			for i, arg := range args {
				tgt, err := target.Parse(arg)
				if err != nil {
					return err
				}
				targets[i] = tgt
			}
			return runInstall(cmd, targets, prerelease)
		},
	}

	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Consider prerelease releases")

	return cmd
}

func runInstall(cmd *cobra.Command, targets []target.Target, prerelease bool) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	sp := spinner()
	sp.Start(progressMsg("installing", len(targets), targets[0].String()))
	results, err := eng.Install(cmd.Context(), targets, prerelease)
	sp.Stop()

	rerr := reportResults(cmd, results)
	if err != nil {
		return err
	}
	return rerr
}
