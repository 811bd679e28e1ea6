package cmd

import (
	"github.com/spf13/cobra"

	"github.com/matze/binge/internal/target"
)

func newUpdateCmd() *cobra.Command {
	var prerelease bool

	cmd := &cobra.Command{
		Use:   "update [owner/repo]...",
		Short: "Update installed binaries to their latest release",
		Long: `Update re-resolves the latest release for the given repositories, or for
everything installed when none are named. Binaries already at the latest
tag are skipped without downloading anything.`,
		ValidArgsFunction: completeInstalledRefs,
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args)
			if err != nil {
				return err
			}
			return runUpdate(cmd, refs, prerelease)
		},
	}

	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Consider prerelease releases")

	return cmd
}

func runUpdate(cmd *cobra.Command, refs []target.Ref, prerelease bool) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	msg := "checking for updates"
	if len(refs) == 1 {
		msg = progressMsg("updating", 1, refs[0].String())
	}
	sp := spinner()
	sp.Start(msg)
	results, err := eng.Update(cmd.Context(), refs, prerelease)
	sp.Stop()

	rerr := reportResults(cmd, results)
	if err != nil {
		return err
	}
	return rerr
}
