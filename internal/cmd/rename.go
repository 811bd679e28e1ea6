package cmd

import (
	"github.com/spf13/cobra"

	"github.com/matze/binge/internal/engine"
	"github.com/matze/binge/internal/target"
)

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <owner/repo> <new-name>",
		Short: "Rename an installed binary",
		Long: `Rename moves the installed file to a new name in place and records it, so
later updates keep using the new name.

Example:
  binge rename sharkdp/fd fdfind`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			// Only the repository argument completes; the new name is free-form.
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completeInstalledRefs(cmd, args, toComplete)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := target.ParseRef(args[0])
			if err != nil {
				return err
			}
			return runRename(cmd, ref, args[1])
		},
	}
}

func runRename(cmd *cobra.Command, ref target.Ref, newName string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	res, err := eng.Rename(ref, newName)
	if err != nil {
		return err
	}
	return reportResults(cmd, []engine.Result{res})
}
