package cmd

import (
	"github.com/spf13/cobra"

	"github.com/matze/binge/internal/target"
)

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <owner/repo>...",
		Short: "Remove installed binaries",
		Long: `Uninstall deletes the installed file and forgets the manifest entry. When
the file cannot be deleted the entry is kept so nothing is orphaned.`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeInstalledRefs,
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args)
			if err != nil {
				return err
			}
			return runUninstall(cmd, refs)
		},
	}
}

func runUninstall(cmd *cobra.Command, refs []target.Ref) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	results, err := eng.Uninstall(refs)

	rerr := reportResults(cmd, results)
	if err != nil {
		return err
	}
	return rerr
}

func parseRefs(args []string) ([]target.Ref, error) {
	refs := make([]target.Ref, len(args))
	for i, arg := range args {
		ref, err := target.ParseRef(arg)
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}
	return refs, nil
}

// completeInstalledRefs offers the manifest's owner/repo pairs as shell
// completion candidates.
func completeInstalledRefs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	store, err := openStore()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	m, err := store.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	refs := make([]string, 0, len(m.Binaries))
	for _, e := range m.Binaries {
		refs = append(refs, e.Owner+"/"+e.Repo)
	}
	return refs, cobra.ShellCompDirectiveNoFileComp
}
