package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/matze/binge/internal/manifest"
	"github.com/matze/binge/internal/output"
)

func newListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list [install]",
		Short: "List installed binaries",
		Long: `List shows everything recorded in the manifest. The install argument
instead prints one replayable command line for moving a setup to another
machine:

  $ binge list install
  binge install sharkdp/fd idursun/jjui:jj`,
		ValidArgs: []string{"install"},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, format, len(args) == 1)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "text", "Output format: text, json, yaml")
	_ = cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runList(cmd *cobra.Command, formatStr string, installMode bool) error {
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	m, err := store.Load()
	if err != nil {
		return err
	}

	if installMode {
		if len(m.Binaries) == 0 {
			return nil
		}
		specs := make([]string, len(m.Binaries))
		for i, e := range m.Binaries {
			specs[i] = e.Owner + "/" + e.Repo
			// The recorded name only needs spelling out when it is not the
			// plain repo name.
			if e.Name != e.Repo {
				specs[i] += ":" + e.Name
			}
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "binge install "+strings.Join(specs, " "))
		return err
	}

	return output.NewWriter(cmd.OutOrStdout(), format).Write(listing{Binaries: m.Binaries})
}

// listing adapts manifest entries to the output writer.
type listing struct {
	Binaries []manifest.Entry `json:"binaries" yaml:"binaries"`
}

func (l listing) RenderText(w io.Writer) error {
	if len(l.Binaries) == 0 {
		_, err := fmt.Fprintln(w, "nothing installed")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tREPOSITORY\tPATH")
	for _, e := range l.Binaries {
		fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\n", e.Name, e.Version, e.Owner, e.Repo, e.Path)
	}
	return tw.Flush()
}
