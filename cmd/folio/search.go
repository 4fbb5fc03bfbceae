package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	folio "github.com/goliatone/go-folio"
)

func newSearchCommand(a *app) *cobra.Command {
	var (
		namespace string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "search <terms...>",
		Short: "Full-text search over titles and bodies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hits, err := a.module.Search(cmd.Context(), strings.Join(args, " "), folio.Namespace(namespace), limit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matches")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCORE\tNAMESPACE\tPATH\tTITLE")
			for _, hit := range hits {
				fmt.Fprintf(tw, "%.3f\t%s\t%s\t%s\n", hit.Score, hit.Namespace, hit.Path, hit.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "restrict to one namespace")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum hits")
	return cmd
}
