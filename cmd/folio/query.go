package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	folio "github.com/goliatone/go-folio"
)

type recordSummary struct {
	Path      string `json:"path"`
	Namespace string `json:"namespace"`
	Slug      string `json:"slug,omitempty"`
	Title     string `json:"title"`
	Date      string `json:"date,omitempty"`
}

func summarize(r *folio.Record, field string) recordSummary {
	s := recordSummary{
		Path:      r.Path,
		Namespace: string(r.Namespace),
		Slug:      r.Slug(),
		Title:     r.Title(),
	}
	if t, ok := r.Date(field); ok {
		s.Date = t.Format(time.DateOnly)
	}
	return s
}

func newQueryCommand(a *app) *cobra.Command {
	var (
		namespace string
		sortField string
		order     string
		limit     int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List records of one namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := a.module.Query(cmd.Context(), folio.QueryOptions{
				Namespace: folio.Namespace(namespace),
				SortField: sortField,
				SortOrder: folio.SortOrder(order),
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			dateField := sortField
			if dateField == "" {
				dateField = "date"
			}
			summaries := make([]recordSummary, 0, len(records))
			for _, r := range records {
				summaries = append(summaries, summarize(r, dateField))
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tSLUG\tTITLE\tDATE")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Path, s.Slug, s.Title, s.Date)
			}
			return tw.Flush()
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&namespace, "namespace", "n", "blog", "blog, portfolio or resume")
	flags.StringVar(&sortField, "sort", "", "front-matter field to order by (default: canonical path order)")
	flags.StringVar(&order, "order", "asc", "asc or desc")
	flags.IntVar(&limit, "limit", 0, "maximum records (0 for all)")
	flags.BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}
