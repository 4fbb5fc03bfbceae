package main

import (
	"github.com/spf13/cobra"
)

func newBuildCommand(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the site into the output directory",
		Long: `Build enumerates every content root, derives the HTML of each record and
renders every route. Records with malformed front matter are excluded and
reported; pass --strict to turn exclusions into a failing exit status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.module.Build(cmd.Context(), strict)
			printResult(cmd.OutOrStdout(), result)
			return err
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any record is excluded")
	return cmd
}
