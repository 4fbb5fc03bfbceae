package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	folio "github.com/goliatone/go-folio"
)

func newWatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever content changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Duration("debounce", 0, "quiet period before a rebuild (default from config)")
	return cmd
}

// watch runs an initial build and then rebuilds until ctx is done. A failing
// initial build is reported but does not stop the watcher.
func (a *app) watch(ctx context.Context, out io.Writer) error {
	result, err := a.module.Build(ctx, false)
	printResult(out, result)
	if err != nil {
		fmt.Fprintf(out, "initial build failed: %v\n", err)
	}
	fmt.Fprintf(out, "watching %d directories\n", len(a.module.WatchDirs()))
	return a.module.Watch(ctx, func(result *folio.BuildResult, err error) {
		if err != nil {
			fmt.Fprintf(out, "rebuild failed: %v\n", err)
			return
		}
		printResult(out, result)
	})
}
