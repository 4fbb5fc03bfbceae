package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	folio "github.com/goliatone/go-folio"
)

// app carries the state shared by every subcommand once the configuration
// has been loaded.
type app struct {
	cfgFile string
	out     io.Writer
	errOut  io.Writer

	cfg    *folio.Config
	module *folio.Module
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "folio",
		Short: "Build a portfolio site from markdown content",
		Long: `folio turns a tree of markdown files (blog posts, portfolio entries and a
resume) into a static site.

Example usage:
  folio build                  # build into ./public
  folio routes                 # list the routes the build would render
  folio query --namespace blog --sort date --order desc
  folio search goroutines
  folio serve --watch          # preview with rebuilds on change`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./folio.yaml)")
	flags.String("content-dir", ".", "directory holding the content roots")
	flags.String("output", "public", "output directory")
	flags.String("base-url", "http://localhost:8080", "absolute base URL used for canonical links and the sitemap")
	flags.Int("workers", 4, "records derived in parallel")
	flags.Bool("clean", false, "remove the output directory before writing")
	flags.Bool("dry-run", false, "render without writing files")
	flags.Bool("incremental", true, "skip artifacts whose content did not change")
	flags.String("math-strict", "ignore", "malformed math policy: ignore, warn or error")
	flags.String("theme", "", "go-theme directory overriding templates and adding assets")
	flags.String("theme-variant", "", "theme variant to select")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "console", "log format (gologger provider)")
	flags.String("log-provider", "console", "logger provider: console or gologger")

	root.AddCommand(
		newBuildCommand(a),
		newRoutesCommand(a),
		newQueryCommand(a),
		newSearchCommand(a),
		newWatchCommand(a),
		newServeCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := folio.LoadConfig(a.cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	provider, err := folio.NewLoggerProvider(*cfg, a.errOut)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	module, err := folio.New(*cfg, folio.WithLoggerProvider(provider))
	if err != nil {
		return err
	}
	a.cfg, a.module = cfg, module
	return nil
}

func printResult(w io.Writer, result *folio.BuildResult) {
	if result == nil {
		return
	}
	for _, failure := range result.Excluded {
		fmt.Fprintf(w, "excluded %s: %v\n", failure.Path, failure.Err)
	}
	for _, diag := range result.Diagnostics {
		fmt.Fprintln(w, diag.String())
	}
	mode := "built"
	if result.DryRun {
		mode = "rendered (dry run)"
	}
	fmt.Fprintf(w, "%s %d records, %d pages: %d written, %d unchanged, %d removed in %s\n",
		mode, len(result.Records), len(result.Pages), len(result.Written), len(result.Skipped),
		len(result.Removed), result.Duration.Round(time.Millisecond))
}
