package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-folio/internal/output"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var watchChanges bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the site and serve the output directory",
		Long: `Serve performs a build, then serves the output directory over HTTP with
caching disabled. Unknown paths answer with the rendered 404 page. With
--watch the site is rebuilt whenever content changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			if a.cfg.Build.DryRun {
				return errors.New("serve needs written output; drop --dry-run")
			}

			g, gctx := errgroup.WithContext(ctx)
			if watchChanges {
				g.Go(func() error { return a.watch(gctx, out) })
			} else {
				result, err := a.module.Build(ctx, false)
				printResult(out, result)
				if err != nil {
					return err
				}
			}

			server := &http.Server{
				Addr:              a.cfg.Serve.Addr,
				Handler:           previewHandler(a.cfg.Build.OutputDir),
				ReadHeaderTimeout: 10 * time.Second,
			}
			g.Go(func() error {
				fmt.Fprintf(out, "serving %s on http://%s\n", a.cfg.Build.OutputDir, a.cfg.Serve.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().BoolVar(&watchChanges, "watch", false, "rebuild when content changes")
	return cmd
}

// previewHandler serves dir without caching. Directories without an
// index.html and missing files answer 404 with the rendered not-found page.
func previewHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		name := path.Clean("/" + r.URL.Path)
		target := filepath.Join(dir, filepath.FromSlash(name))
		if strings.HasSuffix(r.URL.Path, "/") || name == "/" {
			target = filepath.Join(target, "index.html")
		}
		if info, err := os.Stat(target); err != nil || (info.IsDir() && !exists(filepath.Join(target, "index.html"))) {
			notFound(w, dir)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter, dir string) {
	page, err := os.ReadFile(filepath.Join(dir, output.NotFoundFile))
	if err != nil {
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(page)
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
