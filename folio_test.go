package folio_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	folio "github.com/goliatone/go-folio"
)

func testTree() fstest.MapFS {
	return fstest.MapFS{
		"content/blog/first.md":     {Data: []byte("---\ntype: blog\nslug: first\ntitle: First Post\ndate: 2021-07-09\n---\nHello from Go.\n")},
		"content/blog/second.md":    {Data: []byte("---\ntype: blog\nslug: second\ntitle: Second Post\ndate: 2022-02-01\n---\nMore about templates.\n")},
		"content/portfolio/site.md": {Data: []byte("---\ntype: portfolio\ntitle: Site\nstartDate: 2020-05-01\n---\nThis site.\n")},
		"content/resume/resume.md":  {Data: []byte("---\ntype: resume\ndate: 2023-01-01\n---\nWork history.\n")},
	}
}

func newModule(t *testing.T, tree fstest.MapFS) *folio.Module {
	t.Helper()
	cfg := folio.DefaultConfig()
	cfg.Site.Title = "Jane Doe"
	cfg.Build.DryRun = true
	cfg.Images.Enabled = false
	m, err := folio.New(cfg,
		folio.WithSource(tree),
		folio.WithClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }),
	)
	if err != nil {
		t.Fatalf("folio.New: %v", err)
	}
	return m
}

func TestModuleBuild(t *testing.T) {
	m := newModule(t, testTree())
	result, err := m.Build(context.Background(), true)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Records) != 4 || len(result.Excluded) != 0 {
		t.Fatalf("expected 4 records and no exclusions, got %d/%d", len(result.Records), len(result.Excluded))
	}
	if !result.DryRun {
		t.Fatal("expected dry run result")
	}
}

func TestModuleQueries(t *testing.T) {
	m := newModule(t, testTree())
	ctx := context.Background()

	posts, err := m.Query(ctx, folio.QueryOptions{Namespace: folio.NamespaceBlog, SortField: "date", SortOrder: folio.SortDesc})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(posts) != 2 || posts[0].Slug() != "second" {
		t.Fatalf("expected newest post first, got %v", posts)
	}

	post, err := m.Post(ctx, "first")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if post.Title() != "First Post" {
		t.Fatalf("expected First Post, got %q", post.Title())
	}

	if _, err := m.Post(ctx, "nope"); !errors.Is(err, folio.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := m.Routes(ctx)
	if err != nil {
		t.Fatalf("Routes: %v", err)
	}
	if last := list[len(list)-1]; last.Path != "/blog/first" {
		t.Fatalf("expected oldest post route last, got %s", last.Path)
	}

	hits, err := m.Search(ctx, "templates", "", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Slug != "second" {
		t.Fatalf("expected second post hit, got %+v", hits)
	}
}

func TestModuleStrictBuildFailsOnExcluded(t *testing.T) {
	tree := testTree()
	tree["content/blog/bad.md"] = &fstest.MapFile{Data: []byte("---\ntype: blog\ntitle: No slug\ndate: 2020-01-01\n---\nBody\n")}
	m := newModule(t, tree)

	result, err := m.Build(context.Background(), true)
	if !errors.Is(err, folio.ErrMalformedFrontmatter) {
		t.Fatalf("expected malformed front matter, got %v", err)
	}
	if result == nil || len(result.Excluded) != 1 {
		t.Fatalf("expected the result to report one exclusion, got %+v", result)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := folio.DefaultConfig()
	cfg.Markdown.Math.Strict = "loud"
	if _, err := folio.New(cfg); err == nil {
		t.Fatal("expected invalid math policy to fail")
	}
}

func TestWatchDirs(t *testing.T) {
	cfg := folio.DefaultConfig()
	cfg.Content.Dir = "site"
	m, err := folio.New(cfg, folio.WithSource(testTree()))
	if err != nil {
		t.Fatalf("folio.New: %v", err)
	}
	dirs := m.WatchDirs()
	if len(dirs) != 3 || dirs[0] != "site/content/blog" {
		t.Fatalf("unexpected watch dirs %v", dirs)
	}
}

func TestNewLoggerProvider(t *testing.T) {
	cfg := folio.DefaultConfig()
	var buf bytes.Buffer
	provider, err := folio.NewLoggerProvider(cfg, &buf)
	if err != nil {
		t.Fatalf("console provider: %v", err)
	}
	provider.GetLogger("folio.build").Info("build.completed", "records", 3)
	if !strings.Contains(buf.String(), "build.completed") {
		t.Fatalf("expected console entry, got %q", buf.String())
	}

	cfg.Logging.Provider = "gologger"
	cfg.Logging.Format = "json"
	if _, err := folio.NewLoggerProvider(cfg, nil); err != nil {
		t.Fatalf("gologger provider: %v", err)
	}

	cfg.Logging.Provider = "syslog"
	if _, err := folio.NewLoggerProvider(cfg, nil); !errors.Is(err, folio.ErrLoggingProviderUnknown) {
		t.Fatalf("expected ErrLoggingProviderUnknown, got %v", err)
	}
}
