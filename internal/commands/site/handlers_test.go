package sitecmd

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-folio/internal/build"
	"github.com/goliatone/go-folio/internal/commands"
	"github.com/goliatone/go-folio/internal/config"
	"github.com/goliatone/go-folio/internal/content"
	"github.com/goliatone/go-folio/internal/output"
	"github.com/goliatone/go-folio/internal/routes"
	"github.com/goliatone/go-folio/internal/search"
)

func post(slug, title, date, body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte("---\ntype: blog\nslug: " + slug + "\ntitle: " + title + "\ndate: " + date + "\n---\n" + body + "\n")}
}

func siteTree() fstest.MapFS {
	return fstest.MapFS{
		"content/blog/a.md":      post("alpha", "Alpha", "2021-01-01", "Notes on goroutines."),
		"content/blog/b.md":      post("beta", "Beta", "2022-06-01", "Notes on channels."),
		"content/portfolio/p.md": {Data: []byte("---\ntype: portfolio\ntitle: Folio\nstartDate: 2020-01-01\n---\nA static site.\n")},
		"content/resume/r.md":    {Data: []byte("---\ntype: resume\ndate: 2023-01-01\n---\nResume.\n")},
	}
}

func newSite(t *testing.T, fsys fstest.MapFS) (*build.Builder, *output.MemoryWriter) {
	t.Helper()
	cfg := config.Default()
	cfg.Site.Title = "Jane Doe"
	cfg.Images.Enabled = false
	writer := output.NewMemoryWriter()
	b, err := build.New(&cfg,
		build.WithSource(fsys),
		build.WithWriter(writer),
		build.WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }),
	)
	if err != nil {
		t.Fatalf("build.New: %v", err)
	}
	return b, writer
}

func TestBuildSiteHandlerWritesPages(t *testing.T) {
	site, writer := newSite(t, siteTree())
	var result *build.Result
	h := NewBuildSiteHandler(site, nil)

	err := h.Execute(context.Background(), BuildSiteCommand{ResultCallback: func(r *build.Result) { result = r }})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result == nil || len(result.Records) != 4 {
		t.Fatalf("expected 4 records in result, got %+v", result)
	}
	if _, err := writer.ReadFile("blog/beta/index.html"); err != nil {
		t.Fatalf("expected post page to be written: %v", err)
	}
}

func TestBuildSiteHandlerFailOnExcluded(t *testing.T) {
	tree := siteTree()
	tree["content/blog/broken.md"] = &fstest.MapFile{Data: []byte("---\ntype: blog\ntitle: Broken\n")}
	site, _ := newSite(t, tree)

	h := NewBuildSiteHandler(site, nil)
	if err := h.Execute(context.Background(), BuildSiteCommand{}); err != nil {
		t.Fatalf("expected lenient build to succeed, got %v", err)
	}

	err := h.Execute(context.Background(), BuildSiteCommand{FailOnExcluded: true})
	if !errors.Is(err, content.ErrMalformedFrontmatter) {
		t.Fatalf("expected malformed front matter error, got %v", err)
	}
}

func TestBuildSiteHandlerDuplicateSlug(t *testing.T) {
	tree := siteTree()
	tree["content/blog/c.md"] = post("alpha", "Alpha again", "2023-01-01", "Dup.")
	site, _ := newSite(t, tree)

	err := NewBuildSiteHandler(site, nil).Execute(context.Background(), BuildSiteCommand{})
	if !errors.Is(err, content.ErrDuplicateSlug) {
		t.Fatalf("expected duplicate slug error, got %v", err)
	}
	if got := commands.TextCode(err); got != "DUPLICATE_SLUG" {
		t.Fatalf("expected DUPLICATE_SLUG, got %q", got)
	}
}

func TestListRoutesHandler(t *testing.T) {
	site, writer := newSite(t, siteTree())
	var list []routes.Route
	err := NewListRoutesHandler(site, nil).Execute(context.Background(), ListRoutesCommand{
		ResultCallback: func(r []routes.Route) { list = r },
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var paths []string
	for _, r := range list {
		paths = append(paths, r.Path)
	}
	want := []string{"/", "/blog", "/portfolio", "/resume", "/404", "/blog/beta", "/blog/alpha"}
	if len(paths) != len(want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, paths)
		}
	}
	if files := writer.Files(); len(files) != 0 {
		t.Fatalf("listing routes must not write, got %v", files)
	}
}

func TestQueryContentHandler(t *testing.T) {
	site, _ := newSite(t, siteTree())
	var records []*content.Record
	err := NewQueryContentHandler(site, nil).Execute(context.Background(), QueryContentCommand{
		Namespace:      "blog",
		SortField:      "date",
		SortOrder:      "desc",
		Limit:          1,
		ResultCallback: func(r []*content.Record) { records = r },
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(records) != 1 || records[0].Slug() != "beta" {
		t.Fatalf("expected newest post beta, got %v", records)
	}
}

func TestQueryContentValidation(t *testing.T) {
	cases := map[string]QueryContentCommand{
		"missing namespace": {},
		"unknown namespace": {Namespace: "notes"},
		"bad order":         {Namespace: "blog", SortOrder: "sideways"},
		"negative limit":    {Namespace: "blog", Limit: -1},
	}
	site, _ := newSite(t, siteTree())
	h := NewQueryContentHandler(site, nil)
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			err := h.Execute(context.Background(), msg)
			if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGetPostHandler(t *testing.T) {
	site, _ := newSite(t, siteTree())
	h := NewGetPostHandler(site, nil)

	var record *content.Record
	err := h.Execute(context.Background(), GetPostCommand{Slug: "alpha", ResultCallback: func(r *content.Record) { record = r }})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if record == nil || record.Path != "a.md" {
		t.Fatalf("expected a.md, got %+v", record)
	}

	err = h.Execute(context.Background(), GetPostCommand{Slug: "missing"})
	if !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := commands.TextCode(err); got != "CONTENT_NOT_FOUND" {
		t.Fatalf("expected CONTENT_NOT_FOUND, got %q", got)
	}
}

func TestSearchContentHandler(t *testing.T) {
	site, _ := newSite(t, siteTree())
	h := NewSearchContentHandler(site, nil)

	var hits []search.Hit
	err := h.Execute(context.Background(), SearchContentCommand{
		Query:          "channels",
		Namespace:      "blog",
		ResultCallback: func(r []search.Hit) { hits = r },
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(hits) != 1 || hits[0].Slug != "beta" {
		t.Fatalf("expected beta, got %+v", hits)
	}

	err = h.Execute(context.Background(), SearchContentCommand{Query: "   "})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation error for blank query, got %v", err)
	}
}

func TestHandlersRequireSite(t *testing.T) {
	err := NewBuildSiteHandler(nil, nil).Execute(context.Background(), BuildSiteCommand{})
	if !errors.Is(err, ErrSiteRequired) {
		t.Fatalf("expected ErrSiteRequired, got %v", err)
	}
}
