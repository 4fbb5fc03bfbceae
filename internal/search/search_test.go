package search

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-folio/internal/content"
)

func body(r *content.Record) (string, error) {
	return string(r.RawBody), nil
}

func fixtureIndex(t *testing.T) *content.Index {
	t.Helper()
	records := []*content.Record{
		content.NewRecord(content.RecordInput{
			Path:        "content/blog/gophers.md",
			Namespace:   content.NamespaceBlog,
			FrontMatter: content.Metadata{"type": "blog", "slug": "gophers", "title": "Concurrency with gophers"},
			Body:        []byte("<p>Channels and goroutines make pipelines easy.</p>"),
			Render:      body,
		}),
		content.NewRecord(content.RecordInput{
			Path:        "content/blog/css.md",
			Namespace:   content.NamespaceBlog,
			FrontMatter: content.Metadata{"type": "blog", "slug": "css", "title": "Styling notes"},
			Body:        []byte("<p>Grid layouts and pipelines of selectors.</p>"),
			Render:      body,
		}),
		content.NewRecord(content.RecordInput{
			Path:        "content/portfolio/relay.md",
			Namespace:   content.NamespacePortfolio,
			FrontMatter: content.Metadata{"type": "portfolio", "title": "Relay server"},
			Body:        []byte("<p>A concurrency heavy relay.</p>"),
			Render:      body,
		}),
		content.NewRecord(content.RecordInput{
			Path:        "content/blog/misfiled.md",
			Namespace:   content.NamespaceBlog,
			FrontMatter: content.Metadata{"type": "portfolio", "title": "Concurrency misfiled"},
			Render:      body,
		}),
	}
	idx, err := content.NewIndex(records)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

func TestSearchRanksTitleMatches(t *testing.T) {
	ctx := context.Background()
	index, err := NewIndex(ctx, fixtureIndex(t))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer index.Close()

	count, err := index.Count()
	if err != nil || count != 3 {
		t.Fatalf("expected 3 documents, got %d (%v)", count, err)
	}

	hits, err := index.Search(ctx, Request{Query: "concurrency"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %+v", hits)
	}
	if hits[0].Slug != "gophers" || hits[0].Namespace != "blog" {
		t.Fatalf("expected title match first, got %+v", hits[0])
	}
	if hits[1].Path != "content/portfolio/relay.md" {
		t.Fatalf("unexpected second hit %+v", hits[1])
	}
}

func TestSearchFiltersNamespace(t *testing.T) {
	ctx := context.Background()
	index, err := NewIndex(ctx, fixtureIndex(t))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer index.Close()

	hits, err := index.Search(ctx, Request{Query: "pipelines", Namespace: content.NamespaceBlog, Limit: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Namespace != "blog" {
		t.Fatalf("expected one blog hit, got %+v", hits)
	}

	if _, err := index.Search(ctx, Request{Query: "x", Namespace: "notes"}); !errors.Is(err, content.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := index.Search(ctx, Request{Query: "  "}); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}
