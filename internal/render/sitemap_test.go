package render

import (
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-folio/pkg/interfaces"
)

func TestBuildSitemap(t *testing.T) {
	fallback := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	pages := []*interfaces.RenderedPage{
		{Path: "/blog/b", Template: "blog-post", LastModified: time.Date(2021, 7, 9, 0, 0, 0, 0, time.UTC)},
		{Path: "/", Template: "index"},
		{Path: "/404", Template: "404"},
		{Path: "/blog/gone", Template: "404", NotFound: true},
		{Path: "/", Template: "index"},
	}
	got := BuildSitemap("https://jane.dev/", pages, fallback)

	if strings.Count(got, "<url>") != 2 {
		t.Fatalf("expected 2 entries, got\n%s", got)
	}
	if strings.Contains(got, "404") || strings.Contains(got, "gone") {
		t.Fatalf("expected not-found pages excluded, got\n%s", got)
	}
	root := strings.Index(got, "<loc>https://jane.dev/</loc>")
	post := strings.Index(got, "<loc>https://jane.dev/blog/b</loc>")
	if root < 0 || post < 0 || root > post {
		t.Fatalf("expected sorted locations, got\n%s", got)
	}
	if !strings.Contains(got, "<lastmod>2021-07-09T00:00:00Z</lastmod>") || !strings.Contains(got, "<lastmod>2024-01-02T03:04:05Z</lastmod>") {
		t.Fatalf("unexpected lastmod values\n%s", got)
	}
}

func TestBuildRobots(t *testing.T) {
	got := BuildRobots("", true)
	if !strings.Contains(got, "Sitemap: http://localhost/sitemap.xml") {
		t.Fatalf("expected localhost fallback, got %q", got)
	}
	if strings.Contains(BuildRobots("https://jane.dev", false), "Sitemap") {
		t.Fatal("expected no sitemap line")
	}
}
