package markdown

import (
	"slices"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Intro":                  "intro",
		"Getting Started":        "getting-started",
		"What's new in v2.0?":    "whats-new-in-v20",
		"  Trim me  ":            "trim-me",
		"Über Café":              "uber-cafe",
		"Crème brûlée":           "creme-brulee",
		"東京":                     "",
		"already-hyphenated":     "already-hyphenated",
		"Tabs\tand  double":      "tabs-and--double",
		"!!!":                    "",
		"C++ & Go: a comparison": "c--go-a-comparison",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

func headingIDs(t *testing.T, html string) []string {
	t.Helper()
	var ids []string
	parseHTML(t, html).Find("h2").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		ids = append(ids, id)
	})
	return ids
}

func TestHeadingAnchorsDisambiguateDuplicates(t *testing.T) {
	p := New(Config{}, []Stage{NewHeadingAnchors(HeadingConfig{})})
	result := render(t, p, "## Setup\n\ntext\n\n## Setup\n\n## Setup 1\n\n## Setup\n")

	want := []string{"setup", "setup-1", "setup-1-1", "setup-2"}
	if got := headingIDs(t, result.HTML); !slices.Equal(got, want) {
		t.Fatalf("expected ids %v, got %v", want, got)
	}
}

func TestHeadingAnchorsOnlyTouchConfiguredLevels(t *testing.T) {
	p := New(Config{}, []Stage{NewHeadingAnchors(HeadingConfig{})})
	doc := parseHTML(t, render(t, p, "# Title\n\n## Section\n\n### Detail\n").HTML)

	if _, ok := doc.Find("h1").Attr("id"); ok {
		t.Fatal("expected h1 without id")
	}
	if _, ok := doc.Find("h3").Attr("id"); ok {
		t.Fatal("expected h3 without id")
	}
	link := doc.Find("h2 > a.anchor.before")
	if link.Length() != 1 {
		t.Fatalf("expected one anchor link, got %d", link.Length())
	}
	if href, _ := link.Attr("href"); href != "#section" {
		t.Fatalf("expected href #section, got %q", href)
	}
	if label, _ := link.Attr("aria-label"); label != "section permalink" {
		t.Fatalf("unexpected aria-label %q", label)
	}
	if link.Find("svg").Length() != 1 {
		t.Fatal("expected default svg icon")
	}
}

func TestHeadingAnchorsUseInlineText(t *testing.T) {
	p := New(Config{}, []Stage{NewHeadingAnchors(HeadingConfig{Levels: []int{2, 3}, IconAfter: true})})
	doc := parseHTML(t, render(t, p, "## Using `go test` *quickly*\n\n### Next\n").HTML)

	if id, _ := doc.Find("h2").Attr("id"); id != "using-go-test-quickly" {
		t.Fatalf("unexpected id %q", id)
	}
	if id, _ := doc.Find("h3").Attr("id"); id != "next" {
		t.Fatalf("unexpected h3 id %q", id)
	}
	if doc.Find("h2 > a.anchor.after").Length() != 1 {
		t.Fatal("expected anchor placed after the text")
	}
}

func TestHeadingAnchorsUseASCIIIDs(t *testing.T) {
	p := New(Config{}, []Stage{NewHeadingAnchors(HeadingConfig{})})
	result := render(t, p, "## Café\n\n## 東京\n\n## 大阪\n")

	want := []string{"cafe", "section", "section-1"}
	if got := headingIDs(t, result.HTML); !slices.Equal(got, want) {
		t.Fatalf("expected ids %v, got %v", want, got)
	}
	href, _ := parseHTML(t, result.HTML).Find("h2 > a.anchor").First().Attr("href")
	if href != "#cafe" {
		t.Fatalf("unexpected href %q", href)
	}
}
