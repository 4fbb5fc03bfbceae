package markdown

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark/ast"
)

func render(t *testing.T, p *Pipeline, body string) *Result {
	t.Helper()
	result, err := p.Render(context.Background(), "content/blog/post.md", []byte(body))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return result
}

func parseHTML(t *testing.T, fragment string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestPipelineHelloWorld(t *testing.T) {
	p := New(Config{}, []Stage{NewHeadingAnchors(HeadingConfig{Icon: "#"})})

	result := render(t, p, "## Intro\nSome *text*.")

	want := `<h2 id="intro"><a href="#intro" aria-label="intro permalink" class="anchor before">#</a>Intro</h2>` + "\n" +
		`<p>Some <em>text</em>.</p>` + "\n"
	if result.HTML != want {
		t.Fatalf("unexpected html\nwant %q\ngot  %q", want, result.HTML)
	}
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	var calls []string
	p := New(Config{}, []Stage{
		recordingStage{name: "first", calls: &calls},
		recordingStage{name: "second", calls: &calls},
		recordingStage{name: "third", calls: &calls},
	})
	render(t, p, "text")

	want := []string{"first", "second", "third"}
	if !slices.Equal(calls, want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	if !slices.Equal(p.StageNames(), want) {
		t.Fatalf("expected stage names %v, got %v", want, p.StageNames())
	}
}

func TestPipelineIsIdempotent(t *testing.T) {
	p := New(Config{ExternalSchemes: DefaultExternalSchemes}, DefaultStages(StageOptions{}))
	body := "## Setup\n\nSee [docs](https://example.com) and $x^2$.\n\n```go\nfunc main() {}\n```\n\n## Setup\n"

	first := render(t, p, body)
	second := render(t, p, body)
	if first.HTML != second.HTML {
		t.Fatalf("expected identical output\nfirst  %q\nsecond %q", first.HTML, second.HTML)
	}
}

func TestPipelineRewritesExternalLinks(t *testing.T) {
	p := New(Config{ExternalSchemes: DefaultExternalSchemes}, nil)
	result := render(t, p, "[out](https://example.com) [in](/blog/other) [mail](mailto:me@example.com)")
	doc := parseHTML(t, result.HTML)

	external := doc.Find(`a[href="https://example.com"]`)
	if target, _ := external.Attr("target"); target != "_blank" {
		t.Fatalf("expected target=_blank, got %q", target)
	}
	if rel, _ := external.Attr("rel"); rel != "nofollow noopener noreferrer" {
		t.Fatalf("unexpected rel %q", rel)
	}
	for _, selector := range []string{`a[href="/blog/other"]`, `a[href="mailto:me@example.com"]`} {
		if _, ok := doc.Find(selector).Attr("target"); ok {
			t.Fatalf("expected %s to stay untouched", selector)
		}
	}
}

func TestPipelineSafeModeDropsRawHTML(t *testing.T) {
	p := New(Config{SafeMode: true}, nil)
	result := render(t, p, "<div class=\"x\">raw</div>\n")
	if strings.Contains(result.HTML, `<div class="x">`) {
		t.Fatalf("expected raw html to be omitted, got %q", result.HTML)
	}
}

func TestPipelineHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(Config{}, DefaultStages(StageOptions{}))
	if _, err := p.Render(ctx, "a.md", []byte("text")); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestCollectExtensionsIgnoresUnknownNames(t *testing.T) {
	exts := collectExtensions([]string{"table", "TABLE", "nope", " footnote "})
	if len(exts) != 2 {
		t.Fatalf("expected 2 extensions, got %d", len(exts))
	}
}

type recordingStage struct {
	name  string
	calls *[]string
}

func (s recordingStage) Name() string { return s.name }

func (s recordingStage) Transform(*StageContext, *ast.Document) error {
	*s.calls = append(*s.calls, s.name)
	return nil
}
