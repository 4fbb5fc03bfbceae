package content

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRecordHTMLIsMemoized(t *testing.T) {
	var calls atomic.Int32
	record := NewRecord(RecordInput{
		Path:      "blog/a.md",
		Namespace: NamespaceBlog,
		Body:      []byte("# A"),
		Render: func(r *Record) (string, error) {
			calls.Add(1)
			return "<h1>" + string(r.RawBody[2:]) + "</h1>", nil
		},
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := record.HTML(); err != nil {
				t.Errorf("HTML: %v", err)
			}
		}()
	}
	wg.Wait()

	html, _ := record.HTML()
	if html != "<h1>A</h1>" {
		t.Fatalf("unexpected html %q", html)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single render, got %d", calls.Load())
	}
}

func TestRecordHTMLWithoutRenderer(t *testing.T) {
	record := NewRecord(RecordInput{Path: "blog/a.md", Namespace: NamespaceBlog})
	if _, err := record.HTML(); err == nil {
		t.Fatal("expected error without renderer")
	}
}

func TestRecordIDIsDeterministic(t *testing.T) {
	a := NewRecord(RecordInput{Path: "/blog/a.md", Namespace: NamespaceBlog})
	b := NewRecord(RecordInput{Path: "blog/a.md", Namespace: NamespaceBlog})
	if a.ID != b.ID {
		t.Fatalf("expected identical ids, got %s and %s", a.ID, b.ID)
	}
	if a.ID == RecordID(NamespacePortfolio, "blog/a.md") {
		t.Fatal("expected namespace to participate in the id")
	}
}

func TestRecordBodyIsCopied(t *testing.T) {
	body := []byte("original")
	record := NewRecord(RecordInput{Path: "blog/a.md", Namespace: NamespaceBlog, Body: body})
	body[0] = 'X'
	if string(record.RawBody) != "original" {
		t.Fatalf("raw body mutated: %q", record.RawBody)
	}
}

func TestRecordTitleFallsBackToPath(t *testing.T) {
	record := NewRecord(RecordInput{Path: "portfolio/my-side_project.md", Namespace: NamespacePortfolio})
	if got := record.Title(); got != "My Side Project" {
		t.Fatalf("expected fallback title, got %q", got)
	}
}

func TestRecordExcerpt(t *testing.T) {
	record := NewRecord(RecordInput{
		Path:      "blog/a.md",
		Namespace: NamespaceBlog,
		Render: func(*Record) (string, error) {
			return "<h2 id=\"intro\">Intro</h2>\n<p>Some <em>text</em> &amp; more words here.</p>", nil
		},
	})
	if got := record.Excerpt(0); got != "Intro Some text & more words here." {
		t.Fatalf("unexpected excerpt %q", got)
	}
	if got := record.Excerpt(10); !strings.HasSuffix(got, "…") || strings.HasPrefix(got, "<") {
		t.Fatalf("expected truncated plain excerpt, got %q", got)
	}

	described := NewRecord(RecordInput{Path: "blog/b.md", Namespace: NamespaceBlog, FrontMatter: Metadata{"description": "Short"}})
	if got := described.Excerpt(100); got != "Short" {
		t.Fatalf("expected description excerpt, got %q", got)
	}
}

func TestErrorTaxonomyUnwraps(t *testing.T) {
	cause := errors.New("permission denied")
	cases := []struct {
		err      error
		sentinel error
	}{
		{&SourceReadError{Namespace: NamespaceBlog, Root: "content/blog", Err: cause}, ErrSourceRead},
		{&MalformedFrontmatterError{Path: "blog/a.md", Reason: "missing closing marker"}, ErrMalformedFrontmatter},
		{&DuplicateSlugError{Slug: "dup", Paths: []string{"a", "b"}}, ErrDuplicateSlug},
		{&MalformedMathExpressionError{Expression: `\frac{1`}, ErrMalformedMath},
		{&NotFoundError{Slug: "x"}, ErrNotFound},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.sentinel) {
			t.Fatalf("expected %T to unwrap to %v", tc.err, tc.sentinel)
		}
	}
	if !errors.Is(cases[0].err, cause) {
		t.Fatal("expected SourceReadError to expose its cause")
	}
	if msg := cases[2].err.Error(); !strings.Contains(msg, "a, b") {
		t.Fatalf("expected both paths in message, got %q", msg)
	}
}
