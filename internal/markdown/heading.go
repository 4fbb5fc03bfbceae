package markdown

import (
	"html"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultAnchorIcon is the link glyph placed inside heading anchors.
const DefaultAnchorIcon = `<svg aria-hidden="true" height="20" version="1.1" viewBox="0 0 16 16" width="20"><path fill="currentColor" fill-rule="evenodd" d="M4 9h1v1H4c-1.5 0-3-1.69-3-3.5S2.55 3 4 3h4c1.45 0 3 1.69 3 3.5 0 1.41-.91 2.72-2 3.25V8.59c.58-.45 1-1.27 1-2.09C10 5.22 8.98 4 8 4H4c-.98 0-2 1.22-2 2.5S3 9 4 9zm9-3h-1v1h1c1 0 2 1.22 2 2.5S13.98 12 13 12H9c-.98 0-2-1.22-2-2.5 0-.83.42-1.64 1-2.09V6.25c-1.09.53-2 1.84-2 3.25C6 11.31 7.55 13 9 13h4c1.45 0 3-1.69 3-3.5S14.5 6 13 6z"></path></svg>`

// HeadingConfig configures the heading anchor stage.
type HeadingConfig struct {
	// Levels lists the heading levels that receive anchors. Defaults to [2].
	Levels []int
	// Icon is raw HTML placed inside the anchor link.
	Icon string
	// Class is the anchor link class. Defaults to "anchor".
	Class string
	// IconAfter places the link after the heading text instead of before it.
	IconAfter bool
}

// KindAnchorLink is the node kind of AnchorLink.
var KindAnchorLink = ast.NewNodeKind("AnchorLink")

// AnchorLink is the permalink injected into a heading.
type AnchorLink struct {
	ast.BaseInline
	ID    string
	Icon  string
	Class string
}

func (n *AnchorLink) Kind() ast.NodeKind { return KindAnchorLink }

func (n *AnchorLink) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"ID": n.ID}, nil)
}

// HeadingAnchors assigns stable ids to headings and links them to themselves.
type HeadingAnchors struct {
	cfg HeadingConfig
}

// NewHeadingAnchors constructs the stage.
func NewHeadingAnchors(cfg HeadingConfig) *HeadingAnchors {
	if len(cfg.Levels) == 0 {
		cfg.Levels = []int{2}
	}
	if cfg.Icon == "" {
		cfg.Icon = DefaultAnchorIcon
	}
	if cfg.Class == "" {
		cfg.Class = "anchor"
	}
	return &HeadingAnchors{cfg: cfg}
}

func (s *HeadingAnchors) Name() string { return "heading-anchors" }

// Transform sets an id attribute on every configured heading and inserts an
// AnchorLink. Repeated ids get a numeric suffix in document order: setup,
// setup-1, setup-2.
func (s *HeadingAnchors) Transform(ctx *StageContext, doc *ast.Document) error {
	var headings []*ast.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			if slices.Contains(s.cfg.Levels, h.Level) {
				headings = append(headings, h)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	ids := newIDSet()
	for _, h := range headings {
		id := ids.unique(Slugify(nodeText(h, ctx.Source)))
		h.SetAttributeString("id", []byte(id))

		anchor := &AnchorLink{ID: id, Icon: s.cfg.Icon, Class: s.cfg.Class}
		if s.cfg.IconAfter {
			h.AppendChild(h, anchor)
		} else if first := h.FirstChild(); first != nil {
			h.InsertBefore(h, first, anchor)
		} else {
			h.AppendChild(h, anchor)
		}
	}
	return nil
}

func (s *HeadingAnchors) RendererOptions() []renderer.Option {
	return []renderer.Option{
		renderer.WithNodeRenderers(util.Prioritized(&anchorRenderer{after: s.cfg.IconAfter}, 100)),
	}
}

type anchorRenderer struct {
	after bool
}

func (r *anchorRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAnchorLink, r.render)
}

func (r *anchorRenderer) render(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*AnchorLink)
	position := "before"
	if r.after {
		position = "after"
	}
	id := html.EscapeString(n.ID)
	_, _ = w.WriteString(`<a href="#` + id + `" aria-label="` + id + ` permalink" class="` +
		html.EscapeString(n.Class) + ` ` + position + `">`)
	_, _ = w.WriteString(n.Icon)
	_, _ = w.WriteString(`</a>`)
	return ast.WalkSkipChildren, nil
}

// Slugify derives an anchor id. Accents are folded to ASCII, the text is
// lowercased, each whitespace character becomes a hyphen and anything else
// outside a-z and 0-9 is dropped.
func Slugify(value string) string {
	folded, _, err := transform.String(foldAccents(), strings.TrimSpace(value))
	if err != nil {
		folded = strings.TrimSpace(value)
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('-')
		case r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// foldAccents strips combining marks. Chains keep state, so each call gets its own.
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

type idSet struct {
	seen map[string]int
}

func newIDSet() *idSet {
	return &idSet{seen: map[string]int{}}
}

func (s *idSet) unique(base string) string {
	if base == "" {
		base = "section"
	}
	if _, taken := s.seen[base]; !taken {
		s.seen[base] = 0
		return base
	}
	for {
		s.seen[base]++
		candidate := base + "-" + strconv.Itoa(s.seen[base])
		if _, taken := s.seen[candidate]; !taken {
			s.seen[candidate] = 0
			return candidate
		}
	}
}
