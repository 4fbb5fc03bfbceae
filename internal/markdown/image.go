package markdown

import (
	"fmt"
	"html"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/goliatone/go-folio/pkg/interfaces"
)

// DefaultImageMaxWidth is the display width images are resized to.
const DefaultImageMaxWidth = 590

// ImageConfig configures the responsive image stage.
type ImageConfig struct {
	MaxWidth        int
	BackgroundColor string
	// Captions renders the image title as a figure caption.
	Captions bool
	// LinkOriginal wraps the image in a link to the full-size source.
	LinkOriginal bool
	// Lazy adds loading="lazy".
	Lazy bool
}

var (
	// KindResponsiveImage is the node kind of ResponsiveImage.
	KindResponsiveImage = ast.NewNodeKind("ResponsiveImage")
	// KindImageFigure is the node kind of ImageFigure.
	KindImageFigure = ast.NewNodeKind("ImageFigure")
)

// ResponsiveImage replaces an image reference once the processor has produced variants.
type ResponsiveImage struct {
	ast.BaseInline
	Alt        string
	Title      string
	Descriptor *interfaces.ImageDescriptor
	// Fallback is set when no descriptor could be produced; Destination is used verbatim.
	Fallback    bool
	Destination string
}

func (n *ResponsiveImage) Kind() ast.NodeKind { return KindResponsiveImage }

func (n *ResponsiveImage) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Destination": n.Destination,
		"Fallback":    strconv.FormatBool(n.Fallback),
	}, nil)
}

// ImageFigure wraps a captioned image that stood alone in its paragraph.
type ImageFigure struct {
	ast.BaseBlock
	Caption string
}

func (n *ImageFigure) Kind() ast.NodeKind { return KindImageFigure }

func (n *ImageFigure) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Caption": n.Caption}, nil)
}

// Images resolves local images through an interfaces.ImageProcessor and
// renders responsive markup.
type Images struct {
	cfg       ImageConfig
	processor interfaces.ImageProcessor
}

// NewImages constructs the stage. A nil processor renders every image as a fallback.
func NewImages(cfg ImageConfig, processor interfaces.ImageProcessor) *Images {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = DefaultImageMaxWidth
	}
	return &Images{cfg: cfg, processor: processor}
}

func (s *Images) Name() string { return "images" }

func (s *Images) Transform(ctx *StageContext, doc *ast.Document) error {
	var images []*ast.Image
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := n.(*ast.Image); ok && entering {
			images = append(images, img)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		replacement := s.resolve(ctx, img)
		parent := img.Parent()
		if parent == nil {
			continue
		}
		parent.ReplaceChild(parent, img, replacement)

		if !s.cfg.Captions || replacement.Title == "" {
			continue
		}
		para, ok := parent.(*ast.Paragraph)
		if !ok || para.ChildCount() != 1 || para.Parent() == nil {
			continue
		}
		figure := &ImageFigure{Caption: replacement.Title}
		para.RemoveChild(para, replacement)
		figure.AppendChild(figure, replacement)
		para.Parent().ReplaceChild(para.Parent(), para, figure)
	}
	return nil
}

func (s *Images) resolve(ctx *StageContext, img *ast.Image) *ResponsiveImage {
	dest := string(img.Destination)
	out := &ResponsiveImage{
		Alt:         nodeText(img, ctx.Source),
		Title:       string(img.Title),
		Destination: dest,
	}

	if isRemote(dest) {
		out.Fallback = true
		return out
	}
	if s.processor == nil {
		out.Fallback = true
		ctx.Report(s.Name(), "no image processor configured for %s", dest)
		return out
	}

	desc, err := s.processor.Process(ctx, interfaces.ImageRequest{
		Path:     resolveImagePath(ctx.Path, dest),
		MaxWidth: s.cfg.MaxWidth,
	})
	if err != nil || desc == nil {
		out.Fallback = true
		if err == nil {
			err = fmt.Errorf("processor returned no descriptor")
		}
		ctx.Report(s.Name(), "image %s left unprocessed: %v", dest, err)
		return out
	}
	out.Descriptor = desc
	return out
}

func isRemote(dest string) bool {
	if strings.HasPrefix(dest, "//") {
		return true
	}
	u, err := url.Parse(dest)
	return err == nil && u.Scheme != ""
}

// resolveImagePath joins dest with the directory of the referencing record.
func resolveImagePath(recordPath, dest string) string {
	if u, err := url.Parse(dest); err == nil {
		dest = u.Path
	}
	if strings.HasPrefix(dest, "/") {
		return path.Clean(strings.TrimPrefix(dest, "/"))
	}
	return path.Join(path.Dir(recordPath), dest)
}

func (s *Images) RendererOptions() []renderer.Option {
	return []renderer.Option{
		renderer.WithNodeRenderers(util.Prioritized(&imageRenderer{cfg: s.cfg}, 100)),
	}
}

type imageRenderer struct {
	cfg ImageConfig
}

func (r *imageRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindResponsiveImage, r.renderImage)
	reg.Register(KindImageFigure, r.renderFigure)
}

func (r *imageRenderer) renderFigure(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ImageFigure)
	if entering {
		_, _ = w.WriteString(`<figure class="folio-image-figure">`)
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(`<figcaption class="folio-image-figcaption">` + html.EscapeString(n.Caption) + "</figcaption></figure>\n")
	return ast.WalkContinue, nil
}

func (r *imageRenderer) renderImage(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ResponsiveImage)
	if n.Fallback || n.Descriptor == nil {
		_, _ = w.WriteString(`<img src="` + attr(n.Destination) + `" alt="` + attr(n.Alt) + `"`)
		if n.Title != "" {
			_, _ = w.WriteString(` title="` + attr(n.Title) + `"`)
		}
		_, _ = w.WriteString(">")
		return ast.WalkSkipChildren, nil
	}

	d := n.Descriptor
	width := d.PresentWidth
	if width <= 0 || width > r.cfg.MaxWidth {
		width = r.cfg.MaxWidth
	}
	ratio := 100.0
	if d.AspectRatio > 0 {
		ratio = 100 / d.AspectRatio
	}

	_, _ = fmt.Fprintf(w, `<span class="folio-image-wrapper" style="position: relative; display: block; margin-left: auto; margin-right: auto; max-width: %dpx;">`, width)
	if r.cfg.LinkOriginal && d.OriginalSrc != "" {
		_, _ = w.WriteString(`<a class="folio-image-link" href="` + attr(d.OriginalSrc) + `" style="display: block" target="_blank" rel="noopener">`)
	}
	background := ""
	if r.cfg.BackgroundColor != "" {
		background = " background-color: " + attr(r.cfg.BackgroundColor) + ";"
	}
	_, _ = fmt.Fprintf(w, `<span class="folio-image-background" style="padding-bottom: %s%%; position: relative; bottom: 0; left: 0; display: block;%s"></span>`,
		strconv.FormatFloat(ratio, 'f', 4, 64), background)
	_, _ = w.WriteString(`<img class="folio-image" alt="` + attr(n.Alt) + `"`)
	if n.Title != "" {
		_, _ = w.WriteString(` title="` + attr(n.Title) + `"`)
	}
	_, _ = w.WriteString(` src="` + attr(d.Src) + `"`)
	if d.SrcSet != "" {
		_, _ = w.WriteString(` srcset="` + attr(d.SrcSet) + `"`)
	}
	if d.Sizes != "" {
		_, _ = w.WriteString(` sizes="` + attr(d.Sizes) + `"`)
	}
	if r.cfg.Lazy {
		_, _ = w.WriteString(` loading="lazy"`)
	}
	_, _ = w.WriteString(` style="width: 100%; height: 100%; margin: 0; vertical-align: middle; position: absolute; top: 0; left: 0;">`)
	if r.cfg.LinkOriginal && d.OriginalSrc != "" {
		_, _ = w.WriteString(`</a>`)
	}
	_, _ = w.WriteString(`</span>`)
	return ast.WalkSkipChildren, nil
}

func attr(value string) string {
	return html.EscapeString(value)
}
