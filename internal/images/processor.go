// Package images is the default image-processing collaborator: it decodes
// source images from the content tree, writes resized renditions through an
// output.Writer and returns responsive descriptors for the markdown pipeline.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io/fs"
	"math"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/output"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// ErrUnsupportedImage is returned when a source cannot be decoded.
var ErrUnsupportedImage = errors.New("images: unsupported image")

// DefaultFactors are the display width multiples rendered for srcset.
var DefaultFactors = []float64{0.25, 0.5, 1, 1.5, 2, 3}

const (
	DefaultOutputDir = "static/images"
	DefaultQuality   = 85
)

// Config tunes the renditions.
type Config struct {
	// Factors multiply the display width to produce srcset candidates.
	Factors []float64
	// OutputDir is the output-relative directory renditions are written to.
	OutputDir string
	// Quality is the JPEG encoder quality.
	Quality int
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the processor logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(p *Processor) {
		p.logger = logging.OrNoOp(logger)
	}
}

// Processor implements interfaces.ImageProcessor. It is safe for concurrent
// use; concurrent requests for the same rendition share one decode.
type Processor struct {
	source fs.FS
	writer output.Writer
	cfg    Config
	logger interfaces.Logger

	group singleflight.Group
	mu    sync.RWMutex
	done  map[string]*interfaces.ImageDescriptor
}

var _ interfaces.ImageProcessor = (*Processor)(nil)

// NewProcessor reads sources from source and writes renditions to writer.
func NewProcessor(source fs.FS, writer output.Writer, cfg Config, opts ...Option) *Processor {
	if len(cfg.Factors) == 0 {
		cfg.Factors = DefaultFactors
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	cfg.OutputDir = strings.Trim(path.Clean(cfg.OutputDir), "/")
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultQuality
	}
	if writer == nil {
		writer = output.NoopWriter{}
	}
	p := &Processor{
		source: source,
		writer: writer,
		cfg:    cfg,
		logger: logging.NoOp(),
		done:   map[string]*interfaces.ImageDescriptor{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process returns the descriptor for req, producing renditions on first use.
func (p *Processor) Process(ctx context.Context, req interfaces.ImageRequest) (*interfaces.ImageDescriptor, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req.Path = strings.TrimPrefix(path.Clean(req.Path), "/")
	if req.MaxWidth <= 0 {
		return nil, fmt.Errorf("images: max width must be positive, got %d", req.MaxWidth)
	}
	key := req.Path + "@" + strconv.Itoa(req.MaxWidth)

	p.mu.RLock()
	cached, ok := p.done[key]
	p.mu.RUnlock()
	if ok {
		clone := *cached
		return &clone, nil
	}

	value, err, _ := p.group.Do(key, func() (any, error) {
		p.mu.RLock()
		cached, ok := p.done[key]
		p.mu.RUnlock()
		if ok {
			return cached, nil
		}
		desc, err := p.process(ctx, req)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.done[key] = desc
		p.mu.Unlock()
		return desc, nil
	})
	if err != nil {
		return nil, err
	}
	clone := *value.(*interfaces.ImageDescriptor)
	return &clone, nil
}

func (p *Processor) process(ctx context.Context, req interfaces.ImageRequest) (*interfaces.ImageDescriptor, error) {
	if p.source == nil {
		return nil, fmt.Errorf("images: no source filesystem configured")
	}
	data, err := fs.ReadFile(p.source, req.Path)
	if err != nil {
		return nil, fmt.Errorf("images: read %s: %w", req.Path, err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedImage, req.Path, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %s: empty image", ErrUnsupportedImage, req.Path)
	}
	present := min(req.MaxWidth, width)

	ext := path.Ext(req.Path)
	base := strings.TrimSuffix(path.Base(req.Path), ext)
	dir := path.Join(p.cfg.OutputDir, output.Checksum(data)[:12])

	original := path.Join(dir, base+strings.ToLower(ext))
	if err := output.WriteBytes(ctx, p.writer, original, output.CategoryImage, "image/"+format, data); err != nil {
		return nil, fmt.Errorf("images: write %s: %w", original, err)
	}

	variantExt, contentType := ".png", "image/png"
	if format == "jpeg" {
		variantExt, contentType = ".jpg", "image/jpeg"
	}

	widths := variantWidths(present, width, p.cfg.Factors)
	srcset := make([]string, 0, len(widths))
	src := ""
	for _, w := range widths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		encoded, err := p.encode(resize(img, w), format)
		if err != nil {
			return nil, fmt.Errorf("images: encode %s at %dpx: %w", req.Path, w, err)
		}
		target := path.Join(dir, base+"-"+strconv.Itoa(w)+variantExt)
		if err := output.WriteBytes(ctx, p.writer, target, output.CategoryImage, contentType, encoded); err != nil {
			return nil, fmt.Errorf("images: write %s: %w", target, err)
		}
		url := "/" + target
		srcset = append(srcset, url+" "+strconv.Itoa(w)+"w")
		if w == present {
			src = url
		}
	}

	p.logger.Debug("images.processed", "path", req.Path, "format", format, "width", width, "height", height, "variants", len(widths))

	return &interfaces.ImageDescriptor{
		Src:          src,
		SrcSet:       strings.Join(srcset, ", "),
		Sizes:        fmt.Sprintf("(max-width: %dpx) 100vw, %dpx", present, present),
		OriginalSrc:  "/" + original,
		Width:        width,
		Height:       height,
		PresentWidth: present,
		AspectRatio:  float64(width) / float64(height),
	}, nil
}

// variantWidths multiplies present by each factor, drops widths larger than
// the source and makes sure both the display width and, when larger
// candidates were dropped, the source width are included.
func variantWidths(present, source int, factors []float64) []int {
	widths := []int{present}
	truncated := false
	for _, factor := range factors {
		w := int(math.Round(float64(present) * factor))
		if w <= 0 {
			continue
		}
		if w > source {
			truncated = true
			continue
		}
		widths = append(widths, w)
	}
	if truncated {
		widths = append(widths, source)
	}
	slices.Sort(widths)
	return slices.Compact(widths)
}

func resize(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	if width >= bounds.Dx() {
		return img
	}
	height := max(1, int(math.Round(float64(bounds.Dy())*float64(width)/float64(bounds.Dx()))))
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func (p *Processor) encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if format == "jpeg" {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.cfg.Quality})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
