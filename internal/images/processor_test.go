package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io/fs"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-folio/internal/output"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

func encodeTestImage(t *testing.T, w, h int, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	var err error
	if format == "jpeg" {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

type countingWriter struct {
	*output.MemoryWriter
	writes atomic.Int32
}

func (w *countingWriter) WriteFile(ctx context.Context, req output.WriteFileRequest) error {
	w.writes.Add(1)
	return w.MemoryWriter.WriteFile(ctx, req)
}

func TestVariantWidths(t *testing.T) {
	cases := []struct {
		present, source int
		want            []int
	}{
		{590, 1200, []int{148, 295, 590, 885, 1180, 1200}},
		{300, 300, []int{75, 150, 300}},
		{590, 4000, []int{148, 295, 590, 885, 1180, 1770}},
	}
	for _, tc := range cases {
		if got := variantWidths(tc.present, tc.source, DefaultFactors); !slices.Equal(got, tc.want) {
			t.Fatalf("variantWidths(%d, %d) = %v, want %v", tc.present, tc.source, got, tc.want)
		}
	}
}

func TestProcessorProducesResponsiveDescriptor(t *testing.T) {
	src := fstest.MapFS{
		"content/blog/img/chart.png": {Data: encodeTestImage(t, 1200, 600, "png")},
	}
	writer := output.NewMemoryWriter()
	p := NewProcessor(src, writer, Config{})

	desc, err := p.Process(context.Background(), interfaces.ImageRequest{Path: "content/blog/img/chart.png", MaxWidth: 590})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if desc.Width != 1200 || desc.Height != 600 || desc.PresentWidth != 590 {
		t.Fatalf("unexpected dimensions %+v", desc)
	}
	if desc.AspectRatio != 2 {
		t.Fatalf("unexpected aspect ratio %v", desc.AspectRatio)
	}
	if !strings.HasPrefix(desc.Src, "/static/images/") || !strings.HasSuffix(desc.Src, "/chart-590.png") {
		t.Fatalf("unexpected src %q", desc.Src)
	}
	if !strings.HasSuffix(desc.OriginalSrc, "/chart.png") {
		t.Fatalf("unexpected original %q", desc.OriginalSrc)
	}
	if desc.Sizes != "(max-width: 590px) 100vw, 590px" {
		t.Fatalf("unexpected sizes %q", desc.Sizes)
	}
	candidates := strings.Split(desc.SrcSet, ", ")
	if len(candidates) != 6 || !strings.HasSuffix(candidates[0], " 148w") || !strings.HasSuffix(candidates[5], " 1200w") {
		t.Fatalf("unexpected srcset %q", desc.SrcSet)
	}

	files := writer.Files()
	if len(files) != 7 {
		t.Fatalf("expected original plus 6 renditions, got %v", files)
	}
	data, err := writer.ReadFile(strings.TrimPrefix(desc.Src, "/"))
	if err != nil {
		t.Fatalf("read rendition: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode rendition: %v", err)
	}
	if format != "png" || cfg.Width != 590 || cfg.Height != 295 {
		t.Fatalf("unexpected rendition %s %dx%d", format, cfg.Width, cfg.Height)
	}
	if writer.Category(files[0]) != output.CategoryImage {
		t.Fatalf("unexpected category %q", writer.Category(files[0]))
	}
}

func TestProcessorKeepsJPEGFormat(t *testing.T) {
	src := fstest.MapFS{"photo.jpg": {Data: encodeTestImage(t, 400, 400, "jpeg")}}
	p := NewProcessor(src, output.NewMemoryWriter(), Config{Factors: []float64{1}})

	desc, err := p.Process(context.Background(), interfaces.ImageRequest{Path: "/photo.jpg", MaxWidth: 590})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if desc.PresentWidth != 400 || !strings.HasSuffix(desc.Src, "/photo-400.jpg") {
		t.Fatalf("unexpected descriptor %+v", desc)
	}
	if desc.SrcSet != desc.Src+" 400w" {
		t.Fatalf("unexpected srcset %q", desc.SrcSet)
	}
}

func TestProcessorDeduplicatesConcurrentRequests(t *testing.T) {
	src := fstest.MapFS{"a.png": {Data: encodeTestImage(t, 200, 100, "png")}}
	writer := &countingWriter{MemoryWriter: output.NewMemoryWriter()}
	p := NewProcessor(src, writer, Config{Factors: []float64{0.5, 1}})

	var wg sync.WaitGroup
	results := make([]*interfaces.ImageDescriptor, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			desc, err := p.Process(context.Background(), interfaces.ImageRequest{Path: "a.png", MaxWidth: 590})
			if err != nil {
				t.Errorf("Process: %v", err)
				return
			}
			results[i] = desc
		}(i)
	}
	wg.Wait()

	// original + 100w + 200w
	if got := writer.writes.Load(); got != 3 {
		t.Fatalf("expected 3 writes, got %d", got)
	}
	for _, desc := range results {
		if desc == nil || desc.Src != results[0].Src {
			t.Fatalf("expected identical descriptors, got %+v", desc)
		}
	}
	results[0].Src = "mutated"
	again, _ := p.Process(context.Background(), interfaces.ImageRequest{Path: "a.png", MaxWidth: 590})
	if again.Src == "mutated" {
		t.Fatal("expected cached descriptor to be copied")
	}
}

func TestProcessorErrors(t *testing.T) {
	src := fstest.MapFS{"broken.png": {Data: []byte("not an image")}}
	p := NewProcessor(src, nil, Config{})
	ctx := context.Background()

	if _, err := p.Process(ctx, interfaces.ImageRequest{Path: "missing.png", MaxWidth: 590}); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, err := p.Process(ctx, interfaces.ImageRequest{Path: "broken.png", MaxWidth: 590}); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
	if _, err := p.Process(ctx, interfaces.ImageRequest{Path: "broken.png"}); err == nil {
		t.Fatal("expected error for zero max width")
	}
}
