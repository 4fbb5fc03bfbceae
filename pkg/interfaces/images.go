package interfaces

import "context"

// ImageRequest identifies a source image and the widest rendition the page
// layout can display.
type ImageRequest struct {
	// Path is the slash separated location of the image relative to the content root.
	Path string
	// MaxWidth caps the display width in CSS pixels.
	MaxWidth int
}

// ImageDescriptor describes the responsive renditions produced for a source
// image. The markdown pipeline treats it as opaque data for markup generation.
type ImageDescriptor struct {
	Src          string
	SrcSet       string
	Sizes        string
	OriginalSrc  string
	Width        int
	Height       int
	PresentWidth int
	AspectRatio  float64
}

// ImageProcessor is the image-processing collaborator invoked by the image
// stage. Implementations must be safe for concurrent use.
type ImageProcessor interface {
	Process(ctx context.Context, req ImageRequest) (*ImageDescriptor, error)
}
