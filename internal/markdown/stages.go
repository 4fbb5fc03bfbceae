package markdown

import "github.com/goliatone/go-folio/pkg/interfaces"

// StageOptions gathers the configuration of the standard stages.
type StageOptions struct {
	Headings       HeadingConfig
	Images         ImageConfig
	ImageProcessor interfaces.ImageProcessor
	Math           MathConfig
	Code           CodeConfig
}

// DefaultStages returns heading anchors, images, math and code, in that order.
func DefaultStages(opts StageOptions) []Stage {
	return []Stage{
		NewHeadingAnchors(opts.Headings),
		NewImages(opts.Images, opts.ImageProcessor),
		NewMath(opts.Math),
		NewCode(opts.Code),
	}
}
