package build

import (
	"fmt"

	"github.com/goliatone/go-folio/internal/config"
	"github.com/goliatone/go-folio/internal/markdown"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// NewPipeline assembles the markdown pipeline described by cfg. The returned
// code stage also produces the highlight stylesheet.
func NewPipeline(cfg config.MarkdownConfig, processor interfaces.ImageProcessor, logger interfaces.Logger) (*markdown.Pipeline, *markdown.Code, error) {
	policy, err := markdown.ParseMathPolicy(cfg.Math.Strict)
	if err != nil {
		return nil, nil, fmt.Errorf("build: %w", err)
	}
	code := markdown.NewCode(markdown.CodeConfig{
		ClassPrefix:  cfg.Code.ClassPrefix,
		InlineMarker: cfg.Code.InlineMarker,
		Style:        cfg.Code.Style,
		Aliases:      cfg.Code.Aliases,
		Prompt: markdown.PromptConfig{
			User:   cfg.Code.Prompt.User,
			Host:   cfg.Code.Prompt.Host,
			Global: cfg.Code.Prompt.Global,
		},
	})
	stages := []markdown.Stage{
		markdown.NewHeadingAnchors(markdown.HeadingConfig{
			Levels:    cfg.Headings.Levels,
			Icon:      cfg.Headings.Icon,
			Class:     cfg.Headings.Class,
			IconAfter: cfg.Headings.IconAfter,
		}),
		markdown.NewImages(markdown.ImageConfig{
			MaxWidth:        cfg.Images.MaxWidth,
			BackgroundColor: cfg.Images.BackgroundColor,
			Captions:        cfg.Images.Captions,
			LinkOriginal:    cfg.Images.LinkOriginal,
			Lazy:            cfg.Images.Lazy,
		}, processor),
		markdown.NewMath(markdown.MathConfig{Policy: policy}),
		code,
	}
	pipeline := markdown.New(markdown.Config{
		Extensions:      cfg.Extensions,
		HardWraps:       cfg.HardWraps,
		SafeMode:        cfg.SafeMode,
		ExternalSchemes: cfg.ExternalSchemes,
	}, stages, markdown.WithLogger(logger))
	return pipeline, code, nil
}
