package build

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-folio/internal/content"
	"github.com/goliatone/go-folio/internal/frontmatter"
	"github.com/goliatone/go-folio/internal/markdown"
	"github.com/goliatone/go-folio/internal/source"
)

// slot holds the outcome for one enumerated file. Slots keep enumeration
// order no matter which worker finishes first.
type slot struct {
	file        source.RawFile
	record      *content.Record
	diagnostics []markdown.Diagnostic
	err         error
}

func (b *Builder) derive(ctx context.Context, registry *source.Registry) ([]*slot, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())

	var (
		slots   []*slot
		enumErr error
	)
	for file, err := range registry.Enumerate(gctx) {
		if err != nil {
			enumErr = err
			break
		}
		s := &slot{file: file}
		slots = append(slots, s)
		g.Go(func() error {
			return b.deriveOne(gctx, s)
		})
	}
	waitErr := g.Wait()
	if enumErr != nil {
		b.logger.Error("build.source.failed", "error", enumErr)
		return nil, enumErr
	}
	if waitErr != nil {
		return nil, wrapFatal("derive", waitErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

// deriveOne parses, validates and renders one file. Only cancellation is
// returned; every other failure is recorded on the slot.
func (b *Builder) deriveOne(ctx context.Context, s *slot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	meta, body, err := frontmatter.Parse(s.file.Data, frontmatter.Options{
		Path:       s.file.Path,
		DateFields: b.cfg.Content.DateFields,
	})
	if err != nil {
		s.err = err
		return nil
	}
	if err := b.validator.Validate(s.file.Path, s.file.Namespace, meta); err != nil {
		s.err = err
		return nil
	}

	record := content.NewRecord(content.RecordInput{
		Path:        s.file.Path,
		Namespace:   s.file.Namespace,
		FrontMatter: meta,
		Body:        body,
		Source:      s.file.Data,
		ModTime:     s.file.ModTime,
		Render: func(r *content.Record) (string, error) {
			res, err := b.pipeline.Render(ctx, r.Path, r.RawBody)
			if err != nil {
				return "", err
			}
			s.diagnostics = res.Diagnostics
			return res.HTML, nil
		},
	})
	if _, err := record.HTML(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		s.err = err
		return nil
	}
	s.record = record
	return nil
}
