package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-folio/internal/content"
)

const (
	commandValidationCode   = "COMMAND_VALIDATION_FAILED"
	commandContextCanceled  = "COMMAND_CONTEXT_CANCELED"
	commandContextTimeout   = "COMMAND_CONTEXT_TIMEOUT"
	commandContextErrorCode = "COMMAND_CONTEXT_ERROR"
	commandExecuteFailed    = "COMMAND_EXECUTION_FAILED"

	sourceReadFailed     = "SOURCE_READ_FAILED"
	duplicateSlug        = "DUPLICATE_SLUG"
	malformedFrontmatter = "MALFORMED_FRONTMATTER"
	malformedMath        = "MALFORMED_MATH"
	contentNotFound      = "CONTENT_NOT_FOUND"
	invalidQuery         = "INVALID_QUERY"
)

// TextCode returns the text code attached to a wrapped command error, or an
// empty string when err was not produced by a command handler.
func TextCode(err error) string {
	var wrapped *goerrors.Error
	if errors.As(err, &wrapped) {
		return wrapped.TextCode
	}
	return ""
}

func wrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "command validation failed").
		WithTextCode(commandValidationCode)
}

func wrapContextError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution cancelled").
			WithTextCode(commandContextCanceled)
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution deadline exceeded").
			WithTextCode(commandContextTimeout)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command context error").
			WithTextCode(commandContextErrorCode)
	}
}

// wrapExecuteError tags domain failures with a stable text code. Invalid
// queries are caller mistakes and keep the validation category.
func wrapExecuteError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return wrapContextError(err)
	case errors.Is(err, content.ErrInvalidQuery):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid content query").
			WithTextCode(invalidQuery)
	case errors.Is(err, content.ErrSourceRead):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "content source could not be read").
			WithTextCode(sourceReadFailed)
	case errors.Is(err, content.ErrDuplicateSlug):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "duplicate blog slug").
			WithTextCode(duplicateSlug)
	case errors.Is(err, content.ErrMalformedFrontmatter):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "malformed front matter").
			WithTextCode(malformedFrontmatter)
	case errors.Is(err, content.ErrMalformedMath):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "malformed math expression").
			WithTextCode(malformedMath)
	case errors.Is(err, content.ErrNotFound):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "content not found").
			WithTextCode(contentNotFound)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution failed").
			WithTextCode(commandExecuteFailed)
	}
}
