package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-folio/internal/content"
)

type testMessage struct{}

func (testMessage) Type() string { return "folio.test.message" }

func (testMessage) Validate() error { return nil }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "folio.test.invalid" }

func (invalidMessage) Validate() error {
	return validationError()
}

func validationError() error {
	return errors.New("invalid")
}

func TestHandlerExecuteSuccess(t *testing.T) {
	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked")
	}
}

func TestHandlerValidationShortCircuitsExecution(t *testing.T) {
	called := false
	h := NewHandler[invalidMessage](func(ctx context.Context, msg invalidMessage) error {
		called = true
		return nil
	})

	err := h.Execute(context.Background(), invalidMessage{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when validation fails")
	}
}

func TestHandlerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	err := h.Execute(ctx, testMessage{})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when context is cancelled")
	}
}

func TestHandlerWrapsExecutionError(t *testing.T) {
	execErr := errors.New("boom")
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return execErr
	})

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected wrapped execution error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if !goerrors.HasCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category to propagate, got %v", err)
	}
}

func TestHandlerHonoursTimeoutOption(t *testing.T) {
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return nil
		}
	}, WithTimeout[testMessage](10*time.Millisecond))

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for timeout, got %v", err)
	}
}

func TestHandlerTagsDomainErrors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		code     string
		category goerrors.Category
	}{
		{"source read", &content.SourceReadError{Namespace: "blog", Path: "content/blog", Err: errors.New("gone")}, sourceReadFailed, goerrors.CategoryCommand},
		{"duplicate slug", &content.DuplicateSlugError{Slug: "a", Paths: []string{"a.md", "b.md"}}, duplicateSlug, goerrors.CategoryCommand},
		{"not found", &content.NotFoundError{Slug: "missing"}, contentNotFound, goerrors.CategoryCommand},
		{"invalid query", content.ErrInvalidQuery, invalidQuery, goerrors.CategoryValidation},
		{"other", errors.New("boom"), commandExecuteFailed, goerrors.CategoryCommand},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
				return tc.err
			})
			err := h.Execute(context.Background(), testMessage{})
			if got := TextCode(err); got != tc.code {
				t.Fatalf("expected text code %s, got %q (%v)", tc.code, got, err)
			}
			if !goerrors.IsCategory(err, tc.category) {
				t.Fatalf("expected category %v, got %v", tc.category, err)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected wrapped error to unwrap to %v", tc.err)
			}
		})
	}
}

func TestHandlerValidationTextCode(t *testing.T) {
	h := NewHandler[invalidMessage](func(ctx context.Context, msg invalidMessage) error { return nil })
	err := h.Execute(context.Background(), invalidMessage{})
	if got := TextCode(err); got != commandValidationCode {
		t.Fatalf("expected %s, got %q", commandValidationCode, got)
	}
}

func TestHandlerReportsTelemetry(t *testing.T) {
	var infos []TelemetryInfo
	record := func(_ context.Context, _ testMessage, info TelemetryInfo) {
		infos = append(infos, info)
	}

	ok := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error { return nil },
		WithTelemetry[testMessage](record),
		WithOperation[testMessage]("test.op"),
		WithMessageFields(func(testMessage) map[string]any { return map[string]any{"extra": 1} }),
	)
	failing := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error { return errors.New("boom") },
		WithTelemetry[testMessage](record),
	)

	_ = ok.Execute(context.Background(), testMessage{})
	_ = failing.Execute(context.Background(), testMessage{})

	if len(infos) != 2 {
		t.Fatalf("expected 2 telemetry calls, got %d", len(infos))
	}
	if infos[0].Status != TelemetryStatusSuccess || infos[0].Operation != "test.op" {
		t.Fatalf("unexpected success info %+v", infos[0])
	}
	if infos[0].Fields["extra"] != 1 || infos[0].Fields["command"] != "folio.test.message" {
		t.Fatalf("expected message fields, got %v", infos[0].Fields)
	}
	if infos[1].Status != TelemetryStatusFailed || infos[1].Error == nil {
		t.Fatalf("unexpected failure info %+v", infos[1])
	}
}
