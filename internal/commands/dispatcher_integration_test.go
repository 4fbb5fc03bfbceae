package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	"github.com/goliatone/go-folio/internal/content"
)

type rebuildCommand struct {
	Reason string
}

func (rebuildCommand) Type() string { return "folio.test.rebuild" }

func (rebuildCommand) Validate() error { return nil }

type lookupCommand struct {
	Slug string
}

func (lookupCommand) Type() string { return "folio.test.lookup" }

func (lookupCommand) Validate() error { return nil }

func TestDispatcherRetriesTransientSourceErrors(t *testing.T) {
	t.Parallel()

	var attempts int
	handler := NewHandler(func(ctx context.Context, msg rebuildCommand) error {
		attempts++
		if attempts == 1 {
			return &content.SourceReadError{Namespace: content.NamespaceBlog, Root: "content/blog", Err: errors.New("file busy")}
		}
		return nil
	}, WithTimeout[rebuildCommand](time.Second))

	sub := dispatcher.SubscribeCommand(handler, runner.WithMaxRetries(1))
	t.Cleanup(sub.Unsubscribe)

	if err := dispatcher.Dispatch(context.Background(), rebuildCommand{Reason: "content/blog/a.md changed"}); err != nil {
		t.Fatalf("dispatch: expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestDispatcherRetryExhaustionPropagatesError(t *testing.T) {
	t.Parallel()

	var attempts int
	handler := NewHandler(func(ctx context.Context, msg lookupCommand) error {
		attempts++
		return &content.NotFoundError{Slug: msg.Slug}
	}, WithTimeout[lookupCommand](time.Second))

	sub := dispatcher.SubscribeCommand(handler, runner.WithMaxRetries(2))
	t.Cleanup(sub.Unsubscribe)

	err := dispatcher.Dispatch(context.Background(), lookupCommand{Slug: "missing"})
	if err == nil {
		t.Fatal("expected dispatcher to return error after exhausting retries")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}
