package console_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/logging/console"
)

func TestConsoleLoggerWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 3, 14, 15, 9, 26, 535897000, time.UTC)

	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		TimeFunc: func() time.Time { return now },
	})

	logger := logging.WithFields(provider.GetLogger("folio.build"), map[string]any{"module": "folio.build"})
	ctx := logging.ContextWithFields(context.Background(), map[string]any{"build_id": "b-1"})
	logger = logger.WithContext(ctx)

	logger.Warn("build.record.excluded",
		"path", "portfolio/broken.md",
		"error", errors.New("missing closing marker"),
		"duration", 1500*time.Millisecond,
	)

	got := strings.TrimSpace(buf.String())
	want := `2024-03-14T15:09:26.535897Z WARN build.record.excluded build_id=b-1 duration=1.5s error="missing closing marker" logger=folio.build module=folio.build path=portfolio/broken.md`
	if got != want {
		t.Fatalf("unexpected log entry\nwant: %s\ngot:  %s", want, got)
	}
}

func TestConsoleLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	minLevel := console.LevelInfo
	provider := console.NewProvider(console.Options{Writer: &buf, MinLevel: &minLevel})

	logger := provider.GetLogger("folio.test")
	logger.Debug("ignored.debug")
	logger.Info("included.info")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "included.info") {
		t.Fatalf("expected only the info entry, got %q", buf.String())
	}
}

func TestConsoleLoggerPromotesDanglingArgument(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{Writer: &buf})

	provider.GetLogger("folio.test").Info("dangling", "key", "value", "orphan")

	if !strings.Contains(buf.String(), "field_1=orphan") {
		t.Fatalf("expected orphan argument to be kept, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]console.Level{
		"trace":   console.LevelTrace,
		"":        console.LevelDebug,
		"INFO":    console.LevelInfo,
		"warning": console.LevelWarn,
		"error":   console.LevelError,
	}
	for input, want := range cases {
		got, err := console.ParseLevel(input)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", input, got, want)
		}
	}
	if _, err := console.ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
