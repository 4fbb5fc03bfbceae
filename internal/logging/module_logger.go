package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-folio/pkg/interfaces"
)

const (
	rootModule        = "folio"
	sourceModule      = "folio.source"
	frontmatterModule = "folio.frontmatter"
	markdownModule    = "folio.markdown"
	indexModule       = "folio.index"
	routesModule      = "folio.routes"
	renderModule      = "folio.render"
	buildModule       = "folio.build"
	watchModule       = "folio.watch"
)

const (
	fieldRecordPath      = "path"
	fieldRecordNamespace = "namespace"
	fieldStage           = "stage"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The module identifier is
// attached as a structured field so entries can be filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// SourceLogger returns the logger namespace reserved for content discovery.
func SourceLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, sourceModule)
}

// FrontmatterLogger returns the logger namespace reserved for metadata parsing.
func FrontmatterLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, frontmatterModule)
}

// MarkdownLogger returns the logger namespace reserved for the transform pipeline.
func MarkdownLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, markdownModule)
}

// IndexLogger returns the logger namespace reserved for the content index.
func IndexLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, indexModule)
}

// RoutesLogger returns the logger namespace reserved for route generation.
func RoutesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, routesModule)
}

// RenderLogger returns the logger namespace reserved for page rendering.
func RenderLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, renderModule)
}

// BuildLogger returns the logger namespace reserved for build orchestration.
func BuildLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, buildModule)
}

// WatchLogger returns the logger namespace reserved for the rebuild loop.
func WatchLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, watchModule)
}

// WithRecordContext enriches the logger with the record path, namespace and
// pipeline stage. Empty values are ignored.
func WithRecordContext(logger interfaces.Logger, path, namespace, stage string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		fields[fieldRecordPath] = trimmed
	}
	if trimmed := strings.TrimSpace(namespace); trimmed != "" {
		fields[fieldRecordNamespace] = trimmed
	}
	if trimmed := strings.TrimSpace(stage); trimmed != "" {
		fields[fieldStage] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
