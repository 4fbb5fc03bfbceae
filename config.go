package folio

import (
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/goliatone/go-folio/internal/config"
	"github.com/goliatone/go-folio/internal/logging/console"
	"github.com/goliatone/go-folio/internal/logging/gologger"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

var (
	ErrUnknownNamespace       = config.ErrUnknownNamespace
	ErrMathPolicyInvalid      = config.ErrMathPolicyInvalid
	ErrLoggingProviderUnknown = config.ErrLoggingProviderUnknown
)

type (
	Config         = config.Config
	SiteMetadata   = config.SiteMetadata
	ContentConfig  = config.ContentConfig
	MarkdownConfig = config.MarkdownConfig
	ImagesConfig   = config.ImagesConfig
	BuildConfig    = config.BuildConfig
	WatchConfig    = config.WatchConfig
	ServeConfig    = config.ServeConfig
	LoggingConfig  = config.LoggingConfig
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads file (or folio.yaml when empty), FOLIO_* environment
// variables and any bound flags, in increasing priority.
func LoadConfig(file string, flags *pflag.FlagSet) (*Config, error) {
	return config.Load(file, flags)
}

// NewLoggerProvider builds the provider named by cfg.Logging.Provider.
// Console entries go to w, or stderr when w is nil.
func NewLoggerProvider(site Config, w io.Writer) (interfaces.LoggerProvider, error) {
	cfg := site.Logging
	switch cfg.Provider {
	case "", "console":
		if w == nil {
			w = os.Stderr
		}
		opts := console.Options{Writer: w}
		if level, err := console.ParseLevel(cfg.Level); err == nil {
			opts.MinLevel = &level
		}
		return console.NewProvider(opts), nil
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     cfg.Level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
			Focus:     cfg.Focus,
			Fields:    map[string]any{"site": site.Site.Title},
		})
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, ErrLoggingProviderUnknown
	}
}
