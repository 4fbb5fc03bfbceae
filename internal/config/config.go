// Package config loads the site configuration from defaults, an optional
// folio.yaml file, FOLIO_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. FOLIO_BUILD_OUTPUT_DIR.
	EnvPrefix = "FOLIO"
	// DefaultFileName is searched for in the working directory when no file is given.
	DefaultFileName = "folio"
)

var (
	ErrUnknownNamespace       = errors.New("folio config: unknown content namespace")
	ErrMathPolicyInvalid      = errors.New("folio config: math strict policy must be ignore, warn or error")
	ErrLoggingProviderUnknown = errors.New("folio config: logging provider is invalid")
)

// Config is the full site configuration.
type Config struct {
	Site     SiteMetadata   `mapstructure:"site"`
	Content  ContentConfig  `mapstructure:"content"`
	Markdown MarkdownConfig `mapstructure:"markdown"`
	Images   ImagesConfig   `mapstructure:"images"`
	Build    BuildConfig    `mapstructure:"build"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Serve    ServeConfig    `mapstructure:"serve"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SiteMetadata is static data rendered by the listing pages. It is loaded
// once at startup and never mutated.
type SiteMetadata struct {
	Author          string   `mapstructure:"author"`
	Title           string   `mapstructure:"title"`
	Description     string   `mapstructure:"description"`
	Bio             []string `mapstructure:"bio"`
	BlogDescription []string `mapstructure:"blog_description"`
	Skills          []string `mapstructure:"skills"`
	Email           string   `mapstructure:"email"`
	Twitter         string   `mapstructure:"twitter"`
	LinkedIn        string   `mapstructure:"linkedin"`
	GitHub          string   `mapstructure:"github"`
}

// ContentConfig locates the markdown sources.
type ContentConfig struct {
	// Dir is the base directory the roots are resolved against.
	Dir string `mapstructure:"dir"`
	// Roots maps a namespace (blog, portfolio, resume) to a directory below Dir.
	Roots      map[string]string `mapstructure:"roots"`
	Pattern    string            `mapstructure:"pattern"`
	Recursive  bool              `mapstructure:"recursive"`
	DateFields []string          `mapstructure:"date_fields"`
	// Schemas maps a namespace to an optional JSON schema file validating its front matter.
	Schemas map[string]string `mapstructure:"schemas"`
}

// MarkdownConfig configures the transform pipeline.
type MarkdownConfig struct {
	Extensions      []string       `mapstructure:"extensions"`
	HardWraps       bool           `mapstructure:"hard_wraps"`
	SafeMode        bool           `mapstructure:"safe_mode"`
	ExternalSchemes []string       `mapstructure:"external_schemes"`
	Headings        HeadingsConfig `mapstructure:"headings"`
	Images          MarkupConfig   `mapstructure:"images"`
	Math            MathConfig     `mapstructure:"math"`
	Code            CodeConfig     `mapstructure:"code"`
}

type HeadingsConfig struct {
	Levels    []int  `mapstructure:"levels"`
	Icon      string `mapstructure:"icon"`
	Class     string `mapstructure:"class"`
	IconAfter bool   `mapstructure:"icon_after"`
}

// MarkupConfig controls the responsive image markup.
type MarkupConfig struct {
	MaxWidth        int    `mapstructure:"max_width"`
	BackgroundColor string `mapstructure:"background_color"`
	Captions        bool   `mapstructure:"captions"`
	LinkOriginal    bool   `mapstructure:"link_original"`
	Lazy            bool   `mapstructure:"lazy"`
}

type MathConfig struct {
	// Strict is ignore, warn or error.
	Strict string `mapstructure:"strict"`
}

type CodeConfig struct {
	ClassPrefix  string            `mapstructure:"class_prefix"`
	InlineMarker string            `mapstructure:"inline_marker"`
	Style        string            `mapstructure:"style"`
	Aliases      map[string]string `mapstructure:"aliases"`
	Prompt       PromptConfig      `mapstructure:"prompt"`
}

type PromptConfig struct {
	User   string `mapstructure:"user"`
	Host   string `mapstructure:"host"`
	Global bool   `mapstructure:"global"`
}

// ImagesConfig configures the default image processor.
type ImagesConfig struct {
	Enabled   bool      `mapstructure:"enabled"`
	OutputDir string    `mapstructure:"output_dir"`
	Quality   int       `mapstructure:"quality"`
	Factors   []float64 `mapstructure:"factors"`
}

// BuildConfig configures a build run.
type BuildConfig struct {
	OutputDir   string      `mapstructure:"output_dir"`
	BaseURL     string      `mapstructure:"base_url"`
	Workers     int         `mapstructure:"workers"`
	Clean       bool        `mapstructure:"clean"`
	Sitemap     bool        `mapstructure:"sitemap"`
	Robots      bool        `mapstructure:"robots"`
	Incremental bool        `mapstructure:"incremental"`
	DryRun      bool        `mapstructure:"dry_run"`
	Theme       ThemeConfig `mapstructure:"theme"`
}

// ThemeConfig points at a go-theme directory whose manifest overrides page
// templates and contributes assets and CSS variables. An empty Dir keeps the
// embedded templates.
type ThemeConfig struct {
	Dir       string `mapstructure:"dir"`
	Variant   string `mapstructure:"variant"`
	CSSPrefix string `mapstructure:"css_prefix"`
	AssetsDir string `mapstructure:"assets_dir"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig selects and tunes the logger provider.
type LoggingConfig struct {
	// Provider is console or gologger.
	Provider  string   `mapstructure:"provider"`
	Level     string   `mapstructure:"level"`
	Format    string   `mapstructure:"format"`
	AddSource bool     `mapstructure:"add_source"`
	Focus     []string `mapstructure:"focus"`
}

var namespaces = []string{"blog", "portfolio", "resume"}

// Namespaces lists the namespaces accepted in content.roots, in build order.
func Namespaces() []string { return slices.Clone(namespaces) }

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.title", "Portfolio")
	v.SetDefault("site.author", "")

	v.SetDefault("content.dir", ".")
	v.SetDefault("content.roots", map[string]string{
		"blog":      "content/blog",
		"portfolio": "content/portfolio",
		"resume":    "content/resume",
	})
	v.SetDefault("content.pattern", "*.md")
	v.SetDefault("content.recursive", true)
	v.SetDefault("content.date_fields", []string{"date", "startDate", "endDate"})

	v.SetDefault("markdown.extensions", []string{"gfm"})
	v.SetDefault("markdown.external_schemes", []string{"http", "https"})
	v.SetDefault("markdown.headings.levels", []int{2})
	v.SetDefault("markdown.headings.class", "anchor")
	v.SetDefault("markdown.images.max_width", 590)
	v.SetDefault("markdown.images.background_color", "transparent")
	v.SetDefault("markdown.images.captions", true)
	v.SetDefault("markdown.images.link_original", true)
	v.SetDefault("markdown.images.lazy", true)
	v.SetDefault("markdown.math.strict", "ignore")
	v.SetDefault("markdown.code.class_prefix", "language-")
	v.SetDefault("markdown.code.inline_marker", ">")
	v.SetDefault("markdown.code.style", "github")
	v.SetDefault("markdown.code.aliases", map[string]string{"sh": "bash"})
	v.SetDefault("markdown.code.prompt.user", "root")
	v.SetDefault("markdown.code.prompt.host", "localhost")
	v.SetDefault("markdown.code.prompt.global", false)

	v.SetDefault("images.enabled", true)
	v.SetDefault("images.output_dir", "static/images")
	v.SetDefault("images.quality", 85)

	v.SetDefault("build.output_dir", "public")
	v.SetDefault("build.base_url", "http://localhost:8080")
	v.SetDefault("build.workers", 4)
	v.SetDefault("build.clean", false)
	v.SetDefault("build.sitemap", true)
	v.SetDefault("build.robots", true)
	v.SetDefault("build.incremental", true)
	v.SetDefault("build.theme.dir", "")
	v.SetDefault("build.theme.variant", "")
	v.SetDefault("build.theme.assets_dir", "assets")

	v.SetDefault("watch.debounce", 300*time.Millisecond)
	v.SetDefault("serve.addr", "127.0.0.1:8080")

	v.SetDefault("logging.provider", "console")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Default returns the configuration used when no file, env or flag overrides exist.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("folio config: decode defaults: %v", err))
	}
	cfg.normalize()
	return cfg
}

// Load reads configuration with the priority flags > env > file > defaults.
// An empty file searches for folio.yaml in the working directory; a missing
// default file is not an error, a missing explicit file is.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, flag := range flagBindings {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("folio config: bind flag %s: %w", flag, err)
				}
			}
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("folio config: read %s: %w", file, err)
		}
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("folio config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("folio config: decode: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flagBindings maps configuration keys to the CLI flags that override them.
var flagBindings = map[string]string{
	"content.dir":          "content-dir",
	"build.output_dir":     "output",
	"build.base_url":       "base-url",
	"build.workers":        "workers",
	"build.clean":          "clean",
	"build.dry_run":        "dry-run",
	"build.incremental":    "incremental",
	"build.theme.dir":      "theme",
	"build.theme.variant":  "theme-variant",
	"markdown.math.strict": "math-strict",
	"logging.level":        "log-level",
	"logging.format":       "log-format",
	"logging.provider":     "log-provider",
	"serve.addr":           "addr",
	"watch.debounce":       "debounce",
}

func (c *Config) normalize() {
	c.Build.BaseURL = strings.TrimRight(strings.TrimSpace(c.Build.BaseURL), "/")
	c.Build.Theme.Dir = strings.TrimSpace(c.Build.Theme.Dir)
	c.Build.Theme.Variant = strings.TrimSpace(c.Build.Theme.Variant)
	c.Build.Theme.AssetsDir = strings.Trim(strings.TrimSpace(c.Build.Theme.AssetsDir), "/")
	c.Markdown.Math.Strict = strings.ToLower(strings.TrimSpace(c.Markdown.Math.Strict))
	c.Logging.Provider = strings.ToLower(strings.TrimSpace(c.Logging.Provider))
	roots := make(map[string]string, len(c.Content.Roots))
	for ns, dir := range c.Content.Roots {
		roots[strings.ToLower(strings.TrimSpace(ns))] = strings.TrimSpace(dir)
	}
	c.Content.Roots = roots
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Site),
		validation.Field(&c.Content),
		validation.Field(&c.Markdown),
		validation.Field(&c.Images),
		validation.Field(&c.Build),
		validation.Field(&c.Logging),
	)
}

func (s SiteMetadata) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Title, validation.Required),
		validation.Field(&s.Email, is.EmailFormat),
		validation.Field(&s.Skills, validation.Each(validation.Required)),
	)
}

func (c ContentConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Roots, validation.Required, validation.By(knownNamespaces)),
		validation.Field(&c.Pattern, validation.Required),
		validation.Field(&c.Schemas, validation.By(knownNamespaces)),
	)
}

func knownNamespaces(value any) error {
	m, _ := value.(map[string]string)
	for ns, dir := range m {
		if !slices.Contains(namespaces, ns) {
			return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
		}
		if dir == "" {
			return validation.NewError("folio.config.content.empty_dir", "directory for "+ns+" is empty")
		}
	}
	return nil
}

func (m MarkdownConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Headings),
		validation.Field(&m.Images),
		validation.Field(&m.Math),
		validation.Field(&m.ExternalSchemes, validation.Each(validation.Required)),
	)
}

func (h HeadingsConfig) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Levels, validation.Each(validation.Min(1), validation.Max(6))),
	)
}

func (m MarkupConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.MaxWidth, validation.Required, validation.Min(1)),
	)
}

func (m MathConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Strict, validation.In("", "ignore", "warn", "error").ErrorObject(
			validation.NewError("folio.config.math.strict", ErrMathPolicyInvalid.Error()))),
	)
}

func (i ImagesConfig) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Quality, validation.Min(0), validation.Max(100)),
		validation.Field(&i.Factors, validation.Each(validation.Min(0.01))),
	)
}

func (b BuildConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.OutputDir, validation.Required),
		validation.Field(&b.BaseURL, is.URL),
		validation.Field(&b.Workers, validation.Min(0)),
		validation.Field(&b.Theme),
	)
}

func (t ThemeConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.AssetsDir, validation.When(t.Dir != "", validation.Required)),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Provider, validation.In("", "console", "gologger").ErrorObject(
			validation.NewError("folio.config.logging.provider", ErrLoggingProviderUnknown.Error()))),
		validation.Field(&l.Level, validation.In("", "trace", "debug", "info", "warn", "error", "fatal")),
		validation.Field(&l.Format, validation.In("", "console", "json", "pretty")),
	)
}

// Root pairs a namespace with its directory below Content.Dir.
type Root struct {
	Namespace string
	Dir       string
}

// ContentRoots returns the configured roots in build order.
func (c Config) ContentRoots() []Root {
	var roots []Root
	for _, ns := range namespaces {
		if dir, ok := c.Content.Roots[ns]; ok {
			roots = append(roots, Root{Namespace: ns, Dir: dir})
		}
	}
	return roots
}
