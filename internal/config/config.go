package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/cvsync/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "cvsync"

	// DefaultIndexFile is the HTML file patched when none is given.
	DefaultIndexFile = "index.html"

	// RendererChrome renders the page in a headless Chrome/Chromium.
	// Notion pages build most of their content with JavaScript, so this is the default.
	RendererChrome = "chrome"

	// RendererHTTP fetches the page with a plain HTTP GET.
	RendererHTTP = "http"

	// DefaultRenderer is the renderer used when none is configured.
	DefaultRenderer = RendererChrome

	// DefaultTimeout bounds the whole fetch, including browser start-up.
	DefaultTimeout = 60 * time.Second

	// DefaultWaitClass is the class that must be present in the rendered DOM
	// before the page is considered loaded.
	DefaultWaitClass = "notion-page-content"

	// DefaultScrollSteps and DefaultScrollDelay drive the wheel scrolls that
	// make Notion load blocks below the first screen.
	DefaultScrollSteps = 10
	DefaultScrollDelay = 500 * time.Millisecond

	// DefaultUserAgent identifies cvsync in HTTP requests.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 cvsync/1.0"

	// DefaultMaxBodySize limits the response body read by the HTTP renderer.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultLogFormat is the slog handler format.
	DefaultLogFormat = "text"

	// Default target element ids in the site's index.html.
	DefaultResearchTarget    = "research-list"
	DefaultLecturesTarget    = "lecture-list"
	DefaultConferencesTarget = "conference-list"
)

// ChromePath is an additional browser location to try for a given OS.
// An empty OS applies to every platform.
type ChromePath struct {
	OS   string `yaml:"os,omitempty"`
	Path string `yaml:"path"`
}

// SectionRules overrides the keywords used to find and delimit a section.
// Empty slices mean "use the built-in keywords".
type SectionRules struct {
	// Headers are the texts that mark the start of the section.
	Headers []string `yaml:"headers,omitempty"`

	// Stops are the texts that mark the end of the section.
	Stops []string `yaml:"stops,omitempty"`
}

// Config holds all configuration options for cvsync.
// It is populated from defaults, then the config file, then CLI flags,
// and passed through the application rather than kept in global state.
type Config struct {
	// NotionURL is the public Notion page holding the CV.
	NotionURL string

	// IndexFile is the HTML file whose target elements are patched.
	IndexFile string

	// Renderer selects how the page is fetched: RendererChrome or RendererHTTP.
	Renderer string

	// Timeout bounds the fetch.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// Cookie is sent with HTTP requests. Useful for pages shared with a login.
	Cookie string

	// Headers are extra HTTP headers sent by the HTTP renderer.
	Headers map[string]string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// ChromePaths are extra browser locations tried before the well-known ones.
	ChromePaths []ChromePath

	// WaitClass must appear in the DOM for a fetch to succeed.
	// Empty disables the check.
	WaitClass string

	// ScrollSteps is the number of wheel scrolls after the wait class is
	// visible. ScrollDelay is the pause after each one.
	ScrollSteps int
	ScrollDelay time.Duration

	// Targets maps each section to the id of the element it replaces.
	Targets map[model.SectionKind]string

	// Sections holds keyword overrides per section.
	Sections map[model.SectionKind]SectionRules

	// DryRun computes the patch without writing the index file.
	DryRun bool

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat is "text" or "json".
	LogFormat string

	// JSONReport and MarkdownReport select the summary format.
	// They are mutually exclusive; neither means plain text.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile is where the report is written. Empty means stdout.
	// When set, a text summary is still printed to stdout.
	ReportFile string

	// ShowFragments prints the generated markup in the text summary.
	ShowFragments bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .cvsync is searched in the current and home directories.
	ConfigFilePath string

	// SaveToDB records the run in the history database at DBDir.
	SaveToDB bool
	DBDir    string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		IndexFile:   DefaultIndexFile,
		Renderer:    DefaultRenderer,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		Headers:     make(map[string]string),
		WaitClass:   DefaultWaitClass,
		ScrollSteps: DefaultScrollSteps,
		ScrollDelay: DefaultScrollDelay,
		Targets:     DefaultTargets(),
		Sections:    make(map[model.SectionKind]SectionRules),
		LogFormat:   DefaultLogFormat,
		SaveToDB:    true,
		DBDir:       XDGDataDir(),
	}
}

// DefaultTargets returns the element ids used by the site template.
func DefaultTargets() map[model.SectionKind]string {
	return map[model.SectionKind]string{
		model.SectionResearch:    DefaultResearchTarget,
		model.SectionLectures:    DefaultLecturesTarget,
		model.SectionConferences: DefaultConferencesTarget,
	}
}

// TargetID returns the element id for a section.
func (c *Config) TargetID(kind model.SectionKind) string {
	return c.Targets[kind]
}

// XDGDataDir returns the XDG data directory for cvsync.
// On Linux: ~/.local/share/cvsync
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for cvsync.
// On Linux: ~/.config/cvsync
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.NotionURL == "" {
		return ErrNoURL
	}
	u, err := url.Parse(c.NotionURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	if c.IndexFile == "" {
		return ErrNoIndexFile
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Renderer != RendererChrome && c.Renderer != RendererHTTP {
		return ErrUnknownRenderer
	}

	if c.ScrollSteps < 0 {
		return ErrInvalidScrollSteps
	}

	if c.ScrollDelay < 0 {
		return ErrInvalidScrollDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return ErrUnknownLogFormat
	}

	seen := make(map[string]model.SectionKind, len(model.Sections))
	for _, kind := range model.Sections {
		id := c.Targets[kind]
		if id == "" {
			return fmt.Errorf("%w for section %s", ErrEmptyTargetID, kind)
		}
		if other, ok := seen[id]; ok {
			return fmt.Errorf("%w: %q is used by %s and %s", ErrDuplicateTargetID, id, other, kind)
		}
		seen[id] = kind
	}

	return nil
}
