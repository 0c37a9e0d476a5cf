package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/cvsync/internal/model"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default IndexFile is index.html", func(t *testing.T) {
		t.Parallel()
		if cfg.IndexFile != "index.html" {
			t.Errorf("expected IndexFile to be 'index.html', got '%s'", cfg.IndexFile)
		}
	})

	t.Run("default Renderer is chrome", func(t *testing.T) {
		t.Parallel()
		if cfg.Renderer != RendererChrome {
			t.Errorf("expected Renderer to be chrome, got %q", cfg.Renderer)
		}
	})

	t.Run("default Timeout is 60 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 60*time.Second {
			t.Errorf("expected Timeout to be 60s, got %v", cfg.Timeout)
		}
	})

	t.Run("default scroll is 10 steps of 500ms", func(t *testing.T) {
		t.Parallel()
		if cfg.ScrollSteps != 10 || cfg.ScrollDelay != 500*time.Millisecond {
			t.Errorf("expected 10 scrolls of 500ms, got %d of %v", cfg.ScrollSteps, cfg.ScrollDelay)
		}
	})

	t.Run("default WaitClass is notion-page-content", func(t *testing.T) {
		t.Parallel()
		if cfg.WaitClass != "notion-page-content" {
			t.Errorf("expected WaitClass notion-page-content, got %q", cfg.WaitClass)
		}
	})

	t.Run("default targets match the site template", func(t *testing.T) {
		t.Parallel()
		want := map[model.SectionKind]string{
			model.SectionResearch:    "research-list",
			model.SectionLectures:    "lecture-list",
			model.SectionConferences: "conference-list",
		}
		if diff := cmp.Diff(want, cfg.Targets); diff != "" {
			t.Errorf("targets mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("history is saved by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})

	t.Run("default MaxBodySize is 10MB", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxBodySize != 10*1024*1024 {
			t.Errorf("expected MaxBodySize 10MB, got %d", cfg.MaxBodySize)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.NotionURL = "https://example.notion.site/CV-720152021c234c4baa3d610be64cbc1d"
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"empty url", func(c *Config) { c.NotionURL = "" }, ErrNoURL},
		{"relative url", func(c *Config) { c.NotionURL = "/CV-1234" }, ErrInvalidURL},
		{"ftp url", func(c *Config) { c.NotionURL = "ftp://example.com/cv" }, ErrInvalidURL},
		{"empty index file", func(c *Config) { c.IndexFile = "" }, ErrNoIndexFile},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, ErrInvalidTimeout},
		{"unknown renderer", func(c *Config) { c.Renderer = "firefox" }, ErrUnknownRenderer},
		{"negative scroll steps", func(c *Config) { c.ScrollSteps = -1 }, ErrInvalidScrollSteps},
		{"negative scroll delay", func(c *Config) { c.ScrollDelay = -time.Millisecond }, ErrInvalidScrollDelay},
		{"negative max body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"json and markdown", func(c *Config) { c.JSONReport = true; c.MarkdownReport = true }, ErrConflictingReportFormats},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, ErrUnknownLogFormat},
		{"empty target id", func(c *Config) { c.Targets[model.SectionLectures] = "" }, ErrEmptyTargetID},
		{"duplicate target id", func(c *Config) { c.Targets[model.SectionConferences] = "lecture-list" }, ErrDuplicateTargetID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("zero scroll steps is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.ScrollSteps = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("http renderer is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Renderer = RendererHTTP
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile("/nonexistent/path/.cvsync")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cf != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".cvsync")
		content := `url: https://example.notion.site/CV-abc
index: public/index.html
renderer: http
timeout: 90s
cookie: "token_v2=secret"
headers:
  Accept-Language: ko-KR
proxy: 127.0.0.1:9050
chrome:
  paths:
    - os: linux
      path: /opt/chrome/chrome
  waitClass: ""
  scrollSteps: 4
  scrollDelay: 250ms
targets:
  lectures: talks
sections:
  research:
    headers: ["논문"]
    stops: ["강연"]
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		cf.Apply(cfg)

		if cfg.NotionURL != "https://example.notion.site/CV-abc" {
			t.Errorf("unexpected url %q", cfg.NotionURL)
		}
		if cfg.IndexFile != "public/index.html" {
			t.Errorf("unexpected index %q", cfg.IndexFile)
		}
		if cfg.Renderer != RendererHTTP {
			t.Errorf("unexpected renderer %q", cfg.Renderer)
		}
		if cfg.Timeout != 90*time.Second {
			t.Errorf("unexpected timeout %v", cfg.Timeout)
		}
		if cfg.Cookie != "token_v2=secret" {
			t.Errorf("unexpected cookie %q", cfg.Cookie)
		}
		if cfg.Headers["Accept-Language"] != "ko-KR" {
			t.Errorf("unexpected headers %v", cfg.Headers)
		}
		if cfg.ProxyAddress != "127.0.0.1:9050" {
			t.Errorf("unexpected proxy %q", cfg.ProxyAddress)
		}
		if diff := cmp.Diff([]ChromePath{{OS: "linux", Path: "/opt/chrome/chrome"}}, cfg.ChromePaths); diff != "" {
			t.Errorf("chrome paths mismatch (-want +got):\n%s", diff)
		}
		if cfg.WaitClass != "" {
			t.Errorf("expected explicit empty wait class, got %q", cfg.WaitClass)
		}
		if cfg.ScrollSteps != 4 || cfg.ScrollDelay != 250*time.Millisecond {
			t.Errorf("unexpected scroll settings %d x %v", cfg.ScrollSteps, cfg.ScrollDelay)
		}
		if cfg.TargetID(model.SectionLectures) != "talks" {
			t.Errorf("unexpected lectures target %q", cfg.TargetID(model.SectionLectures))
		}
		if cfg.TargetID(model.SectionResearch) != DefaultResearchTarget {
			t.Errorf("research target should keep its default, got %q", cfg.TargetID(model.SectionResearch))
		}
		want := SectionRules{Headers: []string{"논문"}, Stops: []string{"강연"}}
		if diff := cmp.Diff(want, cfg.Sections[model.SectionResearch]); diff != "" {
			t.Errorf("section rules mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".cvsync")
		if err := os.WriteFile(configPath, []byte(""), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		cf.Apply(cfg)

		if diff := cmp.Diff(NewConfig(), cfg); diff != "" {
			t.Errorf("config changed (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects unknown section names", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".cvsync")
		content := "sections:\n  awards:\n    headers: [\"Awards\"]\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfigFile(configPath)
		if err == nil || !strings.Contains(err.Error(), "awards") {
			t.Errorf("expected error naming the unknown section, got %v", err)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".cvsync")
		if err := os.WriteFile(configPath, []byte("url: [unclosed"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path when it exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("url: https://example.com\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if got := FindConfigFile(configPath); got != configPath {
			t.Errorf("expected %q, got %q", configPath, got)
		}
	})

	t.Run("returns empty string for missing explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile("/nonexistent/custom.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("XDGDataDir() should end with %q, got %q", AppName, XDGDataDir())
	}
	if !strings.HasSuffix(XDGConfigDir(), AppName) {
		t.Errorf("XDGConfigDir() should end with %q, got %q", AppName, XDGConfigDir())
	}
}
