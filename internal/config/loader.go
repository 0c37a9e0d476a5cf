package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/cvsync/internal/model"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".cvsync"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// ChromeFile is the "chrome" block of the configuration file.
type ChromeFile struct {
	Paths       []ChromePath  `yaml:"paths,omitempty"`
	WaitClass   *string       `yaml:"waitClass,omitempty"`
	ScrollSteps *int          `yaml:"scrollSteps,omitempty"`
	ScrollDelay time.Duration `yaml:"scrollDelay,omitempty"`
}

// TargetsFile is the "targets" block of the configuration file.
type TargetsFile struct {
	Research    string `yaml:"research,omitempty"`
	Lectures    string `yaml:"lectures,omitempty"`
	Conferences string `yaml:"conferences,omitempty"`
}

// File represents the structure of the .cvsync configuration file.
// Zero values leave the corresponding default untouched.
type File struct {
	URL         string                  `yaml:"url,omitempty"`
	Index       string                  `yaml:"index,omitempty"`
	Renderer    string                  `yaml:"renderer,omitempty"`
	Timeout     time.Duration           `yaml:"timeout,omitempty"`
	UserAgent   string                  `yaml:"userAgent,omitempty"`
	MaxBodySize int64                   `yaml:"maxBodySize,omitempty"`
	Cookie      string                  `yaml:"cookie,omitempty"`
	Headers     map[string]string       `yaml:"headers,omitempty"`
	Proxy       string                  `yaml:"proxy,omitempty"`
	Chrome      ChromeFile              `yaml:"chrome,omitempty"`
	Targets     TargetsFile             `yaml:"targets,omitempty"`
	Sections    map[string]SectionRules `yaml:"sections,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for name := range cf.Sections {
		if _, err := model.ParseSectionKind(name); err != nil {
			return nil, fmt.Errorf("invalid sections entry in %s: %w", path, err)
		}
	}

	return &cf, nil
}

// Apply overlays the non-zero values of the file onto cfg.
func (cf *File) Apply(cfg *Config) {
	if cf.URL != "" {
		cfg.NotionURL = cf.URL
	}
	if cf.Index != "" {
		cfg.IndexFile = cf.Index
	}
	if cf.Renderer != "" {
		cfg.Renderer = cf.Renderer
	}
	if cf.Timeout != 0 {
		cfg.Timeout = cf.Timeout
	}
	if cf.UserAgent != "" {
		cfg.UserAgent = cf.UserAgent
	}
	if cf.MaxBodySize != 0 {
		cfg.MaxBodySize = cf.MaxBodySize
	}
	if cf.Cookie != "" {
		cfg.Cookie = cf.Cookie
	}
	if len(cf.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		for k, v := range cf.Headers {
			cfg.Headers[k] = v
		}
	}
	if cf.Proxy != "" {
		cfg.ProxyAddress = cf.Proxy
	}

	if len(cf.Chrome.Paths) > 0 {
		cfg.ChromePaths = append(cfg.ChromePaths, cf.Chrome.Paths...)
	}
	// waitClass and scrollSteps are pointers so that "" and 0 can be set explicitly.
	if cf.Chrome.WaitClass != nil {
		cfg.WaitClass = *cf.Chrome.WaitClass
	}
	if cf.Chrome.ScrollSteps != nil {
		cfg.ScrollSteps = *cf.Chrome.ScrollSteps
	}
	if cf.Chrome.ScrollDelay != 0 {
		cfg.ScrollDelay = cf.Chrome.ScrollDelay
	}

	if cfg.Targets == nil {
		cfg.Targets = DefaultTargets()
	}
	if cf.Targets.Research != "" {
		cfg.Targets[model.SectionResearch] = cf.Targets.Research
	}
	if cf.Targets.Lectures != "" {
		cfg.Targets[model.SectionLectures] = cf.Targets.Lectures
	}
	if cf.Targets.Conferences != "" {
		cfg.Targets[model.SectionConferences] = cf.Targets.Conferences
	}

	if cfg.Sections == nil {
		cfg.Sections = make(map[model.SectionKind]SectionRules)
	}
	for name, rules := range cf.Sections {
		cfg.Sections[model.SectionKind(name)] = rules
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .cvsync in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .cvsync in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
