// Package config loads the optional site configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/postpress/internal/foundation/errors"
)

// FileName is the configuration file looked up when none is given explicitly.
const FileName = "postpress.yaml"

// Config represents the site configuration.
type Config struct {
	Title       string  `yaml:"title"`
	Description string  `yaml:"description,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Author      string  `yaml:"author,omitempty"`
	Timezone    string  `yaml:"timezone,omitempty"`
	Links       []Link  `yaml:"links,omitempty"`
	Build       Build   `yaml:"build"`
	Logging     Logging `yaml:"logging"`

	location *time.Location
}

// Link is an external service (comments, analytics, source repository)
// linked from every page footer.
type Link struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// Build holds run settings that CLI flags may override.
type Build struct {
	Drafts  bool `yaml:"drafts"`
	Workers int  `yaml:"workers,omitempty"` // 0 means runtime.NumCPU()
}

// Logging holds logging defaults that CLI flags may override.
type Logging struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	c.location = time.UTC
	return c
}

// Resolve picks the configuration file to load. An explicit path always
// wins; otherwise FileName is looked up in the source root, then in the
// working directory. An empty result means no file.
func Resolve(explicit, source string) string {
	if explicit != "" {
		return explicit
	}
	for _, candidate := range []string{filepath.Join(source, FileName), FileName} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// Load reads the configuration at path. An empty path returns Default.
// .env files in the working directory are loaded first so the file can
// reference ${VARIABLES}.
func Load(path string) (*Config, error) {
	loadEnvFiles()
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ferrors.NewError(ferrors.CategoryNotFound, "configuration file not found").
				Fatal().WithContext("path", path).Build()
		}
		return nil, ferrors.ConfigError("failed to read config file").WithCause(err).WithContext("path", path).Build()
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, ferrors.ConfigError("invalid configuration").WithCause(err).WithContext("path", path).Build()
	}
	return cfg, nil
}

// Parse decodes, defaults and validates configuration YAML after expanding
// environment variables. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		c.Title = "Posts"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
}

// Validate checks field values and resolves the time zone.
func (c *Config) Validate() error {
	var problems []string

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		problems = append(problems, fmt.Sprintf("timezone %q: %v", c.Timezone, err))
	} else {
		c.location = loc
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("base_url %q must be an absolute http(s) URL", c.BaseURL))
		}
	}
	if c.Build.Workers < 0 {
		problems = append(problems, fmt.Sprintf("build.workers must not be negative (got %d)", c.Build.Workers))
	}
	for i, l := range c.Links {
		if strings.TrimSpace(l.Label) == "" || strings.TrimSpace(l.URL) == "" {
			problems = append(problems, fmt.Sprintf("links[%d] needs both label and url", i))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location returns the zone used for dates without explicit offsets.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Workers returns the configured render pool size, defaulting to the CPU count.
func (c *Config) Workers() int {
	if c.Build.Workers > 0 {
		return c.Build.Workers
	}
	return runtime.NumCPU()
}
