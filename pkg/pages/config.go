package pages

import (
	"fmt"
	"os"
	"time"

	"github.com/Sternrassler/seo-insights/pkg/gated"
	"gopkg.in/yaml.v3"
)

// PageConfig overrides the defaults of one page.
type PageConfig struct {
	Cost        *int     `yaml:"cost,omitempty"`
	Label       string   `yaml:"label,omitempty"`
	Suggestions []string `yaml:"suggestions,omitempty"`
}

// Config represents the structure of the pages.yaml file.
type Config struct {
	// InsufficientPolicy is "silent" (default) or "error".
	InsufficientPolicy string `yaml:"insufficient_policy"`

	// FetchTimeout bounds each run's fetch phase, e.g. "45s".
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// Pages is keyed by page name (keyword_overview, ppa, traffic_share, ...).
	Pages map[string]PageConfig `yaml:"pages"`
}

// DefaultConfig returns a config without overrides.
func DefaultConfig() *Config {
	return &Config{
		InsufficientPolicy: gated.InsufficientSilent.String(),
		FetchTimeout:       gated.DefaultConfig().FetchTimeout,
		Pages:              map[string]PageConfig{},
	}
}

// LoadConfig reads the YAML page configuration at path.
// A missing file yields DefaultConfig without error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read page config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse page config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, ok := gated.ParseInsufficientPolicy(c.InsufficientPolicy); !ok {
		return fmt.Errorf("insufficient_policy must be silent or error (got %q)", c.InsufficientPolicy)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must not be negative (got %s)", c.FetchTimeout)
	}
	for name, p := range c.Pages {
		if p.Cost != nil && *p.Cost < 0 {
			return fmt.Errorf("page %s: cost must not be negative (got %d)", name, *p.Cost)
		}
	}
	return nil
}

// Controller returns the controller configuration described by c.
func (c *Config) Controller() gated.Config {
	cfg := gated.DefaultConfig()
	cfg.InsufficientPolicy, _ = gated.ParseInsufficientPolicy(c.InsufficientPolicy)
	if c.FetchTimeout > 0 {
		cfg.FetchTimeout = c.FetchTimeout
	}
	return cfg
}

// Apply returns page with the overrides configured for its name.
func Apply[T any](c *Config, page gated.Page[T]) gated.Page[T] {
	if c == nil {
		return page
	}
	override, ok := c.Pages[page.Name]
	if !ok {
		return page
	}
	if override.Cost != nil {
		page.Cost = *override.Cost
	}
	if override.Label != "" {
		page.Label = override.Label
	}
	if len(override.Suggestions) > 0 {
		page.Suggestions = override.Suggestions
	}
	return page
}
