package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures the optional user configuration stored next to the tools.
type Config struct {
	Version   int                   `yaml:"version"`
	ToolsDir  string                `yaml:"tools_dir,omitempty"`
	Required  []string              `yaml:"required,omitempty"`
	UserAgent string                `yaml:"user_agent,omitempty"`
	Download  DownloadConfig        `yaml:"download"`
	Tools     map[string]ToolConfig `yaml:"tools,omitempty"`
}

// DownloadConfig seeds the interactive session.
type DownloadConfig struct {
	SaveDir   string   `yaml:"save_dir,omitempty"`
	Quality   string   `yaml:"quality"`
	ExtraArgs []string `yaml:"extra_args,omitempty"`
}

// ToolConfig overrides where a tool is downloaded from.
type ToolConfig struct {
	URL    string `yaml:"url,omitempty"`
	SHA256 string `yaml:"sha256,omitempty"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Download: DownloadConfig{
			Quality: "best",
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills fields the YAML left empty and normalizes names.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	c.Download.Quality = strings.ToLower(strings.TrimSpace(c.Download.Quality))
	if c.Download.Quality == "" {
		c.Download.Quality = defaults.Download.Quality
	}
	c.ToolsDir = strings.TrimSpace(c.ToolsDir)
	c.UserAgent = strings.TrimSpace(c.UserAgent)

	required := c.Required[:0]
	for _, name := range c.Required {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			required = append(required, name)
		}
	}
	c.Required = required

	if len(c.Tools) > 0 {
		tools := make(map[string]ToolConfig, len(c.Tools))
		for name, tool := range c.Tools {
			tools[strings.ToLower(strings.TrimSpace(name))] = tool
		}
		c.Tools = tools
	}
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}
