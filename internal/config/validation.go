package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
)

// Qualities lists the accepted download.quality values.
var Qualities = []string{"best", "medium", "low", "audio"}

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks the config against the tool names the catalog knows.
func (c Config) Validate(knownTools []string) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateQuality()...)
	results = append(results, c.validateToolNames(knownTools)...)
	results = append(results, c.validateOverrides()...)
	results = append(results, c.validateSaveDir()...)
	return results
}

// Errors filters results down to error-level findings.
func Errors(results []ValidationResult) []ValidationResult {
	var errs []ValidationResult
	for _, r := range results {
		if r.Level == "error" {
			errs = append(errs, r)
		}
	}
	return errs
}

func (c Config) validateQuality() []ValidationResult {
	for _, q := range Qualities {
		if c.Download.Quality == q {
			return nil
		}
	}
	return []ValidationResult{{
		Level:   "error",
		Message: fmt.Sprintf("download.quality %q is not one of %s", c.Download.Quality, strings.Join(Qualities, ", ")),
	}}
}

func (c Config) validateToolNames(known []string) []ValidationResult {
	set := make(map[string]bool, len(known))
	for _, name := range known {
		set[name] = true
	}

	var results []ValidationResult
	for _, name := range c.Required {
		if !set[name] {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("required tool %q is unknown", name),
			})
		}
	}

	names := make([]string, 0, len(c.Tools))
	for name := range c.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !set[name] {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("tools.%s does not match any known tool and is ignored", name),
			})
		}
	}
	return results
}

func (c Config) validateOverrides() []ValidationResult {
	names := make([]string, 0, len(c.Tools))
	for name := range c.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []ValidationResult
	for _, name := range names {
		tool := c.Tools[name]
		if raw := strings.TrimSpace(tool.URL); raw != "" {
			parsed, err := url.Parse(raw)
			if err != nil || parsed.Host == "" || (parsed.Scheme != "https" && parsed.Scheme != "http") {
				results = append(results, ValidationResult{
					Level:   "error",
					Message: fmt.Sprintf("tools.%s.url %q is not an http(s) URL", name, raw),
				})
			} else if parsed.Scheme == "http" {
				results = append(results, ValidationResult{
					Level:   "warning",
					Message: fmt.Sprintf("tools.%s.url uses plain http", name),
				})
			}
		}
		if sum := strings.TrimSpace(tool.SHA256); sum != "" && !isHexDigest(sum) {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("tools.%s.sha256 must be 64 hex characters", name),
			})
		}
	}
	return results
}

func (c Config) validateSaveDir() []ValidationResult {
	dir := strings.TrimSpace(c.Download.SaveDir)
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return []ValidationResult{{
			Level:   "warning",
			Message: fmt.Sprintf("download.save_dir %q is not an existing directory", dir),
		}}
	}
	return nil
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
