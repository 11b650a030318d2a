package download

import (
	"fmt"
	"strings"
)

// Quality is a named download preset.
type Quality string

const (
	QualityBest   Quality = "best"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
	QualityAudio  Quality = "audio"
)

// QualityOption pairs a preset with the label shown in the prompt.
type QualityOption struct {
	Quality Quality
	Label   string
}

// Qualities lists the presets in prompt order.
var Qualities = []QualityOption{
	{Quality: QualityBest, Label: "Best quality"},
	{Quality: QualityMedium, Label: "Medium quality (up to 720p)"},
	{Quality: QualityLow, Label: "Low quality (up to 480p)"},
	{Quality: QualityAudio, Label: "Audio only"},
}

// ParseQuality maps a config value onto a preset.
func ParseQuality(value string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(value)))
	for _, opt := range Qualities {
		if opt.Quality == q {
			return q, nil
		}
	}
	return "", fmt.Errorf("unknown quality %q", value)
}

// Format returns the downloader's format selector for q.
func (q Quality) Format() string {
	switch q {
	case QualityMedium:
		return "bv*[height<=720]+ba/b"
	case QualityLow:
		return "bv*[height<=480]+ba/b"
	case QualityAudio:
		return "ba/b"
	default:
		return "best"
	}
}

// extraArgs are appended after the format selector.
func (q Quality) extraArgs() []string {
	if q == QualityAudio {
		return []string{"--extract-audio"}
	}
	return nil
}
