package tools

import (
	"regexp"
	"strings"
)

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return strings.TrimSpace(text)
}

var versionRegex = regexp.MustCompile(`[0-9]+(?:\.[0-9]+){1,3}`)

// parseVersion pulls a dotted version out of a probe banner such as
// "ffmpeg version 7.1 Copyright ..." or "2024.07.16". Banners without a
// recognizable number are returned as-is.
func parseVersion(stdout, stderr []byte) string {
	line := firstLine(string(stdout))
	if line == "" {
		line = firstLine(string(stderr))
	}
	if match := versionRegex.FindString(line); match != "" {
		return match
	}
	return line
}
