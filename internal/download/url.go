package download

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned for input that is not a single YouTube video link.
var ErrInvalidURL = errors.New("invalid YouTube URL")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var watchHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
}

// NormalizeURL checks that raw points at one YouTube video and returns the
// canonical watch URL. Playlist, radio and tracking parameters are dropped;
// a start time is kept.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidURL)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	query := parsed.Query()
	var id string
	switch {
	case host == "youtu.be":
		id = strings.Trim(parsed.Path, "/")
	case watchHosts[host]:
		segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		switch {
		case len(segments) == 1 && segments[0] == "watch":
			id = query.Get("v")
		case len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "live"):
			id = segments[1]
		}
	default:
		return "", fmt.Errorf("%w: %s is not a YouTube host", ErrInvalidURL, parsed.Host)
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: no video id found", ErrInvalidURL)
	}

	canonical := url.Values{"v": {id}}
	if t := query.Get("t"); t != "" {
		canonical.Set("t", t)
	}
	return "https://www.youtube.com/watch?" + canonical.Encode(), nil
}
