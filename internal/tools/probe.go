package tools

import (
	"context"
	"os"
	"path/filepath"

	"grabvid/internal/proc"
)

// ProbeResult reports whether a tool can be invoked right now.
type ProbeResult struct {
	Available bool
	Location  string
	Version   string
	Via       Source
}

// Probe checks whether spec's executable can be launched through the search
// path. A launch that exits non-zero still counts: version switches are not
// reliable about exit codes. When the launch fails the fallback locations are
// tried in order. ErrUnavailable is returned when nothing is found.
func Probe(ctx context.Context, runner proc.Runner, sp *proc.SearchPath, spec ToolSpec) (ProbeResult, error) {
	res, err := runner.Run(ctx, spec.Executable, spec.ProbeArgs, proc.RunOptions{Path: sp})
	if proc.Launched(err) {
		location := res.Path
		if location == "" {
			location, _ = sp.LookPath(spec.Executable)
		}
		return ProbeResult{
			Available: true,
			Location:  location,
			Version:   parseVersion(res.Stdout, res.Stderr),
			Via:       SourcePath,
		}, nil
	}

	for _, candidate := range spec.FallbackPaths {
		if candidate == "" {
			continue
		}
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return ProbeResult{Available: true, Location: filepath.Clean(candidate), Via: SourceFallback}, nil
		}
	}

	return ProbeResult{}, ErrUnavailable
}
