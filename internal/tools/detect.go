package tools

import (
	"context"
	"errors"
	"path/filepath"

	"grabvid/internal/proc"
)

// Detect probes every spec without installing anything. Tools that are not on
// the search path but already sit at their target path are reported as
// available from the target. Manifest details are attached when the manifest
// describes the resolved location.
func Detect(ctx context.Context, runner proc.Runner, sp *proc.SearchPath, specs []ToolSpec, root string) ([]Status, error) {
	manifest, err := LoadManifest(root)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(specs))
	for _, spec := range specs {
		st := detectOne(ctx, runner, sp, spec)
		if entry, ok := manifest.Entries[spec.Name]; ok && st.Path != "" && samePath(entry.Path, st.Path) {
			st.InstalledAt = entry.InstalledAt
			st.Checksum = entry.Checksum
			if entry.URL != "" {
				st.Notes = append(st.Notes, "installed from "+entry.URL)
			}
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func detectOne(ctx context.Context, runner proc.Runner, sp *proc.SearchPath, spec ToolSpec) Status {
	st := Status{
		Tool:       spec.Name,
		Executable: spec.Executable,
		Required:   spec.Required,
		Target:     spec.TargetPath(),
	}

	res, err := Probe(ctx, runner, sp, spec)
	switch {
	case err == nil:
		st.Available = true
		st.Source = res.Via
		st.Path = res.Location
		st.Version = res.Version
	case errors.Is(err, ErrUnavailable) && fileExists(st.Target):
		st.Available = true
		st.Source = SourceTarget
		st.Path = st.Target
		st.Notes = append(st.Notes, "installed; added to the search path at startup")
	default:
		st.Error = "not found"
		if spec.Artifact == nil {
			st.Notes = append(st.Notes, Hints(spec.Name)...)
		}
	}
	return st
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
