package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const manifestFileName = "manifest.json"

func manifestPath(root string) string {
	return filepath.Join(root, manifestFileName)
}

// LoadManifest reads the install manifest under root. A missing file yields an
// empty manifest.
func LoadManifest(root string) (Manifest, error) {
	contents, err := os.ReadFile(manifestPath(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{Entries: map[string]ManifestEntry{}}, nil
		}
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(contents, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if manifest.Entries == nil {
		manifest.Entries = map[string]ManifestEntry{}
	}
	return manifest, nil
}

func saveManifest(root string, m Manifest) error {
	path := manifestPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare manifest directory: %w", err)
	}

	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// recordInstall stores the result of a completed install. The manifest is
// informational; the installed file itself is the "already installed" marker.
func recordInstall(root string, spec ToolSpec, source Source, location string) error {
	manifest, err := LoadManifest(root)
	if err != nil {
		return err
	}

	entry := ManifestEntry{
		Tool:        spec.Name,
		Source:      source,
		Path:        location,
		InstalledAt: time.Now().UTC().Format(time.RFC3339),
	}
	if source == SourceRemote && spec.Artifact != nil {
		entry.URL = spec.Artifact.URL
	}
	if sum, err := computeChecksum(location); err == nil {
		entry.Checksum = sum
	}

	manifest.Entries[spec.Name] = entry
	return saveManifest(root, manifest)
}
