package tools

import (
	"context"
	"path/filepath"
)

type Source string

const (
	SourceUnknown  Source = ""
	SourcePath     Source = "path"
	SourceFallback Source = "fallback"
	SourceTarget   Source = "target"
	SourceLocal    Source = "local"
	SourceRemote   Source = "remote"
)

// ArtifactKind is the closed set of placement strategies. Each variant knows
// how to place itself into a tool's install directory.
type ArtifactKind interface {
	String() string
	binDir(installDir string) string
	place(ctx context.Context, in *Installer, spec ToolSpec) error
}

// Executable is a remote payload that is the program itself.
type Executable struct{}

func (Executable) String() string { return "executable" }

func (Executable) binDir(installDir string) string { return installDir }

type ArchiveFormat string

const (
	FormatZip   ArchiveFormat = "zip"
	FormatTarGz ArchiveFormat = "tar.gz"
	FormatTarXz ArchiveFormat = "tar.xz"
)

// Archive is a compressed payload holding the executable at BinDir after
// extraction. Flatten drops the archive's top-level directory.
type Archive struct {
	Format  ArchiveFormat
	Flatten bool
	BinDir  string
}

func (a Archive) String() string { return "archive/" + string(a.Format) }

func (a Archive) binDir(installDir string) string {
	if a.BinDir == "" {
		return installDir
	}
	return filepath.Join(installDir, filepath.FromSlash(a.BinDir))
}

// SilentInstaller is a self-installing program run unattended. A "{dir}"
// placeholder in Flags is replaced with the install directory.
type SilentInstaller struct {
	Flags []string
}

func (SilentInstaller) String() string { return "installer" }

func (SilentInstaller) binDir(installDir string) string { return installDir }

// Artifact describes where a tool comes from.
type Artifact struct {
	URL    string
	SHA256 string
	Kind   ArtifactKind
}

// ToolSpec describes one installable dependency.
type ToolSpec struct {
	Name          string
	Executable    string
	ProbeArgs     []string
	FallbackPaths []string
	Artifact      *Artifact
	InstallDir    string
	Required      bool
}

// BinDir is the directory that must be on the search path for the tool.
func (s ToolSpec) BinDir() string {
	if s.Artifact == nil || s.Artifact.Kind == nil {
		return s.InstallDir
	}
	return s.Artifact.Kind.binDir(s.InstallDir)
}

// TargetPath is the final location of the executable once installed.
func (s ToolSpec) TargetPath() string {
	return filepath.Join(s.BinDir(), s.Executable)
}

type OutcomeKind int

const (
	Failed OutcomeKind = iota
	AlreadyAvailable
	Installed
)

func (k OutcomeKind) String() string {
	switch k {
	case AlreadyAvailable:
		return "available"
	case Installed:
		return "installed"
	default:
		return "failed"
	}
}

// Outcome is the result of making a tool available.
type Outcome struct {
	Tool     string
	Kind     OutcomeKind
	Location string
	Source   Source
	Err      error
}

func (o Outcome) OK() bool { return o.Kind != Failed }

// Status captures the resolved state for a catalog tool.
type Status struct {
	Tool        string   `json:"tool"`
	Executable  string   `json:"executable"`
	Required    bool     `json:"required"`
	Available   bool     `json:"available"`
	Source      Source   `json:"source,omitempty"`
	Path        string   `json:"path,omitempty"`
	Version     string   `json:"version,omitempty"`
	Target      string   `json:"target"`
	InstalledAt string   `json:"installed_at,omitempty"`
	Checksum    string   `json:"checksum,omitempty"`
	Error       string   `json:"error,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}

// ManifestEntry records an install performed by grabvid.
type ManifestEntry struct {
	Tool        string `json:"tool"`
	Source      Source `json:"source"`
	Path        string `json:"path"`
	URL         string `json:"url,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
	InstalledAt string `json:"installed_at,omitempty"`
}

// Manifest wraps persisted entries for quick lookup.
type Manifest struct {
	Entries map[string]ManifestEntry `json:"entries"`
}
