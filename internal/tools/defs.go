package tools

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	ToolDownloader = "downloader"
	ToolTranscoder = "transcoder"
	ToolPlayer     = "player"
)

const (
	ytDlpReleaseBase  = "https://github.com/yt-dlp/yt-dlp/releases/latest/download/"
	ffmpegReleaseBase = "https://github.com/BtbN/FFmpeg-Builds/releases/download/latest/"
	ffmpegMacOSZip    = "https://evermeet.cx/ffmpeg/getrelease/ffmpeg/zip"
	vlcWin64Installer = "https://get.videolan.org/vlc/3.0.21/win64/vlc-3.0.21-win64.exe"
)

// Override replaces the artifact source of a catalog tool.
type Override struct {
	URL    string
	SHA256 string
}

// Catalog returns the tool specs for the running platform with every tool
// installed below root.
func Catalog(root string) []ToolSpec {
	home, _ := os.UserHomeDir()
	return catalogFor(runtime.GOOS, runtime.GOARCH, root, home)
}

func catalogFor(goos, goarch, root, home string) []ToolSpec {
	exe := func(base string) string {
		if goos == "windows" {
			return base + ".exe"
		}
		return base
	}

	return []ToolSpec{
		{
			Name:          ToolDownloader,
			Executable:    exe("yt-dlp"),
			ProbeArgs:     []string{"--version"},
			FallbackPaths: fallbackPaths(goos, home, exe("yt-dlp")),
			Artifact:      downloaderArtifact(goos, goarch),
			InstallDir:    filepath.Join(root, ToolDownloader),
			Required:      true,
		},
		{
			Name:          ToolTranscoder,
			Executable:    exe("ffmpeg"),
			ProbeArgs:     []string{"-version"},
			FallbackPaths: fallbackPaths(goos, home, exe("ffmpeg")),
			Artifact:      transcoderArtifact(goos, goarch),
			InstallDir:    filepath.Join(root, ToolTranscoder),
			Required:      true,
		},
		{
			Name:          ToolPlayer,
			Executable:    exe("vlc"),
			ProbeArgs:     []string{"--version"},
			FallbackPaths: playerFallbackPaths(goos, home),
			Artifact:      playerArtifact(goos, goarch),
			InstallDir:    filepath.Join(root, ToolPlayer),
		},
	}
}

func downloaderArtifact(goos, goarch string) *Artifact {
	var asset string
	switch goos {
	case "darwin":
		asset = "yt-dlp_macos"
	case "linux":
		switch goarch {
		case "amd64":
			asset = "yt-dlp_linux"
		case "arm64":
			asset = "yt-dlp_linux_aarch64"
		case "arm":
			asset = "yt-dlp_linux_armv7l"
		}
	case "windows":
		switch goarch {
		case "amd64":
			asset = "yt-dlp.exe"
		case "386":
			asset = "yt-dlp_x86.exe"
		case "arm64":
			asset = "yt-dlp_arm64.exe"
		}
	}
	if asset == "" {
		return nil
	}
	return &Artifact{URL: ytDlpReleaseBase + asset, Kind: Executable{}}
}

func transcoderArtifact(goos, goarch string) *Artifact {
	switch goos {
	case "darwin":
		return &Artifact{URL: ffmpegMacOSZip, Kind: Archive{Format: FormatZip}}
	case "linux":
		switch goarch {
		case "amd64":
			return btbnBuild("ffmpeg-master-latest-linux64-gpl.tar.xz", FormatTarXz)
		case "arm64":
			return btbnBuild("ffmpeg-master-latest-linuxarm64-gpl.tar.xz", FormatTarXz)
		}
	case "windows":
		switch goarch {
		case "amd64":
			return btbnBuild("ffmpeg-master-latest-win64-gpl.zip", FormatZip)
		case "arm64":
			return btbnBuild("ffmpeg-master-latest-winarm64-gpl.zip", FormatZip)
		}
	}
	return nil
}

func btbnBuild(asset string, format ArchiveFormat) *Artifact {
	return &Artifact{
		URL:  ffmpegReleaseBase + asset,
		Kind: Archive{Format: format, Flatten: true, BinDir: "bin"},
	}
}

func playerArtifact(goos, goarch string) *Artifact {
	if goos == "windows" && goarch == "amd64" {
		return &Artifact{
			URL:  vlcWin64Installer,
			Kind: SilentInstaller{Flags: []string{"/L=1033", "/S", "/D={dir}"}},
		}
	}
	return nil
}

func fallbackPaths(goos, home, executable string) []string {
	var dirs []string
	switch goos {
	case "windows":
		dirs = []string{
			filepath.Join(home, "AppData", "Local", "Microsoft", "WinGet", "Links"),
			filepath.Join(home, "scoop", "shims"),
			`C:\ProgramData\chocolatey\bin`,
		}
	case "darwin":
		dirs = []string{"/opt/homebrew/bin", "/usr/local/bin", filepath.Join(home, ".local", "bin")}
	default:
		dirs = []string{"/usr/local/bin", "/usr/bin", filepath.Join(home, ".local", "bin"), "/snap/bin"}
	}
	paths := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if home == "" && !filepath.IsAbs(dir) {
			continue
		}
		paths = append(paths, filepath.Join(dir, executable))
	}
	return paths
}

func playerFallbackPaths(goos, home string) []string {
	switch goos {
	case "windows":
		return []string{
			`C:\Program Files\VideoLAN\VLC\vlc.exe`,
			`C:\Program Files (x86)\VideoLAN\VLC\vlc.exe`,
		}
	case "darwin":
		return []string{"/Applications/VLC.app/Contents/MacOS/VLC"}
	default:
		return fallbackPaths(goos, home, "vlc")
	}
}

// Lookup finds a spec by logical name.
func Lookup(specs []ToolSpec, name string) (ToolSpec, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, spec := range specs {
		if spec.Name == name {
			return spec, true
		}
	}
	return ToolSpec{}, false
}

// Names lists the logical tool names in catalog order.
func Names(specs []ToolSpec) []string {
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return names
}

// WithRequired marks exactly the named tools as required. An empty list keeps
// the catalog defaults.
func WithRequired(specs []ToolSpec, names []string) []ToolSpec {
	if len(names) == 0 {
		return specs
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[strings.ToLower(strings.TrimSpace(name))] = true
	}
	out := make([]ToolSpec, len(specs))
	for i, spec := range specs {
		spec.Required = wanted[spec.Name]
		out[i] = spec
	}
	return out
}

// WithOverrides swaps artifact sources by tool name. A tool without a
// catalog artifact gets a bare executable download.
func WithOverrides(specs []ToolSpec, overrides map[string]Override) []ToolSpec {
	if len(overrides) == 0 {
		return specs
	}
	out := make([]ToolSpec, len(specs))
	for i, spec := range specs {
		if ov, ok := overrides[spec.Name]; ok {
			artifact := Artifact{Kind: Executable{}}
			if spec.Artifact != nil {
				artifact = *spec.Artifact
			}
			if url := strings.TrimSpace(ov.URL); url != "" {
				artifact.URL = url
			}
			if sum := strings.TrimSpace(ov.SHA256); sum != "" {
				artifact.SHA256 = strings.ToLower(sum)
			}
			if artifact.URL != "" {
				spec.Artifact = &artifact
			}
		}
		out[i] = spec
	}
	return out
}
