package tools

import "runtime"

// Hints returns manual install suggestions for when automatic installation
// is not possible on this platform.
func Hints(tool string) []string {
	return hintsFor(tool, runtime.GOOS)
}

func hintsFor(tool, goos string) []string {
	switch tool {
	case ToolDownloader:
		switch goos {
		case "darwin":
			return []string{"Install yt-dlp via Homebrew: brew install yt-dlp"}
		case "windows":
			return []string{"Install yt-dlp via winget: winget install yt-dlp.yt-dlp"}
		default:
			return []string{
				"Install yt-dlp with your distro package manager, e.g. sudo apt install yt-dlp",
				"or with pipx: pipx install yt-dlp",
			}
		}
	case ToolTranscoder:
		switch goos {
		case "darwin":
			return []string{"Install ffmpeg via Homebrew: brew install ffmpeg"}
		case "windows":
			return []string{
				"Install ffmpeg via winget: winget install Gyan.FFmpeg",
				"or via Chocolatey: choco install ffmpeg",
			}
		default:
			return []string{"Install ffmpeg with your distro package manager, e.g. sudo apt install ffmpeg"}
		}
	case ToolPlayer:
		switch goos {
		case "darwin":
			return []string{"Install VLC via Homebrew: brew install --cask vlc"}
		case "windows":
			return []string{"Install VLC via winget: winget install VideoLAN.VLC"}
		default:
			return []string{"Install VLC with your distro package manager, e.g. sudo apt install vlc"}
		}
	}
	return nil
}
