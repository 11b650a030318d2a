package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"grabvid/internal/config"
)

// EnvHome overrides the application data directory.
const EnvHome = "GRABVID_HOME"

const appName = "grabvid"

// AppPaths captures canonical per-user locations.
type AppPaths struct {
	Home       string
	ConfigFile string
	ToolsDir   string
	LogsDir    string
}

// Resolve determines the application home using the optional --home flag,
// then GRABVID_HOME, then the platform's per-user data directory.
func Resolve(homeFlag string) (AppPaths, error) {
	root := strings.TrimSpace(homeFlag)
	if root == "" {
		userHome, _ := os.UserHomeDir()
		root = dataHome(runtime.GOOS, os.Getenv, userHome)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return AppPaths{}, fmt.Errorf("resolve app home: %w", err)
	}
	return newAppPaths(abs), nil
}

func newAppPaths(root string) AppPaths {
	return AppPaths{
		Home:       root,
		ConfigFile: filepath.Join(root, "config.yaml"),
		ToolsDir:   filepath.Join(root, "tools"),
		LogsDir:    filepath.Join(root, "logs"),
	}
}

// dataHome picks the application directory. The hardcoded fallback is only
// used when neither the environment nor the user's home can be resolved.
func dataHome(goos string, getenv func(string) string, userHome string) string {
	if v := strings.TrimSpace(getenv(EnvHome)); v != "" {
		return v
	}

	switch goos {
	case "windows":
		for _, key := range []string{"APPDATA", "LOCALAPPDATA"} {
			if v := strings.TrimSpace(getenv(key)); v != "" {
				return filepath.Join(v, appName)
			}
		}
		if userHome != "" {
			return filepath.Join(userHome, "AppData", "Roaming", appName)
		}
		return `C:\` + appName
	case "darwin":
		if userHome != "" {
			return filepath.Join(userHome, "Library", "Application Support", appName)
		}
	default:
		if v := strings.TrimSpace(getenv("XDG_DATA_HOME")); v != "" && filepath.IsAbs(v) {
			return filepath.Join(v, appName)
		}
		if userHome != "" {
			return filepath.Join(userHome, ".local", "share", appName)
		}
	}
	return filepath.Join(os.TempDir(), appName)
}

// ApplyConfig applies the tools_dir override. Relative values are taken from
// the application home.
func ApplyConfig(p AppPaths, cfg config.Config) AppPaths {
	if dir := strings.TrimSpace(cfg.ToolsDir); dir != "" {
		if filepath.IsAbs(dir) {
			p.ToolsDir = filepath.Clean(dir)
		} else {
			p.ToolsDir = filepath.Join(p.Home, dir)
		}
	}
	return p
}

// EnsureDirs creates the home, tools and logs directories.
func (p AppPaths) EnsureDirs() error {
	for _, dir := range []string{p.Home, p.ToolsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LocalToolDirs lists directories checked for pre-seeded tool copies: the
// working directory first, then the directory holding the running binary.
func LocalToolDirs() []string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		if len(dirs) == 0 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
