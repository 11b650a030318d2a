package proc

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// SearchPath is the ordered list of directories consulted when a bare
// executable name is spawned. It starts as a copy of the process PATH and only
// ever grows at the front; the real process environment is never touched.
// Every spawn site receives it explicitly through RunOptions.
type SearchPath struct {
	dirs []string
}

// NewSearchPath parses a PATH-style list using the platform separator.
func NewSearchPath(value string) *SearchPath {
	sp := &SearchPath{}
	for _, dir := range filepath.SplitList(value) {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		sp.dirs = append(sp.dirs, dir)
	}
	return sp
}

// FromEnv snapshots the current process PATH.
func FromEnv() *SearchPath {
	return NewSearchPath(os.Getenv("PATH"))
}

// Dirs returns a copy of the directories in lookup order.
func (sp *SearchPath) Dirs() []string {
	out := make([]string, len(sp.dirs))
	copy(out, sp.dirs)
	return out
}

// Contains reports whether dir is already part of the search path.
func (sp *SearchPath) Contains(dir string) bool {
	for _, existing := range sp.dirs {
		if sameDir(existing, dir) {
			return true
		}
	}
	return false
}

// Prepend puts dir in front of the search path. A directory that is already
// present is left where it is, so repeated registration is a no-op. It
// reports whether the list changed.
func (sp *SearchPath) Prepend(dir string) bool {
	dir = strings.TrimSpace(dir)
	if dir == "" || sp.Contains(dir) {
		return false
	}
	sp.dirs = append([]string{filepath.Clean(dir)}, sp.dirs...)
	return true
}

// String renders the list with the platform separator.
func (sp *SearchPath) String() string {
	return strings.Join(sp.dirs, string(os.PathListSeparator))
}

// Environ returns the current process environment with PATH replaced by the
// search path, ready to hand to a child process.
func (sp *SearchPath) Environ() []string {
	base := os.Environ()
	env := make([]string, 0, len(base)+1)
	for _, kv := range base {
		key, _, ok := strings.Cut(kv, "=")
		if ok && isPathKey(key) {
			continue
		}
		env = append(env, kv)
	}
	return append(env, "PATH="+sp.String())
}

// LookPath resolves name against the search path the way the operating
// system would. Names containing a path separator are checked as given.
func (sp *SearchPath) LookPath(name string) (string, error) {
	if name == "" {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		if path, ok := findExecutable(name); ok {
			return path, nil
		}
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	for _, dir := range sp.dirs {
		if path, ok := findExecutable(filepath.Join(dir, name)); ok {
			return path, nil
		}
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

func findExecutable(candidate string) (string, bool) {
	if runtime.GOOS != "windows" {
		if isExecutable(candidate) {
			return candidate, true
		}
		return "", false
	}
	if filepath.Ext(candidate) != "" && isExecutable(candidate) {
		return candidate, true
	}
	for _, ext := range windowsExts() {
		if path := candidate + ext; isExecutable(path) {
			return path, true
		}
	}
	return "", false
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

func windowsExts() []string {
	raw := os.Getenv("PATHEXT")
	if raw == "" {
		return []string{".com", ".exe", ".bat", ".cmd"}
	}
	var exts []string
	for _, ext := range strings.Split(strings.ToLower(raw), ";") {
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}

func isPathKey(key string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(key, "PATH")
	}
	return key == "PATH"
}

func sameDir(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// IsNotFound reports whether err is a lookup failure from LookPath.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
