package tools

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"

	"grabvid/internal/proc"
)

func exeName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// artifactHost serves a fixed payload and counts requests.
type artifactHost struct {
	*httptest.Server
	hits atomic.Int32
}

func newArtifactHost(t *testing.T, body []byte) *artifactHost {
	t.Helper()
	host := &artifactHost{}
	host.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host.hits.Add(1)
		if r.Header.Get("User-Agent") == "" {
			http.Error(w, "missing user agent", http.StatusBadRequest)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(host.Close)
	return host
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// pathRunner resolves commands against the search path like the real runner
// but never spawns anything.
type pathRunner struct {
	calls []string
	args  [][]string
	onRun func(path string, args []string) error
}

func (r *pathRunner) Run(_ context.Context, command string, args []string, opts proc.RunOptions) (proc.RunResult, error) {
	r.calls = append(r.calls, command)
	r.args = append(r.args, append([]string(nil), args...))
	path := command
	if opts.Path != nil {
		resolved, err := opts.Path.LookPath(command)
		if err != nil {
			return proc.RunResult{}, &proc.StartError{Command: command, Err: err}
		}
		path = resolved
	}
	if r.onRun != nil {
		if err := r.onRun(path, args); err != nil {
			return proc.RunResult{Path: path}, err
		}
	}
	return proc.RunResult{Path: path, Stdout: []byte("1.0.0\n")}, nil
}

func testSpec(root, name string, artifact *Artifact) ToolSpec {
	return ToolSpec{
		Name:       name,
		Executable: exeName(name),
		ProbeArgs:  []string{"--version"},
		Artifact:   artifact,
		InstallDir: filepath.Join(root, name),
		Required:   true,
	}
}

func newTestInstaller(root string, sp *proc.SearchPath, runner proc.Runner) *Installer {
	logger := log.New(io.Discard)
	return &Installer{
		Fetcher: &Fetcher{Runner: runner, Path: sp, Logger: logger},
		Path:    sp,
		Root:    root,
		Logger:  logger,
	}
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
