package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	"grabvid/internal/proc"
	"grabvid/internal/tools"
)

func exeName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// lookupRunner resolves commands through the search path without spawning.
type lookupRunner struct {
	calls []string
}

func (r *lookupRunner) Run(_ context.Context, command string, _ []string, opts proc.RunOptions) (proc.RunResult, error) {
	r.calls = append(r.calls, command)
	path, err := opts.Path.LookPath(command)
	if err != nil {
		return proc.RunResult{}, &proc.StartError{Command: command, Err: err}
	}
	return proc.RunResult{Path: path, Stdout: []byte("2024.07.16\n")}, nil
}

type recordingReporter struct {
	events []string
}

func (r *recordingReporter) Probing(spec tools.ToolSpec)    { r.events = append(r.events, "probe "+spec.Name) }
func (r *recordingReporter) Installing(spec tools.ToolSpec) { r.events = append(r.events, "install "+spec.Name) }
func (r *recordingReporter) Finished(out tools.Outcome) {
	r.events = append(r.events, out.Kind.String()+" "+out.Tool)
}

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, exeName(name))
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho 1.0\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func toolSpec(root, name string) tools.ToolSpec {
	return tools.ToolSpec{
		Name:       name,
		Executable: exeName(name),
		ProbeArgs:  []string{"--version"},
		InstallDir: filepath.Join(root, name),
		Required:   true,
	}
}

func newBootstrapper(root string, sp *proc.SearchPath, runner proc.Runner, rep Reporter) *Bootstrapper {
	logger := log.New(io.Discard)
	return &Bootstrapper{
		Runner: runner,
		Path:   sp,
		Installer: &tools.Installer{
			Fetcher: &tools.Fetcher{Runner: runner, Path: sp, Logger: logger},
			Path:    sp,
			Root:    root,
			Logger:  logger,
		},
		Reporter: rep,
		Logger:   logger,
	}
}

func TestBootstrapToolsAlreadyOnPath(t *testing.T) {
	root := t.TempDir()
	binDir := filepath.Join(root, "bin")
	writeExecutable(t, binDir, "yt-dlp")
	writeExecutable(t, binDir, "ffmpeg")

	sp := proc.NewSearchPath(binDir)
	rep := &recordingReporter{}
	b := newBootstrapper(root, sp, &lookupRunner{}, rep)

	outcomes, err := b.Run(context.Background(), []tools.ToolSpec{toolSpec(root, "yt-dlp"), toolSpec(root, "ffmpeg")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, out := range outcomes {
		if out.Kind != tools.AlreadyAvailable || out.Source != tools.SourcePath {
			t.Fatalf("unexpected outcome %+v", out)
		}
	}
	want := []string{"probe yt-dlp", "available yt-dlp", "probe ffmpeg", "available ffmpeg"}
	if !slices.Equal(rep.events, want) {
		t.Fatalf("events = %v, want %v", rep.events, want)
	}
	if got := sp.Dirs(); len(got) != 1 {
		t.Fatalf("search path should be untouched, got %v", got)
	}
}

func TestBootstrapPrependsFallbackDir(t *testing.T) {
	root := t.TempDir()
	fallbackDir := filepath.Join(root, "fallback")
	fallback := writeExecutable(t, fallbackDir, "yt-dlp")

	sp := proc.NewSearchPath(filepath.Join(root, "empty"))
	runner := &lookupRunner{}
	b := newBootstrapper(root, sp, runner, nil)

	s := toolSpec(root, "yt-dlp")
	s.FallbackPaths = []string{filepath.Join(root, "missing", exeName("yt-dlp")), fallback}

	outcomes, err := b.Run(context.Background(), []tools.ToolSpec{s})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcomes[0].Source != tools.SourceFallback || outcomes[0].Location != fallback {
		t.Fatalf("unexpected outcome %+v", outcomes[0])
	}
	if dirs := sp.Dirs(); len(dirs) == 0 || dirs[0] != fallbackDir {
		t.Fatalf("fallback dir not prepended: %v", dirs)
	}
	if _, err := sp.LookPath(exeName("yt-dlp")); err != nil {
		t.Fatalf("tool should resolve through the search path: %v", err)
	}
}

func TestBootstrapInstallsMissingTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell payload")
	}
	payload := []byte("#!/bin/sh\necho 2024.07.16\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	root := t.TempDir()
	sp := proc.NewSearchPath(filepath.Join(root, "empty"))
	rep := &recordingReporter{}
	b := newBootstrapper(root, sp, &lookupRunner{}, rep)

	s := toolSpec(root, "yt-dlp")
	s.Artifact = &tools.Artifact{URL: srv.URL + "/yt-dlp", Kind: tools.Executable{}}

	outcomes, err := b.Run(context.Background(), []tools.ToolSpec{s})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcomes[0].Kind != tools.Installed || outcomes[0].Source != tools.SourceRemote {
		t.Fatalf("unexpected outcome %+v", outcomes[0])
	}
	if outcomes[0].Location != s.TargetPath() {
		t.Fatalf("location = %q, want %q", outcomes[0].Location, s.TargetPath())
	}
	if dirs := sp.Dirs(); dirs[0] != s.BinDir() {
		t.Fatalf("install dir not prepended: %v", dirs)
	}
	want := []string{"probe yt-dlp", "install yt-dlp", "installed yt-dlp"}
	if !slices.Equal(rep.events, want) {
		t.Fatalf("events = %v, want %v", rep.events, want)
	}
}

func TestBootstrapStopsAtFirstFailure(t *testing.T) {
	root := t.TempDir()
	sp := proc.NewSearchPath(filepath.Join(root, "empty"))
	runner := &lookupRunner{}
	b := newBootstrapper(root, sp, runner, nil)

	first := toolSpec(root, "yt-dlp")
	second := toolSpec(root, "ffmpeg")

	outcomes, err := b.Run(context.Background(), []tools.ToolSpec{first, second})
	var depErr *DependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected DependencyError, got %v", err)
	}
	if depErr.Tool != "yt-dlp" {
		t.Fatalf("tool = %q", depErr.Tool)
	}
	if !errors.Is(err, tools.ErrNoArtifact) {
		t.Fatalf("expected ErrNoArtifact in chain, got %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Kind != tools.Failed {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
	if slices.Contains(runner.calls, exeName("ffmpeg")) {
		t.Fatalf("second tool should not be probed: %v", runner.calls)
	}
	if _, err := os.Stat(first.TargetPath()); !os.IsNotExist(err) {
		t.Fatalf("target should not exist after failure")
	}
}

func TestBootstrapSkipsOptionalTools(t *testing.T) {
	root := t.TempDir()
	binDir := filepath.Join(root, "bin")
	writeExecutable(t, binDir, "yt-dlp")

	sp := proc.NewSearchPath(binDir)
	runner := &lookupRunner{}
	b := newBootstrapper(root, sp, runner, nil)

	optional := toolSpec(root, "vlc")
	optional.Required = false

	outcomes, err := b.Run(context.Background(), []tools.ToolSpec{toolSpec(root, "yt-dlp"), optional})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected only the required tool, got %+v", outcomes)
	}
	if slices.Contains(runner.calls, exeName("vlc")) {
		t.Fatalf("optional tool was probed")
	}
}

func TestBootstrapHonoursCancellation(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &lookupRunner{}
	b := newBootstrapper(root, proc.NewSearchPath(""), runner, nil)
	_, err := b.Run(ctx, []tools.ToolSpec{toolSpec(root, "yt-dlp")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("nothing should run after cancellation: %v", runner.calls)
	}
}

func TestBootstrapExistingInstallIsNotReportedAsInstalling(t *testing.T) {
	root := t.TempDir()
	s := toolSpec(root, "yt-dlp")
	s.Artifact = &tools.Artifact{URL: "http://127.0.0.1:1/unreachable", Kind: tools.Executable{}}
	writeExecutable(t, s.InstallDir, "yt-dlp")

	sp := proc.NewSearchPath(filepath.Join(root, "empty"))
	rep := &recordingReporter{}
	b := newBootstrapper(root, sp, &lookupRunner{}, rep)

	outcomes, err := b.Run(context.Background(), []tools.ToolSpec{s})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcomes[0].Kind != tools.AlreadyAvailable || outcomes[0].Source != tools.SourceTarget {
		t.Fatalf("unexpected outcome %+v", outcomes[0])
	}
	want := []string{"probe yt-dlp", "available yt-dlp"}
	if !slices.Equal(rep.events, want) {
		t.Fatalf("events = %v, want %v", rep.events, want)
	}
	if dirs := sp.Dirs(); dirs[0] != s.BinDir() {
		t.Fatalf("install dir not registered: %v", dirs)
	}
}
