package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"grabvid/internal/proc"
)

const staleLockAge = 30 * time.Minute

// InstallOptions configures install behaviour.
type InstallOptions struct {
	Force bool
}

// Installer makes tools available at their target paths and registers their
// directories on the search path.
type Installer struct {
	Fetcher   *Fetcher
	Path      *proc.SearchPath
	LocalDirs []string
	Root      string
	Logger    *log.Logger
}

func (in *Installer) log() *log.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return log.New(io.Discard)
}

func (in *Installer) fetcher() *Fetcher {
	if in.Fetcher != nil {
		return in.Fetcher
	}
	return &Fetcher{Path: in.Path, Logger: in.Logger}
}

// Install ensures spec is present at its target path. An existing target
// short-circuits without touching the network; a same-named file in one of
// LocalDirs is copied instead of downloading. Partial work is staged next to
// the target and only renamed into place when complete.
func (in *Installer) Install(ctx context.Context, spec ToolSpec, opts InstallOptions) Outcome {
	target := spec.TargetPath()

	if !opts.Force && fileExists(target) {
		in.register(spec)
		in.log().Debug("tool already installed", "tool", spec.Name, "path", target)
		return Outcome{Tool: spec.Name, Kind: AlreadyAvailable, Location: target, Source: SourceTarget}
	}

	if in.Root != "" {
		unlock, err := in.acquireLock(ctx, spec.Name)
		if err != nil {
			return Outcome{Tool: spec.Name, Kind: Failed, Err: err}
		}
		defer unlock()

		// Another process may have finished the install while we waited.
		if !opts.Force && fileExists(target) {
			in.register(spec)
			in.log().Debug("tool installed by another process", "tool", spec.Name, "path", target)
			return Outcome{Tool: spec.Name, Kind: AlreadyAvailable, Location: target, Source: SourceTarget}
		}
	}

	source := SourceRemote
	var err error
	if local, ok := in.localCopy(spec); ok {
		source = SourceLocal
		in.log().Info("copying local tool", "tool", spec.Name, "from", local, "to", target)
		err = copyLocal(local, spec)
	} else {
		err = in.fetch(ctx, spec)
	}
	if err != nil {
		in.log().Error("install failed", "tool", spec.Name, "err", err)
		return Outcome{Tool: spec.Name, Kind: Failed, Err: fmt.Errorf("install %s: %w", spec.Name, err)}
	}

	in.register(spec)
	if in.Root != "" {
		if err := recordInstall(in.Root, spec, source, target); err != nil {
			in.log().Warn("manifest update failed", "tool", spec.Name, "err", err)
		}
	}
	in.log().Info("tool installed", "tool", spec.Name, "path", target, "source", source)
	return Outcome{Tool: spec.Name, Kind: Installed, Location: target, Source: source}
}

func (in *Installer) register(spec ToolSpec) {
	if in.Path == nil {
		return
	}
	if in.Path.Prepend(spec.BinDir()) {
		in.log().Debug("search path updated", "dir", spec.BinDir())
	}
}

func (in *Installer) localCopy(spec ToolSpec) (string, bool) {
	target := filepath.Clean(spec.TargetPath())
	for _, dir := range in.LocalDirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, spec.Executable)
		if filepath.Clean(candidate) == target {
			continue
		}
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (in *Installer) fetch(ctx context.Context, spec ToolSpec) error {
	if spec.Artifact == nil || spec.Artifact.Kind == nil || spec.Artifact.URL == "" {
		return ErrNoArtifact
	}
	return spec.Artifact.Kind.place(ctx, in, spec)
}

func (Executable) place(ctx context.Context, in *Installer, spec ToolSpec) error {
	if err := os.MkdirAll(spec.InstallDir, 0o755); err != nil {
		return ioErr("prepare install dir", spec.InstallDir, err)
	}
	return in.fetcher().FetchFile(ctx, spec.Artifact.URL, spec.TargetPath(), spec.Artifact.SHA256)
}

func (a Archive) place(ctx context.Context, in *Installer, spec ToolSpec) error {
	parent := filepath.Dir(spec.InstallDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return ioErr("prepare tools dir", parent, err)
	}
	staging, err := os.MkdirTemp(parent, "."+spec.Name+"-staging-")
	if err != nil {
		return ioErr("create staging dir", parent, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	if err := in.fetcher().FetchArchive(ctx, spec.Artifact.URL, a.Format, staging, a.Flatten, spec.Artifact.SHA256); err != nil {
		return err
	}

	staged := filepath.Join(a.binDir(staging), spec.Executable)
	if !fileExists(staged) {
		rel := strings.TrimPrefix(filepath.ToSlash(filepath.Join(a.BinDir, spec.Executable)), "/")
		return &ArchiveFormatError{Path: spec.Artifact.URL, Err: fmt.Errorf("%s not found in archive", rel)}
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(staged, 0o755); err != nil {
			return ioErr("chmod", staged, err)
		}
	}

	if err := os.RemoveAll(spec.InstallDir); err != nil {
		return ioErr("replace install dir", spec.InstallDir, err)
	}
	if err := os.Rename(staging, spec.InstallDir); err != nil {
		return ioErr("commit install dir", spec.InstallDir, err)
	}
	committed = true
	return nil
}

// place for installers runs against the final directory: installers record
// their own location, so the result cannot be moved afterwards.
func (s SilentInstaller) place(ctx context.Context, in *Installer, spec ToolSpec) error {
	if err := os.MkdirAll(spec.InstallDir, 0o755); err != nil {
		return ioErr("prepare install dir", spec.InstallDir, err)
	}
	args := make([]string, len(s.Flags))
	for i, flag := range s.Flags {
		args[i] = strings.ReplaceAll(flag, "{dir}", spec.InstallDir)
	}
	if err := in.fetcher().RunInstaller(ctx, spec.Artifact.URL, args, filepath.Dir(spec.InstallDir), spec.Artifact.SHA256); err != nil {
		return err
	}
	if !fileExists(spec.TargetPath()) {
		return ioErr("verify install", spec.TargetPath(), os.ErrNotExist)
	}
	return nil
}

func copyLocal(src string, spec ToolSpec) error {
	dir := spec.BinDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioErr("prepare install dir", dir, err)
	}

	source, err := os.Open(src)
	if err != nil {
		return ioErr("open", src, err)
	}
	defer source.Close()

	tmp, err := os.CreateTemp(dir, ".copy-*")
	if err != nil {
		return ioErr("create temp file", dir, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := io.Copy(tmp, source); err != nil {
		tmp.Close()
		return ioErr("copy", src, err)
	}
	if err := tmp.Close(); err != nil {
		return ioErr("close", tmpPath, err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0o755); err != nil {
			return ioErr("chmod", tmpPath, err)
		}
	}
	if err := os.Rename(tmpPath, spec.TargetPath()); err != nil {
		return ioErr("finalize", spec.TargetPath(), err)
	}
	return nil
}

// acquireLock takes the per-tool lock under Root. The lock file holds the
// owner's PID; a lock whose owner is gone, or that is older than
// staleLockAge, is taken over.
func (in *Installer) acquireLock(ctx context.Context, tool string) (func(), error) {
	if err := os.MkdirAll(in.Root, 0o755); err != nil {
		return nil, ioErr("prepare tools root", in.Root, err)
	}

	lockPath := filepath.Join(in.Root, fmt.Sprintf("%s.lock", tool))
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	waiting := false
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, ioErr("acquire lock", lockPath, err)
		}

		owner, stale := inspectLock(lockPath)
		if stale {
			in.log().Warn("removing stale install lock", "tool", tool, "lock", lockPath, "pid", owner)
			_ = os.Remove(lockPath)
			continue
		}
		if !waiting {
			waiting = true
			in.log().Info("waiting for another install to finish", "tool", tool, "lock", lockPath, "pid", owner)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// inspectLock reads the owner PID from a lock file and reports whether the
// lock can be taken over. A lock without a readable PID is only stale once it
// is older than staleLockAge, since its owner may still be writing it.
func inspectLock(lockPath string) (int, bool) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return 0, false
	}
	if time.Since(info.ModTime()) > staleLockAge {
		return 0, true
	}
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, !processAlive(pid)
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	if runtime.GOOS == "windows" {
		// FindProcess opens a handle on Windows and fails for unknown PIDs.
		_ = p.Release()
		return true
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, os.ErrPermission)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
