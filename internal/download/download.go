package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"grabvid/internal/logx"
	"grabvid/internal/proc"
)

// OutputTemplate names saved files after the video title.
const OutputTemplate = "%(title)s.%(ext)s"

// Request describes one download. Progress, when set, receives the
// downloader's stdout instead of Downloader.Stdout.
type Request struct {
	URL       string
	SaveDir   string
	Quality   Quality
	ExtraArgs []string
	Progress  io.Writer
}

// Args builds the downloader command line for req.
func Args(req Request) []string {
	args := []string{"-f", req.Quality.Format()}
	args = append(args, req.Quality.extraArgs()...)
	args = append(args, "-o", filepath.Join(req.SaveDir, OutputTemplate))
	args = append(args, req.ExtraArgs...)
	return append(args, req.URL)
}

// Error reports a download the downloader rejected. Detail holds the last
// line the downloader wrote to stderr.
type Error struct {
	URL      string
	ExitCode int
	Detail   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("download %s: %v", e.URL, e.Err)
	if e.ExitCode != 0 {
		msg = fmt.Sprintf("download %s: downloader exited with status %d", e.URL, e.ExitCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Downloader runs the installed downloader through the search path so the
// transcoder it needs for merging is found the same way.
type Downloader struct {
	Runner     proc.Runner
	Path       *proc.SearchPath
	Executable string
	Stdout     io.Writer
	Stderr     io.Writer
	Logger     *log.Logger
}

// Download runs one request to completion.
func (d *Downloader) Download(ctx context.Context, req Request) error {
	logger := d.Logger
	if logger == nil {
		logger = logx.Discard()
	}
	runner := d.Runner
	if runner == nil {
		runner = proc.CmdRunner{}
	}

	args := Args(req)
	logger.Info("starting download", "url", req.URL, "dir", req.SaveDir, "quality", req.Quality)
	logger.Debug("downloader command", "exe", d.Executable, "args", strings.Join(args, " "))

	stdout := d.Stdout
	if req.Progress != nil {
		stdout = req.Progress
	}
	res, err := runner.Run(ctx, d.Executable, args, proc.RunOptions{
		Path:   d.Path,
		Stdout: stdout,
		Stderr: d.Stderr,
	})
	if err == nil {
		logger.Info("download finished", "url", req.URL)
		return nil
	}

	logger.Error("download failed", "url", req.URL, "err", err)
	dlErr := &Error{URL: req.URL, Detail: lastLine(res.Stderr), Err: err}
	var exitErr *proc.ExitError
	if errors.As(err, &exitErr) {
		dlErr.ExitCode = exitErr.Code
	}
	if proc.IsNotFound(err) {
		dlErr.Detail = d.Executable + " is not on the search path"
	}
	return dlErr
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// CheckSaveDir expands a leading "~" and verifies dir is an existing
// directory. The cleaned absolute path is returned.
func CheckSaveDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.New("enter a folder")
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") || strings.HasPrefix(dir, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		dir = filepath.Join(home, dir[1:])
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("the folder %s does not exist", abs)
	}
	return abs, nil
}
