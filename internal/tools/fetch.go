package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"grabvid/internal/proc"
)

const defaultUserAgent = "grabvid/1.0"

// Fetcher retrieves remote artifacts. Every operation is a single attempt;
// nothing is retried.
type Fetcher struct {
	Client    *http.Client
	Runner    proc.Runner
	Path      *proc.SearchPath
	UserAgent string
	Logger    *log.Logger
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *Fetcher) runner() proc.Runner {
	if f.Runner != nil {
		return f.Runner
	}
	return proc.CmdRunner{}
}

func (f *Fetcher) log() *log.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return log.New(io.Discard)
}

// FetchFile downloads url and writes it verbatim to dest. The bytes land in a
// temporary sibling first and are renamed over dest only once complete.
func (f *Fetcher) FetchFile(ctx context.Context, downloadURL, dest, checksum string) error {
	tmpPath, err := f.download(ctx, downloadURL, filepath.Dir(dest), ".download-*", checksum)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0o755); err != nil {
			return ioErr("chmod", tmpPath, err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return ioErr("finalize", dest, err)
	}
	return nil
}

// FetchArchive downloads an archive to a temporary file, extracts every entry
// into destDir and removes the temporary file.
func (f *Fetcher) FetchArchive(ctx context.Context, downloadURL string, format ArchiveFormat, destDir string, flatten bool, checksum string) error {
	tmpPath, err := f.download(ctx, downloadURL, filepath.Dir(destDir), ".archive-*", checksum)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return ioErr("prepare extract dir", destDir, err)
	}
	f.log().Debug("extracting archive", "url", downloadURL, "format", format, "dest", destDir, "flatten", flatten)
	return f.extract(ctx, format, tmpPath, destDir, flatten)
}

// RunInstaller downloads a self-installing executable, runs it with args and
// waits for it. The downloaded installer is removed whatever the outcome.
func (f *Fetcher) RunInstaller(ctx context.Context, downloadURL string, args []string, workDir, checksum string) error {
	pattern := "installer-*" + installerExt(downloadURL)
	tmpPath, err := f.download(ctx, downloadURL, workDir, pattern, checksum)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0o755); err != nil {
			return ioErr("chmod", tmpPath, err)
		}
	}

	f.log().Info("running installer", "url", downloadURL, "args", strings.Join(args, " "))
	_, err = f.runner().Run(ctx, tmpPath, args, proc.RunOptions{Path: f.Path})
	if err == nil {
		return nil
	}
	var exitErr *proc.ExitError
	if errors.As(err, &exitErr) {
		return &InstallerExitError{Path: path.Base(downloadURL), ExitCode: exitErr.Code, Err: err}
	}
	return ioErr("run installer", tmpPath, err)
}

func (f *Fetcher) download(ctx context.Context, downloadURL, dir, pattern, checksum string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", &NetworkError{URL: downloadURL, Err: err}
	}
	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	f.log().Info("downloading", "url", downloadURL)
	resp, err := f.client().Do(req)
	if err != nil {
		return "", &NetworkError{URL: downloadURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &NetworkError{URL: downloadURL, Status: resp.Status}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", ioErr("prepare download dir", dir, err)
	}
	tmpFile, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", ioErr("create temp file", dir, err)
	}
	tmpPath := tmpFile.Name()
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	sink := &trackingWriter{w: tmpFile}
	written, err := io.Copy(io.MultiWriter(sink, hasher), resp.Body)
	if err != nil {
		tmpFile.Close()
		if sink.err != nil {
			return "", ioErr("write", tmpPath, sink.err)
		}
		return "", &NetworkError{URL: downloadURL, Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return "", ioErr("close", tmpPath, err)
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	if checksum != "" && !strings.EqualFold(sum, checksum) {
		return "", &ChecksumError{URL: downloadURL, Want: checksum, Got: sum}
	}

	f.log().Debug("download complete", "url", downloadURL, "bytes", written, "sha256", sum)
	keep = true
	return tmpPath, nil
}

// trackingWriter remembers write failures so a failed copy can be blamed on
// the disk rather than the network.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}

func installerExt(downloadURL string) string {
	if parsed, err := url.Parse(downloadURL); err == nil {
		if ext := path.Ext(parsed.Path); ext != "" {
			return ext
		}
	}
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

func computeChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for checksum: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
