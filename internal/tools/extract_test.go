package tools

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"grabvid/internal/proc"
)

func TestEntryPath(t *testing.T) {
	tests := []struct {
		name    string
		entry   string
		isDir   bool
		flatten bool
		want    string
		wantErr bool
	}{
		{name: "plain file", entry: "bin/ffmpeg", want: "bin/ffmpeg"},
		{name: "backslashes", entry: `bin\ffmpeg.exe`, want: "bin/ffmpeg.exe"},
		{name: "flatten strips top dir", entry: "ffmpeg-latest/bin/ffmpeg", flatten: true, want: "bin/ffmpeg"},
		{name: "flatten skips top dir entry", entry: "ffmpeg-latest/", isDir: true, flatten: true, want: ""},
		{name: "flatten keeps root file", entry: "README", flatten: true, want: "README"},
		{name: "current dir", entry: "./", isDir: true, want: ""},
		{name: "parent escape", entry: "../evil", wantErr: true},
		{name: "nested escape", entry: "bin/../../evil", wantErr: true},
		{name: "absolute", entry: "/etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := entryPath(tt.entry, tt.isDir, tt.flatten)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.entry, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("entryPath(%q) = %q, want %q", tt.entry, got, tt.want)
			}
		})
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	if err := os.WriteFile(archive, zipBytes(t, map[string]string{"../escaped.txt": "boom"}), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")

	err := extractZip(archive, dest, false)
	var archErr *ArchiveFormatError
	if !errors.As(err, &archErr) {
		t.Fatalf("expected ArchiveFormatError, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escaped.txt")); !os.IsNotExist(err) {
		t.Fatal("traversal entry was written outside the destination")
	}
}

func tarGzBytes(t *testing.T, entries []tar.Header, contents map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, hdr := range entries {
		hdr := hdr
		body := contents[hdr.Name]
		hdr.Size = int64(len(body))
		if err := tw.WriteHeader(&hdr); err != nil {
			t.Fatalf("tar header %s: %v", hdr.Name, err)
		}
		if body != "" {
			if _, err := tw.Write([]byte(body)); err != nil {
				t.Fatalf("tar write %s: %v", hdr.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractTarGzFlatten(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "tool.tar.gz")
	data := tarGzBytes(t, []tar.Header{
		{Name: "tool-1.0/", Typeflag: tar.TypeDir, Mode: 0o755},
		{Name: "tool-1.0/bin/tool", Typeflag: tar.TypeReg, Mode: 0o755},
		{Name: "tool-1.0/link", Typeflag: tar.TypeSymlink, Linkname: "bin/tool"},
	}, map[string]string{"tool-1.0/bin/tool": "#!/bin/sh\n"})
	if err := os.WriteFile(archive, data, 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")

	if err := extractTarGz(archive, dest, true); err != nil {
		t.Fatalf("extract: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "bin", "tool"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(got) != "#!/bin/sh\n" {
		t.Fatalf("unexpected content %q", got)
	}
	if _, err := os.Lstat(filepath.Join(dest, "link")); !os.IsNotExist(err) {
		t.Fatal("expected symlink entries to be skipped")
	}
}

func TestExtractTarGzRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "bad.tar.gz")
	if err := os.WriteFile(archive, []byte("not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}
	var archErr *ArchiveFormatError
	if err := extractTarGz(archive, filepath.Join(dir, "out"), false); !errors.As(err, &archErr) {
		t.Fatalf("expected ArchiveFormatError, got %v", err)
	}
}

func TestExtractTarXzUsesTar(t *testing.T) {
	runner := &recordingRunner{}
	f := &Fetcher{Runner: runner}
	dest := t.TempDir()

	if err := f.extract(context.Background(), FormatTarXz, "/tmp/a.tar.xz", dest, false); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if runner.command != "tar" {
		t.Fatalf("expected tar, got %q", runner.command)
	}
	want := []string{"-xJf", "/tmp/a.tar.xz", "-C", dest}
	if !slices.Equal(runner.args, want) {
		t.Fatalf("expected args %v, got %v", want, runner.args)
	}
}

func TestExtractTarXzFlattensLikeOtherFormats(t *testing.T) {
	// tar keeps a "./" prefix as a directory level, so the unpacked tree is
	// what "./ffmpeg-build/bin/ffmpeg" produces.
	runner := &recordingRunner{onRun: func(outDir string) error {
		for rel, content := range map[string]string{
			"ffmpeg-build/bin/ffmpeg": "binary",
			"ffmpeg-build/LICENSE":    "gpl",
		} {
			target := filepath.Join(outDir, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
				return err
			}
		}
		return nil
	}}
	dest := t.TempDir()

	if err := (&Fetcher{Runner: runner}).extract(context.Background(), FormatTarXz, "a.tar.xz", dest, true); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if data, err := os.ReadFile(filepath.Join(dest, "bin", "ffmpeg")); err != nil || string(data) != "binary" {
		t.Fatalf("expected flattened bin/ffmpeg, got %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dest, "LICENSE")); err != nil {
		t.Fatalf("expected flattened LICENSE: %v", err)
	}
	names := listNames(t, dest)
	slices.Sort(names)
	if !slices.Equal(names, []string{"LICENSE", "bin"}) {
		t.Fatalf("unexpected entries after flatten: %v", names)
	}
	if runner.args[3] == dest {
		t.Fatalf("flattening should unpack into a scratch dir, got -C %s", runner.args[3])
	}
}

func TestExtractTarXzErrors(t *testing.T) {
	missing := &recordingRunner{err: &proc.StartError{Command: "tar", Err: errors.New("not found")}}
	var ioError *IOError
	if err := (&Fetcher{Runner: missing}).extract(context.Background(), FormatTarXz, "a", "b", false); !errors.As(err, &ioError) {
		t.Fatalf("expected IOError when tar cannot start, got %v", err)
	}

	failing := &recordingRunner{err: &proc.ExitError{Command: "tar", Code: 2}, stderr: "xz: corrupt data"}
	var archErr *ArchiveFormatError
	if err := (&Fetcher{Runner: failing}).extract(context.Background(), FormatTarXz, "a", "b", false); !errors.As(err, &archErr) {
		t.Fatalf("expected ArchiveFormatError when tar fails, got %v", err)
	}
}

func TestExtractUnknownFormat(t *testing.T) {
	var archErr *ArchiveFormatError
	if err := (&Fetcher{}).extract(context.Background(), ArchiveFormat("rar"), "a", "b", false); !errors.As(err, &archErr) {
		t.Fatalf("expected ArchiveFormatError, got %v", err)
	}
}

type recordingRunner struct {
	command string
	args    []string
	err     error
	stderr  string
	onRun   func(outDir string) error
}

func (r *recordingRunner) Run(_ context.Context, command string, args []string, _ proc.RunOptions) (proc.RunResult, error) {
	r.command = command
	r.args = append([]string(nil), args...)
	if r.onRun != nil && r.err == nil {
		if err := r.onRun(args[len(args)-1]); err != nil {
			return proc.RunResult{}, err
		}
	}
	return proc.RunResult{Path: command, Stderr: []byte(r.stderr)}, r.err
}
