package tools

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"grabvid/internal/proc"
)

func (f *Fetcher) extract(ctx context.Context, format ArchiveFormat, archivePath, dest string, flatten bool) error {
	switch format {
	case FormatZip:
		return extractZip(archivePath, dest, flatten)
	case FormatTarGz:
		return extractTarGz(archivePath, dest, flatten)
	case FormatTarXz:
		return f.extractTarXz(ctx, archivePath, dest, flatten)
	default:
		return &ArchiveFormatError{Path: archivePath, Err: fmt.Errorf("unsupported archive format %q", format)}
	}
}

// entryPath maps an archive entry name to a slash-separated path relative to
// the extraction root. Flatten drops the first path component. An empty
// result means the entry should be skipped.
func entryPath(name string, isDir, flatten bool) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("entry %q escapes extraction directory", name)
	}
	if clean == "." {
		return "", nil
	}
	if flatten {
		_, rest, ok := strings.Cut(clean, "/")
		switch {
		case ok:
			clean = rest
		case isDir:
			return "", nil
		}
	}
	return clean, nil
}

func extractZip(archivePath, dest string, flatten bool) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return &ArchiveFormatError{Path: archivePath, Err: err}
	}
	defer reader.Close()

	for _, file := range reader.File {
		isDir := file.FileInfo().IsDir()
		rel, err := entryPath(file.Name, isDir, flatten)
		if err != nil {
			return &ArchiveFormatError{Path: archivePath, Err: err}
		}
		if rel == "" {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))
		if isDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return ioErr("create dir", target, err)
			}
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return &ArchiveFormatError{Path: archivePath, Err: fmt.Errorf("open entry %s: %w", file.Name, err)}
		}
		err = writeEntry(archivePath, target, file.Mode().Perm()|0o600, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTarGz(archivePath, dest string, flatten bool) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return ioErr("open archive", archivePath, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return &ArchiveFormatError{Path: archivePath, Err: err}
	}
	defer gz.Close()

	return untarStream(archivePath, gz, dest, flatten)
}

// extractTarXz hands decompression to the system tar. With flatten the
// archive is unpacked into a scratch directory first and moved up through
// entryPath, so "./top/bin/x" and "top/bin/x" both end up at "bin/x" as they
// do for the other formats.
func (f *Fetcher) extractTarXz(ctx context.Context, archivePath, dest string, flatten bool) error {
	outDir := dest
	if flatten {
		scratch, err := os.MkdirTemp(dest, ".unpack-")
		if err != nil {
			return ioErr("create scratch dir", dest, err)
		}
		defer os.RemoveAll(scratch)
		outDir = scratch
	}

	res, err := f.runner().Run(ctx, "tar", []string{"-xJf", archivePath, "-C", outDir}, proc.RunOptions{Path: f.Path})
	if err != nil {
		if !proc.Launched(err) {
			return ioErr("run", "tar", err)
		}
		return &ArchiveFormatError{
			Path: archivePath,
			Err:  fmt.Errorf("tar extract: %w: %s", err, strings.TrimSpace(string(res.Stderr))),
		}
	}
	if !flatten {
		return nil
	}
	return flattenTree(archivePath, outDir, dest)
}

// flattenTree moves the regular files below src into dest with their first
// path component dropped. Links are skipped as in untarStream.
func flattenTree(archivePath, src, dest string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return ioErr("walk", p, err)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return ioErr("walk", p, err)
		}
		flat, err := entryPath(filepath.ToSlash(rel), false, true)
		if err != nil {
			return &ArchiveFormatError{Path: archivePath, Err: err}
		}
		if flat == "" {
			return nil
		}
		target := filepath.Join(dest, filepath.FromSlash(flat))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return ioErr("prepare file", target, err)
		}
		return ioErr("move", target, os.Rename(p, target))
	})
}

func untarStream(archivePath string, r io.Reader, dest string, flatten bool) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &ArchiveFormatError{Path: archivePath, Err: fmt.Errorf("read tar header: %w", err)}
		}
		isDir := header.Typeflag == tar.TypeDir
		rel, err := entryPath(header.Name, isDir, flatten)
		if err != nil {
			return &ArchiveFormatError{Path: archivePath, Err: err}
		}
		if rel == "" {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return ioErr("create dir", target, err)
			}
		case tar.TypeReg:
			if err := writeEntry(archivePath, target, os.FileMode(header.Mode).Perm()|0o600, tr); err != nil {
				return err
			}
		default:
			// Links and devices are not needed for the tools we place.
		}
	}
	return nil
}

func writeEntry(archivePath, target string, mode os.FileMode, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return ioErr("prepare file", target, err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return ioErr("create file", target, err)
	}
	sink := &trackingWriter{w: out}
	_, copyErr := io.Copy(sink, src)
	closeErr := out.Close()
	if copyErr != nil {
		if sink.err != nil {
			return ioErr("write file", target, sink.err)
		}
		return &ArchiveFormatError{Path: archivePath, Err: fmt.Errorf("read entry %s: %w", target, copyErr)}
	}
	if closeErr != nil {
		return ioErr("close file", target, closeErr)
	}
	return nil
}
