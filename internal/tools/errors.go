package tools

import (
	"errors"
	"fmt"
)

// ErrUnavailable is the probe's "not found" signal. It is expected and
// triggers installation rather than being reported.
var ErrUnavailable = errors.New("tool unavailable")

// NetworkError means the artifact request could not be completed.
type NetworkError struct {
	URL    string
	Status string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("download %s: unexpected status %s", e.URL, e.Status)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ArchiveFormatError means a downloaded archive could not be read or
// extracted.
type ArchiveFormatError struct {
	Path string
	Err  error
}

func (e *ArchiveFormatError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveFormatError) Unwrap() error { return e.Err }

// IOError wraps a filesystem failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// InstallerExitError means a self-installing executable reported failure.
type InstallerExitError struct {
	Path     string
	ExitCode int
	Err      error
}

func (e *InstallerExitError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("installer %s exited with status %d", e.Path, e.ExitCode)
	}
	return fmt.Sprintf("installer %s: %v", e.Path, e.Err)
}

func (e *InstallerExitError) Unwrap() error { return e.Err }

// ChecksumError means the downloaded bytes did not match the pinned SHA-256.
type ChecksumError struct {
	URL  string
	Want string
	Got  string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: want %s, got %s", e.URL, e.Want, e.Got)
}

func ioErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// ErrNoArtifact means the catalog has no download for the running platform.
var ErrNoArtifact = errors.New("no download available for this platform")
