package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

type RunOptions struct {
	Dir    string
	Env    []string
	Path   *SearchPath
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type RunResult struct {
	Path   string
	Stdout []byte
	Stderr []byte
}

// Runner spawns external commands. Implementations must return *StartError
// when the process could not be created and *ExitError when it ran but
// reported failure.
type Runner interface {
	Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error)
}

// StartError means the process never ran.
type StartError struct {
	Command string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Command, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// ExitError means the process ran to completion with a failing status.
type ExitError struct {
	Command string
	Code    int
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Launched reports whether err still proves the process was created and ran.
func Launched(err error) bool {
	if err == nil {
		return true
	}
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

type CmdRunner struct{}

func (CmdRunner) Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error) {
	path := command
	if opts.Path != nil {
		resolved, err := opts.Path.LookPath(command)
		if err != nil {
			return RunResult{}, &StartError{Command: command, Err: err}
		}
		path = resolved
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	switch {
	case opts.Path != nil:
		cmd.Env = append(opts.Path.Environ(), opts.Env...)
	case len(opts.Env) > 0:
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.Stdin = opts.Stdin

	var stdoutBuf, stderrBuf bytes.Buffer

	stdoutWriter := io.Writer(&stdoutBuf)
	if opts.Stdout != nil {
		stdoutWriter = io.MultiWriter(&stdoutBuf, opts.Stdout)
	}
	stderrWriter := io.Writer(&stderrBuf)
	if opts.Stderr != nil {
		stderrWriter = io.MultiWriter(&stderrBuf, opts.Stderr)
	}

	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	result := RunResult{Path: path}
	if err := cmd.Start(); err != nil {
		return result, &StartError{Command: command, Err: err}
	}
	err := cmd.Wait()
	result.Stdout = stdoutBuf.Bytes()
	result.Stderr = stderrBuf.Bytes()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return result, &ExitError{Command: command, Code: exitErr.ExitCode(), Err: err}
	}
	return result, err
}

var _ Runner = CmdRunner{}
