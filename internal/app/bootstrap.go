package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"grabvid/internal/logx"
	"grabvid/internal/paths"
	"grabvid/internal/proc"
	"grabvid/internal/tools"
)

// Reporter receives bootstrap progress.
type Reporter interface {
	Probing(spec tools.ToolSpec)
	Installing(spec tools.ToolSpec)
	Finished(out tools.Outcome)
}

type nopReporter struct{}

func (nopReporter) Probing(tools.ToolSpec)    {}
func (nopReporter) Installing(tools.ToolSpec) {}
func (nopReporter) Finished(tools.Outcome)    {}

// DependencyError means a required tool could not be made available.
type DependencyError struct {
	Tool  string
	Hints []string
	Err   error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("required tool %s is unavailable: %v", e.Tool, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Bootstrapper makes every required tool launchable through Path.
type Bootstrapper struct {
	Runner    proc.Runner
	Path      *proc.SearchPath
	Installer *tools.Installer
	Reporter  Reporter
	Logger    *log.Logger
}

func (b *Bootstrapper) reporter() Reporter {
	if b.Reporter != nil {
		return b.Reporter
	}
	return nopReporter{}
}

func (b *Bootstrapper) log() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return logx.Discard()
}

// Run walks the required specs in order. Tools found in a fallback location
// get that directory prepended to the search path; missing tools are
// installed. The first tool that cannot be made available stops the run.
func (b *Bootstrapper) Run(ctx context.Context, specs []tools.ToolSpec) ([]tools.Outcome, error) {
	var outcomes []tools.Outcome
	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		out := b.ensure(ctx, spec)
		outcomes = append(outcomes, out)
		b.reporter().Finished(out)

		if !out.OK() {
			if ctx.Err() != nil {
				return outcomes, ctx.Err()
			}
			return outcomes, &DependencyError{Tool: spec.Name, Hints: tools.Hints(spec.Name), Err: out.Err}
		}
	}
	b.log().Debug("search path after bootstrap", "dirs", b.Path.Dirs())
	return outcomes, nil
}

func (b *Bootstrapper) ensure(ctx context.Context, spec tools.ToolSpec) tools.Outcome {
	b.reporter().Probing(spec)
	res, err := tools.Probe(ctx, b.Runner, b.Path, spec)
	if err == nil {
		if res.Via == tools.SourceFallback && b.Path.Prepend(filepath.Dir(res.Location)) {
			b.log().Info("using tool from fallback location", "tool", spec.Name, "path", res.Location)
		}
		b.log().Debug("tool available", "tool", spec.Name, "path", res.Location, "version", res.Version)
		return tools.Outcome{Tool: spec.Name, Kind: tools.AlreadyAvailable, Location: res.Location, Source: res.Via}
	}
	if !errors.Is(err, tools.ErrUnavailable) {
		return tools.Outcome{Tool: spec.Name, Kind: tools.Failed, Err: err}
	}

	// A previous run's install is not on the inherited PATH; Install only
	// registers it, so it is not reported as an install.
	if installed, _ := paths.FileExists(spec.TargetPath()); !installed {
		b.log().Info("tool not found, installing", "tool", spec.Name)
		b.reporter().Installing(spec)
	}
	return b.Installer.Install(ctx, spec, tools.InstallOptions{})
}
