package tui

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"grabvid/internal/tools"
)

// BootstrapReporter turns bootstrap progress into ToolUpdateMsg values for a
// running BootstrapModel.
type BootstrapReporter struct {
	send func(tea.Msg)
}

// NewBootstrapReporter wraps the send callback handed out by RunWithWork.
func NewBootstrapReporter(send func(tea.Msg)) *BootstrapReporter {
	return &BootstrapReporter{send: send}
}

func (r *BootstrapReporter) Probing(spec tools.ToolSpec) {
	r.send(ToolUpdateMsg{Tool: spec.Name, Status: StatusChecking})
}

func (r *BootstrapReporter) Installing(spec tools.ToolSpec) {
	msg := ToolUpdateMsg{Tool: spec.Name, Status: StatusInstalling, Location: spec.InstallDir}
	if spec.Artifact != nil {
		msg.Location = spec.Artifact.URL
	}
	r.send(msg)
}

func (r *BootstrapReporter) Finished(out tools.Outcome) {
	msg := ToolUpdateMsg{Tool: out.Tool, Status: out.Kind.String(), Source: string(out.Source), Location: out.Location}
	if out.Err != nil {
		msg.Location = out.Err.Error()
	}
	r.send(msg)
}

// PlainReporter writes one line per bootstrap event. It is used when stdout
// is not a terminal or progress rendering is disabled.
type PlainReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPlainReporter creates a reporter writing to w.
func NewPlainReporter(w io.Writer) *PlainReporter {
	return &PlainReporter{w: w}
}

func (r *PlainReporter) Probing(spec tools.ToolSpec) {
	r.printf("checking %s (%s)\n", spec.Name, spec.Executable)
}

func (r *PlainReporter) Installing(spec tools.ToolSpec) {
	from := "a local copy"
	if spec.Artifact != nil {
		from = spec.Artifact.URL
	}
	r.printf("installing %s from %s\n", spec.Name, from)
}

func (r *PlainReporter) Finished(out tools.Outcome) {
	status := StatusStyle(out.Kind.String()).Render(out.Kind.String())
	if out.Err != nil {
		r.printf("%s %s: %v\n", status, out.Tool, out.Err)
		return
	}
	r.printf("%s %s: %s (%s)\n", status, out.Tool, out.Location, out.Source)
}

func (r *PlainReporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format, args...)
}
