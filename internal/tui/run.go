package tui

import (
	"context"
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned by RunWithWork when the user pressed Ctrl+C.
var ErrInterrupted = errors.New("interrupted")

// RunWithWork runs model while work executes in a goroutine, and returns the
// error work returned. Ctrl+C cancels the context handed to work, and
// RunWithWork waits for work to return before reporting ErrInterrupted.
func RunWithWork(ctx context.Context, out io.Writer, model BootstrapModel, work func(ctx context.Context, send func(tea.Msg)) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, tea.WithOutput(out))
	workErr := make(chan error, 1)

	go func() {
		// Let bubbletea start its event loop and render the initial frame.
		time.Sleep(50 * time.Millisecond)

		err := work(ctx, func(msg tea.Msg) {
			p.Send(msg)
			time.Sleep(5 * time.Millisecond)
		})
		p.Send(WorkDoneMsg{Err: err})
		workErr <- err
	}()

	finalModel, runErr := p.Run()
	if runErr != nil {
		cancel()
		<-workErr
		return runErr
	}
	if m, ok := finalModel.(BootstrapModel); ok && m.Interrupted() {
		cancel()
		<-workErr
		return ErrInterrupted
	}
	return <-workErr
}
