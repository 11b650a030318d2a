package prompt

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user cancels a prompt with Ctrl+C or Esc,
// or when input ends before an answer is given.
var ErrAborted = errors.New("prompt aborted")

// Question configures a free-text prompt.
type Question struct {
	Title       string
	Description string
	Placeholder string
	Default     string
	Validate    func(string) error
}

// Option is one entry of a select prompt.
type Option struct {
	Label string
	Value string
}

// Prompter asks the user for input.
type Prompter interface {
	Input(ctx context.Context, q Question) (string, error)
	Select(ctx context.Context, title string, options []Option, selected string) (string, error)
	Confirm(ctx context.Context, title string, def bool) (bool, error)
}

// Forms renders prompts as huh forms. Accessible mode falls back to plain
// line-based prompts for terminals that cannot redraw.
type Forms struct {
	Accessible bool
	In         io.Reader
	Out        io.Writer
}

func (f Forms) theme() *huh.Theme {
	green := lipgloss.Color("#03BF87")
	theme := huh.ThemeCharm()
	theme.Focused.Title = theme.Focused.Title.Foreground(green).Bold(true)
	theme.Focused.SelectedOption = lipgloss.NewStyle().Foreground(green)
	theme.Focused.Base = theme.Focused.Base.BorderForeground(green)
	return theme
}

func (f Forms) run(ctx context.Context, field huh.Field) error {
	// Accessible forms never look at ctx.
	if err := ctx.Err(); err != nil {
		return err
	}

	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(f.theme()).
		WithAccessible(f.Accessible).
		WithShowHelp(false)

	var lines *lineReader
	switch {
	case f.Accessible:
		in := f.In
		if in == nil {
			in = os.Stdin
		}
		lines = &lineReader{r: in}
		form = form.WithInput(lines)
	case f.In != nil:
		form = form.WithInput(f.In)
	}
	if f.Out != nil {
		form = form.WithOutput(f.Out)
	}

	if err := form.RunWithContext(ctx); err != nil {
		return runError(ctx, err)
	}
	if lines != nil && lines.closed() {
		return ErrAborted
	}
	return nil
}

func runError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, huh.ErrUserAborted):
		return ErrAborted
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return err
	}
}

// lineReader feeds accessible prompts one line per Read. huh scans each
// prompt with a fresh bufio.Scanner, so anything it buffers past the first
// newline would be lost to the next prompt. huh also treats end of input as
// an empty answer; closed reports that case.
type lineReader struct {
	r    io.Reader
	read int
	eof  bool
}

func (l *lineReader) Read(p []byte) (int, error) {
	var b [1]byte
	n := 0
	for n < len(p) {
		m, err := l.r.Read(b[:])
		if m == 1 {
			p[n] = b[0]
			n++
			l.read++
			if b[0] == '\n' {
				return n, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.eof = true
			}
			return n, err
		}
	}
	return n, nil
}

func (l *lineReader) closed() bool {
	return l.eof && l.read == 0
}

func (f Forms) Input(ctx context.Context, q Question) (string, error) {
	value := q.Default
	input := huh.NewInput().
		Title(q.Title).
		Description(q.Description).
		Placeholder(q.Placeholder).
		Value(&value)
	if q.Validate != nil {
		input = input.Validate(q.Validate)
	}
	if err := f.run(ctx, input); err != nil {
		return "", err
	}
	// Accessible prompts only give up on an invalid answer when input ends.
	if f.Accessible && q.Validate != nil && q.Validate(value) != nil {
		return "", ErrAborted
	}
	return value, nil
}

func (f Forms) Select(ctx context.Context, title string, options []Option, selected string) (string, error) {
	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Value).Selected(o.Value == selected))
	}
	value := selected
	sel := huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&value)
	if err := f.run(ctx, sel); err != nil {
		return "", err
	}
	return value, nil
}

func (f Forms) Confirm(ctx context.Context, title string, def bool) (bool, error) {
	value := def
	confirm := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&value)
	if err := f.run(ctx, confirm); err != nil {
		return false, err
	}
	return value, nil
}

var _ Prompter = Forms{}
