package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	tickInterval = 150 * time.Millisecond
	marqueeGap   = "   "
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// tickMsg drives the spinner and the LOCATION marquee.
type tickMsg time.Time

type column struct {
	header string
	width  int
}

var bootstrapColumns = []column{
	{header: "TOOL", width: 12},
	{header: "STATUS", width: 10},
	{header: "SOURCE", width: 8},
	{header: "LOCATION", width: 56},
}

type toolRow struct {
	tool     string
	status   string
	source   string
	location string
}

func (r toolRow) fields() []string {
	return []string{r.tool, r.status, r.source, r.location}
}

// BootstrapModel renders one row per tool while the bootstrap runs.
type BootstrapModel struct {
	title       string
	rows        []toolRow
	index       map[string]int
	done        bool
	interrupted bool
	err         error
	tick        int
}

// NewBootstrapModel creates a model with a pending row for every tool.
func NewBootstrapModel(title string, tools []string) BootstrapModel {
	m := BootstrapModel{title: title, index: make(map[string]int, len(tools))}
	for _, name := range tools {
		m.index[name] = len(m.rows)
		m.rows = append(m.rows, toolRow{tool: name, status: StatusPending})
	}
	return m
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init satisfies the tea.Model interface.
func (m BootstrapModel) Init() tea.Cmd {
	return scheduleTick()
}

// Update satisfies the tea.Model interface.
func (m BootstrapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()

	case ToolUpdateMsg:
		m.apply(msg)
		return m, nil

	case WorkDoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.done = true
			m.interrupted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *BootstrapModel) apply(msg ToolUpdateMsg) {
	idx, ok := m.index[msg.Tool]
	if !ok {
		return
	}
	row := &m.rows[idx]
	if msg.Status != "" {
		row.status = msg.Status
	}
	if msg.Source != "" {
		row.source = msg.Source
	}
	if msg.Location != "" {
		row.location = msg.Location
	}
}

// View satisfies the tea.Model interface.
func (m BootstrapModel) View() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteString("\n\n")
	}

	header := make([]string, len(bootstrapColumns))
	for i, col := range bootstrapColumns {
		header[i] = HeaderStyle.Render(pad(col.header, col.width))
	}
	b.WriteString(strings.Join(header, "  "))
	b.WriteByte('\n')

	for _, row := range m.rows {
		values := row.fields()
		parts := make([]string, len(values))
		for i, val := range values {
			width := bootstrapColumns[i].width
			if !m.done && len(val) > width {
				val = marqueeText(val, width, m.tick)
			} else if i < len(values)-1 {
				val = TruncateWithEllipsis(val, width)
			}
			if i == 1 {
				parts[i] = StatusStyle(val).Render(pad(val, width))
			} else {
				parts[i] = pad(NonEmptyOrDash(val), width)
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		b.WriteByte('\n')
	}

	switch {
	case m.interrupted:
		b.WriteString("\nInterrupted.\n")
	case m.done && m.err != nil:
		fmt.Fprintf(&b, "\n%s\n", ErrorStyle.Render("Error: "+m.err.Error()))
	case !m.done:
		settled, total := m.progressCounts()
		spinner := spinnerFrames[m.tick%len(spinnerFrames)]
		fmt.Fprintf(&b, "\n%s Checking tools %d/%d...\n", spinner, settled, total)
	}
	return b.String()
}

// progressCounts returns how many rows reached a final state.
func (m BootstrapModel) progressCounts() (int, int) {
	settled := 0
	for _, row := range m.rows {
		switch row.status {
		case StatusAvailable, StatusInstalled, StatusFailed:
			settled++
		}
	}
	return settled, len(m.rows)
}

// Done returns whether the model has finished.
func (m BootstrapModel) Done() bool {
	return m.done
}

// Interrupted reports whether the user pressed Ctrl+C.
func (m BootstrapModel) Interrupted() bool {
	return m.interrupted
}

// Err returns the error that ended the work, if any.
func (m BootstrapModel) Err() error {
	return m.err
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// marqueeText renders a scrolling window over text wider than width.
func marqueeText(text string, width, tick int) string {
	text = strings.TrimSpace(text)
	if width <= 0 {
		return ""
	}
	if len(text) <= width {
		return text
	}
	cycle := text + marqueeGap
	offset := tick % len(cycle)
	var result strings.Builder
	result.Grow(width)
	for i := 0; i < width; i++ {
		result.WriteByte(cycle[(offset+i)%len(cycle)])
	}
	return result.String()
}

// NonEmptyOrDash returns "-" for empty/whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis truncates a string and adds "..." if it exceeds max length.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
