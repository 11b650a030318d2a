package tui

// ToolUpdateMsg updates a tool's row. Empty fields are left unchanged.
type ToolUpdateMsg struct {
	Tool     string
	Status   string
	Source   string
	Location string
}

// WorkDoneMsg signals that the bootstrap work has completed. Err carries the
// failure that stopped it, if any.
type WorkDoneMsg struct {
	Err error
}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
