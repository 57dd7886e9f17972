package tui

// ProgressMsg moves the bar to Current out of Total.
type ProgressMsg struct {
	Current int
	Total   int
}

// FinishMsg carries the extractor's completion message.
type FinishMsg struct {
	Message string
}

// WorkDoneMsg signals that all background work has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
