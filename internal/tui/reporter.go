package tui

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// BarReporter adapts bubbletea message sending to archive.Progress.
type BarReporter struct {
	send func(tea.Msg)
}

// NewBarReporter constructs a reporter that forwards updates through send.
func NewBarReporter(send func(tea.Msg)) *BarReporter {
	return &BarReporter{send: send}
}

// Update implements archive.Progress.
func (r *BarReporter) Update(current, total int) {
	r.send(ProgressMsg{Current: current, Total: total})
}

// Finish implements archive.Progress.
func (r *BarReporter) Finish(message string) {
	r.send(FinishMsg{Message: message})
}

// LineReporter writes progress as plain text lines, one per tenth of the
// total, for terminals that cannot host the bar.
type LineReporter struct {
	mu    sync.Mutex
	w     io.Writer
	title string
	last  int
}

// NewLineReporter creates a plain-text reporter writing to w.
func NewLineReporter(w io.Writer, title string) *LineReporter {
	return &LineReporter{w: w, title: title, last: -1}
}

// Update implements archive.Progress.
func (r *LineReporter) Update(current, total int) {
	if total <= 0 {
		return
	}
	decile := current * 10 / total
	r.mu.Lock()
	defer r.mu.Unlock()
	if decile == r.last {
		return
	}
	r.last = decile
	fmt.Fprintf(r.w, "%s %d/%d\n", r.title, current, total)
}

// Finish implements archive.Progress.
func (r *LineReporter) Finish(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, message)
}
