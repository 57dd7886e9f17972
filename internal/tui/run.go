package tui

import (
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithWork creates a bubbletea program, launches workFn in a goroutine,
// and blocks until the program exits. workFn receives a send callback bound
// to the program; its error ends the program with an ErrorMsg. The returned
// error is workFn's error, or the program's own failure.
func RunWithWork(out io.Writer, model BarModel, workFn func(send func(tea.Msg)) error) error {
	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil))

	workErr := make(chan error, 1)
	go func() {
		// Let bubbletea start its event loop and render the initial frame.
		time.Sleep(50 * time.Millisecond)

		err := workFn(p.Send)
		workErr <- err
		if err != nil {
			p.Send(ErrorMsg{Err: err})
			return
		}
		p.Send(WorkDoneMsg{})
	}()

	_, runErr := p.Run()
	// The work is never abandoned, even when the program exits first.
	if err := <-workErr; err != nil {
		return err
	}
	return runErr
}
