package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	tickInterval = 150 * time.Millisecond
	barWidth     = 40
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// tickMsg drives the spinner.
type tickMsg time.Time

// BarModel is a bubbletea model that renders extraction progress as a bar
// with a current/total counter. Until a total is known it shows a spinner.
type BarModel struct {
	title   string
	bar     progress.Model
	current int
	total   int
	message string
	done    bool
	err     error
	tick    int
}

// NewBarModel creates a progress bar model with the given title.
func NewBarModel(title string) BarModel {
	return BarModel{
		title: title,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth), progress.WithoutPercentage()),
	}
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init satisfies the tea.Model interface.
func (m BarModel) Init() tea.Cmd {
	return scheduleTick()
}

// Update satisfies the tea.Model interface.
func (m BarModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()

	case ProgressMsg:
		// Positions never move backwards even if updates arrive reordered.
		if msg.Current > m.current {
			m.current = msg.Current
		}
		m.total = msg.Total
		return m, nil

	case FinishMsg:
		m.message = msg.Message
		return m, nil

	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		// Extraction runs to completion; keys are ignored.
		return m, nil
	}
	return m, nil
}

// Percent returns the bar position in [0, 1].
func (m BarModel) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	p := float64(m.current) / float64(m.total)
	if p > 1 {
		return 1
	}
	return p
}

// View satisfies the tea.Model interface.
func (m BarModel) View() string {
	if m.done && m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}

	var b strings.Builder
	if m.message != "" && m.done {
		b.WriteString(SuccessStyle.Render(m.message))
		b.WriteByte('\n')
		return b.String()
	}

	b.WriteString(TitleStyle.Render(m.title))
	b.WriteByte('\n')
	if m.total <= 0 {
		spinner := spinnerFrames[m.tick%len(spinnerFrames)]
		fmt.Fprintf(&b, "%s working...\n", SpinnerStyle.Render(spinner))
		return b.String()
	}
	fmt.Fprintf(&b, "%s %s\n", m.bar.ViewAs(m.Percent()), CountStyle.Render(fmt.Sprintf("%d/%d", m.current, m.total)))
	return b.String()
}

// Done returns whether the model has finished (work done or error).
func (m BarModel) Done() bool {
	return m.done
}

// Err returns any fatal error that occurred.
func (m BarModel) Err() error {
	return m.err
}

// Message returns the completion message, if any.
func (m BarModel) Message() string {
	return m.message
}
