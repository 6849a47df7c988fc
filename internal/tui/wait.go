// Package tui provides the interactive progress view shown while waiting for
// appliance jobs.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"rbkoracle/internal/progress"
	"rbkoracle/internal/wait"
)

// PollMsg carries one job poll into the view.
type PollMsg wait.Poll

// DoneMsg ends the view.
type DoneMsg struct {
	Status string
	Err    error
}

type waitKeys struct {
	Cancel key.Binding
}

var defaultWaitKeys = waitKeys{
	Cancel: key.NewBinding(
		key.WithKeys("ctrl+c", "q", "esc"),
		key.WithHelp("q/ctrl+c", "stop waiting"),
	),
}

// WaitModel shows the state of one job wait.
type WaitModel struct {
	title     string
	database  string
	timeout   time.Duration
	startTime time.Time
	spinner   spinner.Model
	estimator *progress.ETAEstimator
	cancel    context.CancelFunc
	keys      waitKeys

	jobID     string
	status    string
	polls     int
	done      bool
	canceling bool
	err       error
}

// NewWaitModel creates the view. cancel is called when the user stops waiting.
func NewWaitModel(title, database string, timeout time.Duration, cancel context.CancelFunc) WaitModel {
	return WaitModel{
		title:     title,
		database:  database,
		timeout:   timeout,
		startTime: time.Now(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(LabelStyle)),
		estimator: progress.NewJobEstimator(title),
		cancel:    cancel,
		keys:      defaultWaitKeys,
		status:    "Submitting...",
	}
}

func (m WaitModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m WaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PollMsg:
		m.jobID = msg.JobID
		m.status = msg.Status
		m.polls = msg.Count
		if msg.Progress > 0 {
			m.estimator.UpdateProgress(msg.Progress)
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		if msg.Status != "" {
			m.status = msg.Status
		}
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Cancel) && !m.done && !m.canceling {
			m.canceling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m WaitModel) View() string {
	var s strings.Builder
	s.Grow(512)

	s.WriteString("\n")
	s.WriteString(TitleStyle.Render(m.title))
	s.WriteString("\n\n")

	if m.database != "" {
		s.WriteString(fmt.Sprintf("  %s %s\n", LabelStyle.Render(fmt.Sprintf("%-9s", "Database:")), m.database))
	}
	if m.jobID != "" {
		s.WriteString(fmt.Sprintf("  %s %s\n", LabelStyle.Render(fmt.Sprintf("%-9s", "Job:")), m.jobID))
	}
	elapsed := time.Since(m.startTime)
	s.WriteString(fmt.Sprintf("  %s %s of %s\n", LabelStyle.Render(fmt.Sprintf("%-9s", "Elapsed:")),
		progress.FormatDuration(elapsed), progress.FormatDuration(m.timeout)))
	if m.estimator.Percent() > 0 {
		s.WriteString(fmt.Sprintf("  %s %.0f%% (%s)\n", LabelStyle.Render(fmt.Sprintf("%-9s", "Progress:")),
			m.estimator.Percent(), m.estimator.FormatETA()))
	}
	s.WriteString("\n")

	switch {
	case m.done && m.err != nil:
		s.WriteString("  " + ErrorStyle.Render("❌ "+m.status) + "\n")
	case m.done:
		s.WriteString("  " + SuccessStyle.Render("✅ "+m.status) + "\n")
	case m.canceling:
		s.WriteString("  " + WarnStyle.Render("Stopping wait; the job keeps running on the appliance") + "\n")
	default:
		s.WriteString(fmt.Sprintf("  %s %s\n", m.spinner.View(), m.status))
		s.WriteString("\n  " + InfoStyle.Render(m.keys.Cancel.Help().Key+": "+m.keys.Cancel.Help().Desc) + "\n")
	}

	return s.String()
}

// WaitFunc performs the wait, reporting each poll through observe. It
// returns the final status.
type WaitFunc func(ctx context.Context, observe wait.Observer) (string, error)

// RunWait runs fn while the wait view is on screen and returns fn's error.
func RunWait(ctx context.Context, out io.Writer, title, database string, timeout time.Duration, fn WaitFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewWaitModel(title, database, timeout, cancel), tea.WithOutput(out))

	result := make(chan error, 1)
	go func() {
		status, err := fn(ctx, func(poll wait.Poll) { p.Send(PollMsg(poll)) })
		p.Send(DoneMsg{Status: status, Err: err})
		result <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		if werr := <-result; werr != nil {
			return werr
		}
		return fmt.Errorf("progress view: %w", err)
	}
	return <-result
}
