package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var errWaitTimedOut = errors.New("timed out waiting for the platform")

type pumpMsg struct{}

// tickLoopModel drives tick on the program goroutine until settled reports
// true or the deadline passes.
type tickLoopModel struct {
	spinner  spinner.Model
	label    string
	tick     func()
	settled  func() bool
	interval time.Duration
	deadline time.Time
	timeout  time.Duration
	err      error
	done     bool
}

func newTickLoopModel(label string, loop tickLoop) tickLoopModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return tickLoopModel{
		spinner:  s,
		label:    label,
		tick:     loop.tick,
		settled:  loop.settled,
		interval: loop.interval,
		deadline: time.Now().Add(loop.timeout),
		timeout:  loop.timeout,
	}
}

func (m tickLoopModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return pumpMsg{} })
}

func (m tickLoopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case pumpMsg:
		m.tick()
		if m.settled() {
			m.done = true
			return m, tea.Quit
		}
		if time.Now().After(m.deadline) {
			m.done = true
			m.err = fmt.Errorf("%s: %w after %s", m.label, errWaitTimedOut, m.timeout)
			return m, tea.Quit
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return pumpMsg{} })
	default:
		return m, nil
	}
}

func (m tickLoopModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

type tickLoop struct {
	tick     func()
	settled  func() bool
	interval time.Duration
	timeout  time.Duration
}

// runTickLoop pumps loop.tick behind a spinner. Nothing is drawn when the
// loop is already settled.
func runTickLoop(ctx context.Context, output io.Writer, label string, loop tickLoop) error {
	if loop.settled() {
		return nil
	}

	p := tea.NewProgram(
		newTickLoopModel(label, loop),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(tickLoopModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
