package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sznuper/linkguard/internal/monitor"
	"github.com/sznuper/linkguard/internal/runner"
)

type phaseMsg struct {
	phase monitor.Phase
	label monitor.Label
}

type doneMsg struct{ result runner.Result }

// progressModel shows a spinner with the current phase while a run is in
// flight. Ctrl+C cancels the run and waits for it to wind down.
type progressModel struct {
	spinner  spinner.Model
	phase    string
	canceled bool
	cancel   context.CancelFunc
	result   *runner.Result
}

func newProgressModel(cancel context.CancelFunc) progressModel {
	return progressModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(okStyle)),
		phase:   "starting",
		cancel:  cancel,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case phaseMsg:
		m.phase = string(msg.phase)
		if msg.label != "" {
			m.phase = fmt.Sprintf("%s (%s)", msg.phase, msg.label)
		}
		return m, nil
	case doneMsg:
		m.result = &msg.result
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.canceled {
			m.canceled = true
			m.cancel()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.result != nil {
		return ""
	}
	line := fmt.Sprintf("%s %s", m.spinner.View(), m.phase)
	if m.canceled {
		line += dimStyle.Render("  canceling, waiting for the current step")
	}
	return line + "\n"
}

// runWithSpinner executes run while rendering progress on the terminal.
func runWithSpinner(ctx context.Context, r *runner.Runner, opts runner.RunOptions) (runner.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(cancel))
	r.WithProgress(func(phase monitor.Phase, label monitor.Label) {
		p.Send(phaseMsg{phase: phase, label: label})
	})

	go func() {
		p.Send(doneMsg{result: r.RunOnce(ctx, opts)})
	}()

	final, err := p.Run()
	if err != nil {
		return runner.Result{}, fmt.Errorf("running progress display: %w", err)
	}
	m := final.(progressModel)
	if m.result == nil {
		return runner.Result{}, fmt.Errorf("run interrupted")
	}
	return *m.result, nil
}
