package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/conveyci/convey/observe"
)

// stageRow tracks what the view knows about one stage.
type stageRow struct {
	name     string
	status   string
	phase    string
	attempt  int
	duration time.Duration
	err      string
}

type eventMsg observe.StageEvent

type eventsClosedMsg struct{}

// RunModel is the bubbletea model for a live pipeline run. It consumes
// stage events from the executor and renders per-stage progress.
type RunModel struct {
	styles  *StyleSet
	spinner spinner.Model
	events  <-chan observe.StageEvent

	pipeline string
	number   int
	branch   string
	commit   string

	rows  []stageRow
	index map[string]int

	runStatus string
	done      bool
	cancel    func()
}

// OnInterrupt registers a function called when the user quits the view
// while the run is still in flight, so that the run is cancelled rather
// than left executing headless.
func (m RunModel) OnInterrupt(cancel func()) RunModel {
	m.cancel = cancel
	return m
}

// NewRunModel creates a progress view over the given event channel. Stage
// names fix the row order up front; events fill the rows in.
func NewRunModel(theme TermTheme, events <-chan observe.StageEvent, pipeline string, number int, branch, commit string, stageNames []string) RunModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Accent)

	m := RunModel{
		styles:   NewStyleSet(theme),
		spinner:  sp,
		events:   events,
		pipeline: pipeline,
		number:   number,
		branch:   branch,
		commit:   commit,
		index:    make(map[string]int, len(stageNames)),
	}
	for i, name := range stageNames {
		m.rows = append(m.rows, stageRow{name: name, status: "Pending"})
		m.index[name] = i
	}
	return m
}

// Init starts the spinner and the event pump.
func (m RunModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

func (m RunModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(e)
	}
}

// Update handles messages.
func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.apply(observe.StageEvent(msg))
		return m, m.waitForEvent()

	case eventsClosedMsg:
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

// apply folds one event into the view state.
func (m *RunModel) apply(e observe.StageEvent) {
	switch e.Kind {
	case observe.RunStarted:
		m.runStatus = "Running"
		return
	case observe.RunFinished:
		m.runStatus = e.Status
		return
	}

	i, ok := m.index[e.Stage]
	if !ok {
		m.index[e.Stage] = len(m.rows)
		m.rows = append(m.rows, stageRow{name: e.Stage})
		i = m.index[e.Stage]
	}
	row := &m.rows[i]

	switch e.Kind {
	case observe.StageStarted:
		row.status = "Running"
	case observe.StagePhase:
		row.phase = e.Phase
		if e.Attempt > 0 {
			row.attempt = e.Attempt
		}
	case observe.StageFinished:
		row.status = e.Status
		row.phase = ""
		row.attempt = e.Attempt
		row.duration = e.Duration
		row.err = e.Err
	}
}

// View renders the run header, one line per stage, and a closing summary
// once the run reaches a terminal state.
func (m RunModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(fmt.Sprintf("%s  run #%d", m.pipeline, m.number)))
	b.WriteString("  ")
	b.WriteString(m.styles.Subtitle.Render(fmt.Sprintf("%s@%s", m.branch, shortCommit(m.commit))))
	b.WriteString("\n\n")

	for _, row := range m.rows {
		b.WriteString("  ")
		b.WriteString(m.statusIcon(row))
		b.WriteString(" ")
		b.WriteString(m.styles.PrimaryTxt.Render(fmt.Sprintf("%-10s", row.name)))

		if row.phase != "" && row.status == "Running" {
			detail := row.phase
			if row.attempt > 1 {
				detail = fmt.Sprintf("%s (attempt %d)", detail, row.attempt)
			}
			b.WriteString(m.styles.DimTxt.Render(detail))
		}
		if row.duration > 0 {
			b.WriteString(m.styles.DimTxt.Render(row.duration.Round(time.Millisecond).String()))
		}
		if row.err != "" {
			b.WriteString("  ")
			b.WriteString(m.styles.ErrorTxt.Render(row.err))
		}
		b.WriteString("\n")
	}

	if m.runStatus != "" && m.runStatus != "Running" {
		b.WriteString("\n")
		b.WriteString(m.statusBadge(m.runStatus))
		b.WriteString("\n")
	}
	return b.String()
}

func (m RunModel) statusIcon(row stageRow) string {
	switch row.status {
	case "Running":
		return m.spinner.View()
	case "Succeeded":
		return m.styles.SuccessTxt.Render("✓")
	case "Failed":
		return m.styles.ErrorTxt.Render("✗")
	case "Aborted":
		return m.styles.WarningTxt.Render("⊘")
	case "Skipped":
		return m.styles.DimTxt.Render("↷")
	default:
		return m.styles.DimTxt.Render("·")
	}
}

func (m RunModel) statusBadge(status string) string {
	switch status {
	case "Succeeded":
		return m.styles.StatusBadgeOK.Render(status)
	case "Failed":
		return m.styles.StatusBadgeFailed.Render(status)
	default:
		return m.styles.StatusBadgeMuted.Render(status)
	}
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
