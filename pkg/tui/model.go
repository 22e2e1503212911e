// Package tui renders the orchestrator's display states in the terminal and
// turns key presses into taps.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"

	"tableflip.dev/acctview/pkg/account/viewmodel"
	"tableflip.dev/acctview/pkg/dispatch"
	"tableflip.dev/acctview/pkg/orchestrator"
	"tableflip.dev/acctview/pkg/tui/theme"
)

const nameWidth = 40

// Binder is the part of the orchestrator the UI talks to.
type Binder interface {
	States(ctx context.Context) <-chan orchestrator.Snapshot
	OnItemTapped(id string)
}

// accountItem adapts a display row for the list.
type accountItem struct{ item viewmodel.Item }

func (it accountItem) Title() string {
	return truncate.StringWithTail(it.item.Name, nameWidth, "…")
}
func (it accountItem) Description() string { return it.item.Amount }
func (it accountItem) FilterValue() string { return it.item.Name }

// messages
type stateMsg struct{ snap orchestrator.Snapshot }
type statesClosedMsg struct{}
type reportMsg struct{ report dispatch.Report }

// Model contains UI state.
type Model struct {
	binder  Binder
	states  <-chan orchestrator.Snapshot
	reports <-chan dispatch.Report

	list  list.Model
	theme theme.Theme

	state  viewmodel.State
	hint   orchestrator.Hint
	status string
	failed bool

	termWidth  int
	termHeight int
}

// New subscribes to binder for the lifetime of ctx. reports may be nil.
func New(ctx context.Context, binder Binder, reports <-chan dispatch.Report) Model {
	d := list.NewDefaultDelegate()
	d.SetSpacing(0)

	l := list.New([]list.Item{}, d, 80, 20)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	return Model{
		binder:  binder,
		states:  binder.States(ctx),
		reports: reports,
		list:    l,
		theme:   theme.Default(),
		state:   viewmodel.Empty{},
		status:  "j/k move, enter or b block, q quit",
	}
}

// Init starts listening for states and failure reports.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForState(), m.waitForReport())
}

func (m *Model) waitForState() tea.Cmd {
	if m.states == nil {
		return nil
	}
	ch := m.states
	return func() tea.Msg {
		if snap, ok := <-ch; ok {
			return stateMsg{snap: snap}
		}
		return statesClosedMsg{}
	}
}

func (m *Model) waitForReport() tea.Cmd {
	if m.reports == nil {
		return nil
	}
	ch := m.reports
	return func() tea.Msg {
		if r, ok := <-ch; ok {
			return reportMsg{report: r}
		}
		return nil
	}
}

// Update handles messages and keybindings.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.termHeight = msg.Height
		m.list.SetSize(msg.Width, max(msg.Height-4, 1))
	case stateMsg:
		m.applySnapshot(msg.snap)
		cmds = append(cmds, m.waitForState())
	case statesClosedMsg:
		m.states = nil
		return m, tea.Quit
	case reportMsg:
		m.status = fmt.Sprintf("block %s failed: %v", msg.report.AccountID, msg.report.Cause)
		m.failed = true
		cmds = append(cmds, m.waitForReport())
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter", "b":
			m.tapSelected()
			return m, nil
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) tapSelected() {
	sel, ok := m.list.SelectedItem().(accountItem)
	if !ok {
		return
	}
	m.binder.OnItemTapped(sel.item.ID)
	m.status = "blocking " + sel.item.Name + "…"
	m.failed = false
}

// applySnapshot replaces the rows and keeps the cursor on the same account
// when it survives, otherwise on the same position.
func (m *Model) applySnapshot(snap orchestrator.Snapshot) {
	selectedID := ""
	if sel, ok := m.list.SelectedItem().(accountItem); ok {
		selectedID = sel.item.ID
	}
	index := m.list.Index()

	m.state = snap.State
	m.hint = snap.Hint

	items, _ := snap.State.(viewmodel.Items)
	rows := make([]list.Item, 0, len(items))
	for _, it := range items {
		rows = append(rows, accountItem{item: it})
	}
	m.list.SetItems(rows)
	if len(rows) == 0 {
		return
	}
	if i := items.Index(selectedID); selectedID != "" && i >= 0 {
		index = i
	}
	if index >= len(rows) {
		index = len(rows) - 1
	}
	if index < 0 {
		index = 0
	}
	m.list.Select(index)

	if snap.Hint == orchestrator.HintPatch && snap.Removed != "" {
		m.status = "blocked " + snap.Removed
		m.failed = false
	}
}

// View renders the account list and the status bar.
func (m Model) View() string {
	var b strings.Builder

	header := m.theme.Header.Title.Render("Accounts")
	if items, ok := m.state.(viewmodel.Items); ok {
		header += " " + m.theme.Header.Count.Render(fmt.Sprintf("(%d)", len(items)))
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	switch st := m.state.(type) {
	case viewmodel.Items:
		if len(st) == 0 {
			b.WriteString(m.theme.Row.Waiting.Render("No accounts."))
		} else {
			b.WriteString(m.list.View())
		}
	default:
		b.WriteString(m.theme.Row.Waiting.Render("Waiting for accounts…"))
	}

	statusStyle := m.theme.Footer.Status
	if m.failed {
		statusStyle = m.theme.Footer.Error
	}
	footer := lipgloss.JoinHorizontal(lipgloss.Top,
		m.theme.Footer.Hint.Render("["+m.hint.String()+"] "),
		statusStyle.Render(m.status),
	)
	b.WriteString("\n\n")
	b.WriteString(footer)
	return b.String()
}

// Run drives the UI until the user quits or ctx is done.
func Run(ctx context.Context, binder Binder, reports <-chan dispatch.Report) error {
	p := tea.NewProgram(New(ctx, binder, reports), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
