package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/objbrowser/pkg/config"
	"github.com/entrhq/objbrowser/pkg/display"
)

// Update handles all state updates for the TUI model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.syncTree()
		return m, nil

	case spinner.TickMsg:
		if m.busy == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case containerChangedMsg:
		m.clampCursor()
		m.syncTree()
		return m, nil

	case toggleDoneMsg:
		m.finishWork()
		m.clampCursor()
		m.syncTree()
		if msg.err != nil {
			return m, m.showToast("Expand failed", msg.err.Error(), "✗", true)
		}
		return m, nil

	case selectDoneMsg:
		m.finishWork()
		if msg.err != nil && !errors.Is(msg.err, display.ErrSuperseded) {
			return m, m.showToast("Show "+msg.path+" failed", msg.err.Error(), "✗", true)
		}
		return m, nil

	case openViewMsg:
		return m, m.handleOpenView(msg)

	case toastMsg:
		return m, m.showToast(msg.message, msg.details, msg.icon, msg.isError)

	case toastExpiredMsg:
		if m.toast.shownAt.Equal(msg.shown) {
			m.toast.active = false
		}
		return m, nil

	case tea.KeyMsg:
		if m.overlay.isActive() {
			return m.handlePromptKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.syncTree()

	case "down", "j":
		if m.cursor < len(m.rows())-1 {
			m.cursor++
		}
		m.syncTree()

	case "home", "g":
		m.cursor = 0
		m.syncTree()

	case "end", "G":
		m.cursor = len(m.rows()) - 1
		m.clampCursor()
		m.syncTree()

	case "enter", " ", "right", "left", "l", "h":
		return m, m.toggleSelected()

	case "tab":
		if n := len(m.targets()); n > 0 {
			m.target = (m.target + 1) % n
		}

	case "shift+tab":
		if n := len(m.targets()); n > 0 {
			m.target = (m.target - 1 + n) % n
		}

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i := int(msg.Runes[0] - '1')
		if i < len(m.targets()) {
			m.target = i
		}

	case "s":
		return m, m.showSelected(false)

	case "n":
		return m, m.showSelected(true)

	case "y":
		return m, m.copySelectedPath()

	case "L":
		m.openLayoutPrompt()

	case "r":
		return m, m.openRefreshPrompt()
	}

	return m, nil
}

// toggleSelected expands or collapses the row under the cursor in the
// background.
func (m *model) toggleSelected() tea.Cmd {
	row, ok := m.selectedRow()
	if !ok || !row.Expandable {
		return nil
	}

	b := m.browser
	ctx := m.ctx
	path := row.Path
	return tea.Batch(m.startWork(), func() tea.Msg {
		return toggleDoneMsg{path: path, err: b.Toggle(ctx, path)}
	})
}

// showSelected shows the row under the cursor in the selected target, or
// as a new view when newView is set.
func (m *model) showSelected(newView bool) tea.Cmd {
	row, ok := m.selectedRow()
	if !ok {
		return nil
	}

	label := ""
	if newView {
		label = "N"
	} else {
		t, ok := m.currentTarget()
		if !ok {
			return nil
		}
		label = t.Label
	}

	b := m.browser
	ctx := m.ctx
	path := row.Path
	return tea.Batch(m.startWork(), func() tea.Msg {
		_, err := b.SelectLabel(ctx, path, label)
		return selectDoneMsg{path: path, label: label, err: err}
	})
}

func (m *model) copySelectedPath() tea.Cmd {
	row, ok := m.selectedRow()
	if !ok {
		return nil
	}
	if err := m.copyText(row.Path); err != nil {
		return m.showToast("Copy failed", err.Error(), "✗", true)
	}
	return m.showToast("Copied", row.Path, "📋", false)
}

func (m *model) handleOpenView(msg openViewMsg) tea.Cmd {
	if err := m.copyText(msg.url); err != nil {
		return m.showToast("New view for "+msg.path, msg.url, "↗", false)
	}
	return m.showToast("New view for "+msg.path, msg.url+" (address copied)", "↗", false)
}

func (m *model) openLayoutPrompt() {
	if m.browser == nil {
		return
	}
	m.overlay.activate(newPrompt(
		promptLayout,
		"Pane layout",
		`Rows of column widths in percent, e.g. [[50,50],[100]] • Enter to apply • Esc to cancel`,
		m.browser.LayoutText(),
		m.promptWidth(),
	))
}

func (m *model) openRefreshPrompt() tea.Cmd {
	t, ok := m.currentTarget()
	if !ok || t.IsNew() {
		return nil
	}
	c, ok := m.page.Container(t.ContainerID)
	if !ok {
		return nil
	}
	r, ok := c.Owner().(display.Refresher)
	if !ok {
		return m.showToast("No refresh", "The object in "+t.Label+" does not refresh", "ℹ", false)
	}

	p := newPrompt(
		promptRefresh,
		"Refresh period of "+t.Label,
		"Milliseconds or a duration like 2s • 0 turns refresh off • Enter to apply • Esc to cancel",
		strconv.FormatInt(r.RefreshPeriod().Milliseconds(), 10),
		m.promptWidth(),
	)
	p.target = t.ContainerID
	m.overlay.activate(p)
	return nil
}

func (m *model) promptWidth() int {
	w := m.width/2 - 8
	if w < 30 {
		w = 30
	}
	return w
}

func (m *model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.overlay.prompt
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.overlay.deactivate()
		return m, nil
	case tea.KeyEnter:
		return m, m.submitPrompt(p)
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return m, cmd
}

// submitPrompt applies the prompt value. The prompt stays open when the
// value is rejected.
func (m *model) submitPrompt(p *prompt) tea.Cmd {
	value := strings.TrimSpace(p.input.Value())
	switch p.kind {
	case promptLayout:
		layout, err := m.browser.ApplyLayout(value)
		if err != nil {
			return m.showToast("Invalid layout", err.Error(), "✗", true)
		}
		m.overlay.deactivate()
		if _, ok := m.currentTarget(); !ok {
			m.target = 0
		}
		return m.showToast("Layout applied", layout.String(), "✓", false)

	case promptRefresh:
		d, err := parsePeriod(value)
		if err != nil {
			return m.showToast("Invalid refresh period", err.Error(), "✗", true)
		}
		c, ok := m.page.Container(p.target)
		if !ok {
			m.overlay.deactivate()
			return nil
		}
		r, ok := c.Owner().(display.Refresher)
		if !ok {
			m.overlay.deactivate()
			return nil
		}
		r.SetRefreshPeriod(d)
		m.overlay.deactivate()
		if d == 0 {
			return m.showToast("Refresh off", "", "✓", false)
		}
		return m.showToast("Refreshing every "+d.String(), "", "✓", false)
	}

	m.overlay.deactivate()
	return nil
}

// parsePeriod reads a refresh period given in milliseconds or as a Go
// duration.
func parsePeriod(s string) (time.Duration, error) {
	var d time.Duration
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		d = time.Duration(ms) * time.Millisecond
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%q is neither milliseconds nor a duration", s)
		}
	}
	if d < 0 {
		return 0, fmt.Errorf("period cannot be negative")
	}
	if d > 0 && d < config.MinRefreshPeriod {
		return 0, fmt.Errorf("period must be 0 or at least %s", config.MinRefreshPeriod)
	}
	return d, nil
}
