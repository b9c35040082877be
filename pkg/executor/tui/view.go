package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI interface.
// This is called by Bubble Tea whenever the UI needs to be redrawn.
func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.buildHeader()
	body := m.buildBody(m.bodyHeight())
	bottomBar := m.buildBottomBar()

	baseView := lipgloss.JoinVertical(lipgloss.Left, header, body, bottomBar)
	return m.applyOverlays(baseView)
}

func (m *model) bodyHeight() int {
	h := m.height - 2
	if h < 3 {
		h = 3
	}
	return h
}

func (m *model) treePaneWidth() int {
	if m.browser == nil {
		return 0
	}
	w := m.width * m.treeWidth / 100
	if w < 12 {
		w = 12
	}
	return w
}

// buildHeader renders the title line with the page address and the
// spinner while work is in flight.
func (m *model) buildHeader() string {
	title := headerStyle.Render("◆ objbrowser")
	if m.busy > 0 {
		title += " " + m.spinner.View()
	}
	return title + tipsStyle.Render("  "+m.pageURL)
}

// buildBody lays the tree out next to the pane grid. A root object that is
// not a browser fills the body alone.
func (m *model) buildBody(height int) string {
	if m.browser == nil {
		c, ok := m.page.Container(m.rootID)
		if !ok {
			return ""
		}
		return paneStyle.
			Width(m.width - 2).
			Height(height - 2).
			MaxHeight(height).
			Render(c.View(m.width - 4))
	}

	treeWidth := m.treePaneWidth()
	tree := treeBoxStyle.
		Width(treeWidth - 2).
		Height(height - 2).
		Render(m.tree.View())
	panes := m.buildPanes(m.width-treeWidth, height)
	return lipgloss.JoinHorizontal(lipgloss.Top, tree, panes)
}

// buildPanes renders the pane grid. Each layout row gets an equal share of
// the height; column widths are percentages of width.
func (m *model) buildPanes(width, height int) string {
	layout := m.browser.Layout()
	if len(layout) == 0 {
		return ""
	}
	targets := m.targets()
	current, _ := m.currentTarget()

	rowHeight := height / len(layout)
	if rowHeight < 3 {
		rowHeight = 3
	}

	var rows []string
	i := 0
	for _, row := range layout {
		var cells []string
		for _, pct := range row {
			if i >= len(targets) {
				break
			}
			t := targets[i]
			i++

			cw := width * pct / 100
			if cw < 6 {
				cw = 6
			}
			style := paneStyle
			if t.Label == current.Label {
				style = activePaneStyle
			}

			content := paneLabelStyle.Render(t.Label)
			if c, ok := m.page.Container(t.ContainerID); ok {
				content += "\n" + c.View(cw-4)
			}
			cells = append(cells, style.
				Width(cw-2).
				Height(rowHeight-2).
				MaxHeight(rowHeight).
				MaxWidth(cw).
				Render(content))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// syncTree refreshes the tree viewport from the browser and keeps the
// cursor row in view.
func (m *model) syncTree() {
	if m.browser == nil || !m.ready {
		return
	}

	m.tree.Width = m.treePaneWidth() - 2
	m.tree.Height = m.bodyHeight() - 2
	m.tree.SetContent(m.renderTree())

	switch {
	case m.cursor < m.tree.YOffset:
		m.tree.SetYOffset(m.cursor)
	case m.cursor >= m.tree.YOffset+m.tree.Height:
		m.tree.SetYOffset(m.cursor - m.tree.Height + 1)
	}
}

func (m *model) renderTree() string {
	rows := m.rows()
	lines := make([]string, 0, len(rows))
	for i, r := range rows {
		line := r.Line()
		switch {
		case i == m.cursor:
			line = cursorStyle.Render(line)
		case r.Expandable:
			line = containerStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return tipsStyle.Render("(empty)")
	}
	return strings.Join(lines, "\n")
}

// buildBottomBar renders the key hints and the selected target.
func (m *model) buildBottomBar() string {
	hints := "↑/↓ move • enter expand • s show • n new view • tab target • L layout • r refresh • y copy • q quit"
	if m.browser == nil {
		hints = "q quit"
	}

	right := ""
	if t, ok := m.currentTarget(); ok {
		right = "target " + t.Label
		if row, ok := m.selectedRow(); ok {
			right = fmt.Sprintf("%s → %s", row.Path, t.Label)
		}
	}

	pad := m.width - lipgloss.Width(hints) - lipgloss.Width(right) - 2
	if pad < 2 {
		pad = 2
	}
	return statusBarStyle.Render(hints + strings.Repeat(" ", pad) + right)
}

// applyOverlays layers the prompt and the toast on top of the base view.
func (m *model) applyOverlays(baseView string) string {
	if m.overlay.isActive() {
		baseView = renderOverlay(baseView, m.overlay.prompt, m.width, m.height)
	}

	if m.toast.active && m.now().Before(m.toast.showUntil) {
		baseView = renderToastOverlay(baseView, m.renderToast())
	}

	return baseView
}

// renderToast renders a toast notification.
func (m *model) renderToast() string {
	boxWidth := m.width - 4
	if boxWidth < 40 {
		boxWidth = 40
	}

	var content strings.Builder
	content.WriteString(fmt.Sprintf("%s %s", m.toast.icon, m.toast.message))
	if m.toast.details != "" {
		content.WriteString("\n")
		content.WriteString(m.toast.details)
	}

	borderColor := salmonPink
	if m.toast.isError {
		borderColor = errorRed
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(boxWidth)

	return boxStyle.Render(content.String())
}
