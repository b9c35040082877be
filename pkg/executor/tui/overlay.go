package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

// promptKind identifies what a prompt edits.
type promptKind int

const (
	promptNone promptKind = iota
	promptLayout
	promptRefresh
)

// prompt is a one-line editor shown as a modal overlay.
type prompt struct {
	kind  promptKind
	title string
	help  string
	// target is the container the prompt applies to, if any.
	target string
	input  textinput.Model
}

func newPrompt(kind promptKind, title, help, value string, width int) *prompt {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 512
	ti.Width = width
	ti.SetValue(value)
	ti.CursorEnd()
	ti.Focus()
	return &prompt{kind: kind, title: title, help: help, input: ti}
}

// View renders the prompt box.
func (p *prompt) View() string {
	body := lipgloss.JoinVertical(
		lipgloss.Left,
		OverlayTitleStyle.Render(p.title),
		"",
		p.input.View(),
		"",
		OverlayHelpStyle.Render(p.help),
	)
	return overlayBoxStyle.Render(body)
}

// overlayState tracks the active prompt.
type overlayState struct {
	prompt *prompt
}

func newOverlayState() *overlayState {
	return &overlayState{}
}

func (o *overlayState) activate(p *prompt) {
	o.prompt = p
}

func (o *overlayState) deactivate() {
	o.prompt = nil
}

func (o *overlayState) isActive() bool {
	return o.prompt != nil
}

// renderOverlay renders the prompt centered on a clean background.
func renderOverlay(baseView string, p *prompt, width, height int) string {
	if p == nil {
		return baseView
	}

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		p.View(),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color("0")),
	)
}

// renderToastOverlay renders a toast just above the status bar without
// affecting the base view's layout.
func renderToastOverlay(baseView string, toastContent string) string {
	if toastContent == "" {
		return baseView
	}

	baseLines := strings.Split(baseView, "\n")
	toastLines := strings.Split(strings.TrimRight(toastContent, "\n"), "\n")

	startLine := len(baseLines) - 2 - len(toastLines)
	if startLine < 0 {
		startLine = 0
	}

	var result strings.Builder
	for i, line := range baseLines {
		toastLineIdx := i - startLine
		if toastLineIdx >= 0 && toastLineIdx < len(toastLines) {
			result.WriteString(strings.Repeat(" ", 2))
			result.WriteString(toastLines[toastLineIdx])
		} else {
			result.WriteString(line)
		}
		if i < len(baseLines)-1 {
			result.WriteString("\n")
		}
	}

	return result.String()
}
