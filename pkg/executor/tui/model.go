package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/objbrowser/pkg/browser"
	"github.com/entrhq/objbrowser/pkg/display"
)

const toastDuration = 3 * time.Second

// Message types

// containerChangedMsg is sent whenever a page container changes.
type containerChangedMsg struct {
	id string
}

// toggleDoneMsg reports the end of an expand or collapse.
type toggleDoneMsg struct {
	path string
	err  error
}

// selectDoneMsg reports the end of showing a node in a target.
type selectDoneMsg struct {
	path  string
	label string
	err   error
}

// openViewMsg asks the shell to open a node as a new view.
type openViewMsg struct {
	url  string
	path string
}

// toastMsg shows a transient notification.
type toastMsg struct {
	message string
	details string
	icon    string
	isError bool
}

// toastExpiredMsg hides the toast shown at the given time.
type toastExpiredMsg struct {
	shown time.Time
}

type toastState struct {
	active    bool
	message   string
	details   string
	icon      string
	isError   bool
	shownAt   time.Time
	showUntil time.Time
}

// model is the Bubble Tea model of the object browser shell.
type model struct {
	ctx     context.Context
	page    *display.Page
	rootID  string
	root    display.Object
	browser *browser.TreeBrowser
	pageURL string

	// treeWidth is the share of the screen given to the tree, in percent.
	treeWidth int

	width  int
	height int
	ready  bool

	cursor int
	target int
	busy   int

	tree    viewport.Model
	spinner spinner.Model
	overlay *overlayState
	toast   toastState

	copyText func(string) error
	now      func() time.Time
}

func newModel(ctx context.Context, page *display.Page, rootID string, root display.Object) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = headerStyle

	m := &model{
		ctx:       ctx,
		page:      page,
		rootID:    rootID,
		root:      root,
		treeWidth: 30,
		tree:      viewport.New(0, 0),
		spinner:   s,
		overlay:   newOverlayState(),
		copyText:  clipboard.WriteAll,
		now:       time.Now,
	}
	if b, ok := root.(*browser.TreeBrowser); ok {
		m.browser = b
	}
	return m
}

// Init implements tea.Model.
func (m *model) Init() tea.Cmd {
	return nil
}

// rows returns the visible tree rows, empty when the root is not a browser.
func (m *model) rows() []browser.Row {
	if m.browser == nil {
		return nil
	}
	return m.browser.Visible()
}

// selectedRow returns the row under the cursor.
func (m *model) selectedRow() (browser.Row, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return browser.Row{}, false
	}
	return rows[m.cursor], true
}

// targets returns the browser targets, panes first and New last.
func (m *model) targets() []browser.Target {
	if m.browser == nil {
		return nil
	}
	return m.browser.Targets()
}

// currentTarget returns the selected target.
func (m *model) currentTarget() (browser.Target, bool) {
	ts := m.targets()
	if len(ts) == 0 {
		return browser.Target{}, false
	}
	if m.target >= len(ts) {
		m.target = len(ts) - 1
	}
	if m.target < 0 {
		m.target = 0
	}
	return ts[m.target], true
}

// clampCursor keeps the cursor on a visible row.
func (m *model) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// showToast displays a toast notification and schedules its expiry.
func (m *model) showToast(message, details, icon string, isError bool) tea.Cmd {
	now := m.now()
	m.toast = toastState{
		active:    true,
		message:   message,
		details:   details,
		icon:      icon,
		isError:   isError,
		shownAt:   now,
		showUntil: now.Add(toastDuration),
	}
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{shown: now}
	})
}

// startWork marks an operation in flight and starts the spinner if idle.
func (m *model) startWork() tea.Cmd {
	m.busy++
	if m.busy == 1 {
		return m.spinner.Tick
	}
	return nil
}

func (m *model) finishWork() {
	if m.busy > 0 {
		m.busy--
	}
}
