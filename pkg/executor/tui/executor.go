// Package tui provides the interactive terminal shell of the object
// browser: the navigation tree on the left and the pane grid on the right.
//
// The package is split into:
// - executor.go: program lifecycle and page wiring
// - model.go: model state and message types
// - update.go: key handling and background operations
// - view.go: rendering
// - overlay.go: prompts and toasts
// - styles.go: color scheme and styling
package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/objbrowser/pkg/display"
	"github.com/entrhq/objbrowser/pkg/logging"
)

// DefaultRootID is the container the root object is drawn into.
const DefaultRootID = "objbrowser_root"

// Option configures an Executor.
type Option func(*Executor)

// WithRootContainer sets the id of the root container.
func WithRootContainer(id string) Option {
	return func(e *Executor) { e.rootID = id }
}

// WithPageURL sets the address shown in the header.
func WithPageURL(url string) Option {
	return func(e *Executor) { e.pageURL = url }
}

// WithTreeWidth sets the share of the screen given to the tree, in percent.
func WithTreeWidth(pct int) Option {
	return func(e *Executor) {
		if pct > 0 && pct < 100 {
			e.treeWidth = pct
		}
	}
}

// WithLogger sets the executor logger.
func WithLogger(l logging.Sink) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Executor runs the object browser in the terminal.
type Executor struct {
	page      *display.Page
	rootPath  string
	rootID    string
	pageURL   string
	treeWidth int
	logger    logging.Sink

	mu      sync.Mutex
	program *tea.Program
}

// NewExecutor creates an executor showing the object at rootPath on page.
// The page resolver must be set before Run.
func NewExecutor(page *display.Page, rootPath string, opts ...Option) *Executor {
	e := &Executor{
		page:      page,
		rootPath:  rootPath,
		rootID:    DefaultRootID,
		treeWidth: 30,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run resolves the root object and blocks until the user exits.
func (e *Executor) Run(ctx context.Context) error {
	resolver := e.page.Env().Resolver
	if resolver == nil {
		return errors.New("page has no resolver")
	}

	if _, ok := e.page.Container(e.rootID); !ok {
		if _, err := e.page.AddContainer(e.rootID); err != nil {
			return fmt.Errorf("failed to create root container: %w", err)
		}
	}

	// A failed root still shows its error panel, so the shell starts anyway.
	root, err := resolver.ResolveAndRender(ctx, e.rootPath, "", e.rootID)
	if err != nil {
		e.logger.Warnf("resolving root %q failed: %v", e.rootPath, err)
	}
	defer func() {
		if closer, ok := root.(display.Closer); ok {
			closer.Close()
		}
	}()

	m := newModel(ctx, e.page, e.rootID, root)
	m.pageURL = e.pageURL
	m.treeWidth = e.treeWidth

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	e.mu.Lock()
	e.program = program
	e.mu.Unlock()

	e.page.OnChange(func(id string) {
		program.Send(containerChangedMsg{id: id})
	})
	defer e.page.OnChange(nil)

	e.logger.Infof("TUI starting for %q", e.rootPath)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	e.logger.Infof("TUI exited")
	return nil
}

// OpenView hands a new view address to the running shell. It is meant to be
// installed as the page OpenView hook.
func (e *Executor) OpenView(url, path string) {
	e.mu.Lock()
	p := e.program
	e.mu.Unlock()
	if p == nil {
		e.logger.Warnf("open view %s before the shell started", url)
		return
	}
	go p.Send(openViewMsg{url: url, path: path})
}
