// Package browser implements the object browser: a navigation tree of the
// server objects next to a grid of panes the selected objects are shown in.
//
// Branches are fetched from the server the first time they are expanded
// and never again; collapsing and re-expanding only flips visibility.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/entrhq/objbrowser/pkg/config"
	"github.com/entrhq/objbrowser/pkg/display"
	"github.com/entrhq/objbrowser/pkg/remote"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// ClassName is the renderer name the browser registers under.
const ClassName = "HttpObjectBrowser"

var (
	// ErrUnknownNode is returned for a path that is not in the tree.
	ErrUnknownNode = errors.New("node not in tree")

	// ErrNotExpandable is returned when toggling a leaf.
	ErrNotExpandable = errors.New("node is not a container")

	// ErrUnknownTarget is returned for a pane label the layout does not have.
	ErrUnknownTarget = errors.New("unknown target")
)

func init() {
	display.DefaultRegistry.MustRegister(ClassName, func() display.Object { return New() })
}

// NodeState is the expansion state of a tree node.
type NodeState int

const (
	// Collapsed nodes have never been expanded; their children are unknown.
	Collapsed NodeState = iota
	// PopulatedCollapsed nodes hold fetched children that are hidden.
	PopulatedCollapsed
	// Expanded nodes show their children.
	Expanded
)

func (s NodeState) String() string {
	switch s {
	case Collapsed:
		return "collapsed"
	case PopulatedCollapsed:
		return "populated"
	case Expanded:
		return "expanded"
	default:
		return fmt.Sprintf("NodeState(%d)", int(s))
	}
}

type node struct {
	name        string
	class       string
	path        string
	isContainer bool
	depth       int
	state       NodeState
	children    []*node
}

// Row is one visible line of the navigation tree.
type Row struct {
	Path       string
	Name       string
	Class      string
	Label      string
	Depth      int
	State      NodeState
	Expandable bool

	// ItemID, ExpandID and ShowID identify the row, its expand control and
	// its show control.
	ItemID   string
	ExpandID string
	ShowID   string
}

// TreeBrowser is the HttpObjectBrowser renderer.
type TreeBrowser struct {
	mu        sync.Mutex
	uid       string
	path      string
	container *display.Container
	env       display.Env
	roots     []*node
	index     map[string]*node
	layout    config.PanelLayout
	panes     []Target

	fetches singleflight.Group
}

// New creates an uninitialised browser.
func New() *TreeBrowser {
	return &TreeBrowser{
		uid:   strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		index: make(map[string]*node),
	}
}

// SetPath sets the root object path of the browser.
func (b *TreeBrowser) SetPath(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.path = path
}

// Path returns the root object path.
func (b *TreeBrowser) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path
}

// ScopeKey is the key the browser layout is stored under.
func (b *TreeBrowser) ScopeKey() string {
	return config.ScopeKey(b.Path())
}

// Initialize binds the browser to c and creates the pane grid from the
// stored layout.
func (b *TreeBrowser) Initialize(c *display.Container) error {
	env := c.Env()

	b.mu.Lock()
	b.container = c
	b.env = env
	b.mu.Unlock()

	layout := config.DefaultLayout()
	if env.Layouts != nil {
		layout = env.Layouts.Get(b.ScopeKey())
	}
	return b.CreateTargetPanels(layout)
}

// Render replaces the tree with the children of n.
func (b *TreeBrowser) Render(n *remote.ObjectNode) error {
	b.mu.Lock()
	if b.container == nil {
		b.mu.Unlock()
		return display.ErrNotInitialized
	}
	b.index = make(map[string]*node)
	b.roots = b.buildLocked(n.Children(), b.path, 0)
	b.mu.Unlock()

	b.redraw()
	return nil
}

func (b *TreeBrowser) buildLocked(children []*remote.ObjectNode, parent string, depth int) []*node {
	out := make([]*node, 0, len(children))
	for _, child := range children {
		nd := &node{
			name:        child.Name,
			class:       child.Class,
			path:        remote.JoinPath(parent, child.Name),
			isContainer: child.IsContainer,
			depth:       depth,
		}
		b.index[nd.path] = nd
		out = append(out, nd)
	}
	return out
}

// Toggle expands or collapses the node at path. The first expansion
// fetches the children; a failed fetch leaves the node collapsed so it can
// be tried again.
func (b *TreeBrowser) Toggle(ctx context.Context, path string) error {
	b.mu.Lock()
	nd, ok := b.index[path]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", path, ErrUnknownNode)
	}
	if !nd.isContainer {
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", path, ErrNotExpandable)
	}

	switch nd.state {
	case Expanded:
		nd.state = PopulatedCollapsed
		b.mu.Unlock()
		b.redraw()
		return nil
	case PopulatedCollapsed:
		nd.state = Expanded
		b.mu.Unlock()
		b.redraw()
		return nil
	}
	fetcher := b.env.Fetcher
	logger := b.env.Logger
	b.mu.Unlock()

	if fetcher == nil {
		return fmt.Errorf("expand %s: no fetcher", path)
	}

	// Concurrent first expansions of one node share a single request.
	v, err, _ := b.fetches.Do(path, func() (interface{}, error) {
		return fetcher.FetchNode(ctx, path)
	})
	if err != nil {
		if logger != nil {
			logger.Warnf("expand %s failed: %v", path, err)
		}
		return fmt.Errorf("expand %s: %w", path, err)
	}
	fetched := v.(*remote.ObjectNode)

	b.mu.Lock()
	// A concurrent expansion may have populated the node already.
	if nd.state == Collapsed {
		nd.children = b.buildLocked(fetched.Children(), path, nd.depth+1)
		nd.state = Expanded
	}
	b.mu.Unlock()

	b.redraw()
	return nil
}

// State returns the expansion state of the node at path.
func (b *TreeBrowser) State(path string) (NodeState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	nd, ok := b.index[path]
	if !ok {
		return Collapsed, false
	}
	return nd.state, true
}

// Visible flattens the expanded part of the tree in display order.
func (b *TreeBrowser) Visible() []Row {
	b.mu.Lock()
	defer b.mu.Unlock()

	var rows []Row
	var walk func(nodes []*node)
	walk = func(nodes []*node) {
		for _, nd := range nodes {
			id := remote.PathID(nd.path)
			rows = append(rows, Row{
				Path:       nd.path,
				Name:       nd.name,
				Class:      nd.class,
				Label:      nd.name + " (" + nd.class + ")",
				Depth:      nd.depth,
				State:      nd.state,
				Expandable: nd.isContainer,
				ItemID:     "li_" + id,
				ExpandID:   "ebtn_" + id,
				ShowID:     "sbtn_" + id,
			})
			if nd.state == Expanded {
				walk(nd.children)
			}
		}
	}
	walk(b.roots)
	return rows
}

// Select shows the node at path in target. The New target hands the view
// address of the node to the page instead.
func (b *TreeBrowser) Select(ctx context.Context, path string, target Target) (display.Object, error) {
	b.mu.Lock()
	nd, ok := b.index[path]
	env := b.env
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownNode)
	}

	if target.IsNew() {
		if env.ViewURL == nil || env.OpenView == nil {
			return nil, fmt.Errorf("open %s: opening new views is not supported here", path)
		}
		env.OpenView(env.ViewURL(path), path)
		return nil, nil
	}

	if env.Resolver == nil {
		return nil, fmt.Errorf("show %s: no resolver", path)
	}
	return env.Resolver.ResolveAndRender(ctx, path, nd.class, target.ContainerID)
}

// SelectLabel is Select with the target given by its label, e.g. "0x1" or "N".
func (b *TreeBrowser) SelectLabel(ctx context.Context, path, label string) (display.Object, error) {
	target, ok := b.Target(label)
	if !ok {
		return nil, fmt.Errorf("%s: %w", label, ErrUnknownTarget)
	}
	return b.Select(ctx, path, target)
}

// Close removes the panes of the browser from the page.
func (b *TreeBrowser) Close() {
	b.mu.Lock()
	panes := b.panes
	b.panes = nil
	c := b.container
	b.mu.Unlock()

	if c == nil {
		return
	}
	for _, t := range panes {
		c.Page().RemoveContainer(t.ContainerID)
	}
}

func (b *TreeBrowser) redraw() {
	b.mu.Lock()
	c := b.container
	b.mu.Unlock()
	if c == nil {
		return
	}
	c.SetContent(formatTree(b.Visible()))
}

// Line renders the row as one indented line, "+" marking collapsed
// containers and "-" expanded ones.
func (r Row) Line() string {
	marker := "  "
	switch {
	case !r.Expandable:
	case r.State == Expanded:
		marker = "- "
	default:
		marker = "+ "
	}
	return strings.Repeat("  ", r.Depth) + marker + r.Label
}

func formatTree(rows []Row) string {
	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(r.Line())
		sb.WriteString("\n")
	}
	return sb.String()
}
