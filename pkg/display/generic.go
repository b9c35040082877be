package display

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/entrhq/objbrowser/pkg/refresh"
	"github.com/entrhq/objbrowser/pkg/remote"
)

// GenericClass is the registry name of the generic renderer, used for every
// class that ships no renderer of its own.
const GenericClass = "MARTeObject"

const genericFetchTimeout = 10 * time.Second

// Generic dumps every field of a node as indented JSON and can re-fetch it
// periodically.
type Generic struct {
	mu        sync.Mutex
	container *Container
	path      string
	node      *remote.ObjectNode
	theme     string
	scheduler *refresh.Scheduler
}

// NewGeneric creates an uninitialised generic renderer.
func NewGeneric() *Generic {
	return &Generic{}
}

// Initialize binds the renderer to c and starts refreshing when the page
// has a default refresh period.
func (g *Generic) Initialize(c *Container) error {
	env := c.Env()

	g.mu.Lock()
	g.container = c
	g.theme = env.JSONTheme
	if env.Fetcher != nil {
		g.scheduler = refresh.New(g.fetch, g.Render,
			refresh.WithLogger(env.Logger),
			refresh.WithFetchTimeout(genericFetchTimeout),
		)
	}
	sched := g.scheduler
	g.mu.Unlock()

	if sched != nil && env.RefreshPeriod > 0 {
		sched.SetPeriod(env.RefreshPeriod)
	}
	return nil
}

func (g *Generic) fetch(ctx context.Context) (*remote.ObjectNode, error) {
	g.mu.Lock()
	c, path := g.container, g.path
	g.mu.Unlock()
	return c.Env().Fetcher.FetchNode(ctx, path)
}

// Render writes the node to the container.
func (g *Generic) Render(node *remote.ObjectNode) error {
	g.mu.Lock()
	c := g.container
	if c == nil {
		g.mu.Unlock()
		return ErrNotInitialized
	}
	g.node = node
	theme := g.theme
	period := g.periodLocked()
	g.mu.Unlock()

	text, err := formatGeneric(node, theme, period)
	if err != nil {
		return err
	}
	c.SetContent(text)
	return nil
}

func (g *Generic) periodLocked() time.Duration {
	if g.scheduler == nil {
		return 0
	}
	return g.scheduler.Period()
}

// SetPath sets the object path used for refreshes.
func (g *Generic) SetPath(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.path = path
}

// Path returns the object path.
func (g *Generic) Path() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.path
}

// Node returns the last rendered node.
func (g *Generic) Node() *remote.ObjectNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.node
}

// SetRefreshPeriod changes how often the node is fetched again. Zero stops
// refreshing. The zero token is returned when the renderer cannot refresh.
func (g *Generic) SetRefreshPeriod(d time.Duration) refresh.Token {
	g.mu.Lock()
	sched := g.scheduler
	g.mu.Unlock()
	if sched == nil {
		return refresh.Token{}
	}
	tok := sched.SetPeriod(d)

	// Redraw the period line.
	if node := g.Node(); node != nil {
		_ = g.Render(node)
	}
	return tok
}

// RefreshPeriod returns the current refresh period.
func (g *Generic) RefreshPeriod() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.periodLocked()
}

// Close stops refreshing.
func (g *Generic) Close() {
	g.mu.Lock()
	sched := g.scheduler
	g.mu.Unlock()
	if sched != nil {
		sched.Stop()
	}
}

func formatGeneric(node *remote.ObjectNode, theme string, period time.Duration) (string, error) {
	var body bytes.Buffer
	if err := json.Indent(&body, node.Raw(), "", "  "); err != nil {
		return "", fmt.Errorf("indent %s: %w", node.Name, err)
	}

	text := body.String()
	if theme != "" {
		if highlighted, err := highlightJSON(text, theme); err == nil {
			text = highlighted
		}
	}

	var b strings.Builder
	b.WriteString(node.Label())
	b.WriteString("\n")
	if period > 0 {
		fmt.Fprintf(&b, "refresh every %d ms\n", period.Milliseconds())
	} else {
		b.WriteString("refresh off\n")
	}
	b.WriteString("\n")
	b.WriteString(text)
	return b.String(), nil
}

// highlightJSON colours JSON for a 256-colour terminal.
func highlightJSON(src, theme string) (string, error) {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(theme)
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	it, err := lexer.Tokenise(nil, src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, it); err != nil {
		return "", err
	}
	return buf.String(), nil
}
