package display

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/entrhq/objbrowser/pkg/logging"
)

// Env carries the services renderers reach through their container.
type Env struct {
	Fetcher  NodeFetcher
	Resolver Resolver
	Layouts  LayoutStore

	// ViewURL maps an object path to the address of a standalone view.
	ViewURL func(path string) string
	// OpenView is called when the user opens a node as a new view.
	OpenView func(url, path string)

	Logger logging.Sink

	// RefreshPeriod is the period new refreshing renderers start with.
	RefreshPeriod time.Duration
	// JSONTheme is the chroma style for raw JSON. Empty disables highlighting.
	JSONTheme string
}

// Page is the set of containers renderers draw into.
type Page struct {
	mu         sync.RWMutex
	env        Env
	containers map[string]*Container
	order      []string
	onChange   func(id string)
}

// NewPage creates an empty page.
func NewPage(env Env) *Page {
	if env.Logger == nil {
		env.Logger = logging.Discard()
	}
	return &Page{
		env:        env,
		containers: make(map[string]*Container),
	}
}

// Env returns the page services.
func (p *Page) Env() Env {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.env
}

// SetResolver installs the resolver once the loader has been built over
// this page.
func (p *Page) SetResolver(r Resolver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.env.Resolver = r
}

// OnChange installs a hook called with the container id after every change.
// The hook runs on the goroutine that made the change.
func (p *Page) OnChange(fn func(id string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// AddContainer creates an empty container. Ids are unique per page.
func (p *Page) AddContainer(id string) (*Container, error) {
	if id == "" {
		return nil, fmt.Errorf("container id cannot be empty")
	}

	p.mu.Lock()
	if _, exists := p.containers[id]; exists {
		p.mu.Unlock()
		return nil, fmt.Errorf("container %s already exists", id)
	}
	c := &Container{id: id, page: p}
	p.containers[id] = c
	p.order = append(p.order, id)
	p.mu.Unlock()

	p.notify(id)
	return c, nil
}

// Container returns the container with id.
func (p *Page) Container(id string) (*Container, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.containers[id]
	return c, ok
}

// RemoveContainer clears and drops a container. It reports whether the
// container existed.
func (p *Page) RemoveContainer(id string) bool {
	p.mu.Lock()
	c, ok := p.containers[id]
	if ok {
		delete(p.containers, id)
		for i, cid := range p.order {
			if cid == id {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
	p.mu.Unlock()

	if ok {
		c.claims.Add(1)
		c.Clear()
		p.notify(id)
	}
	return ok
}

// Containers returns container ids in creation order.
func (p *Page) Containers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.order...)
}

func (p *Page) notify(id string) {
	p.mu.RLock()
	fn := p.onChange
	p.mu.RUnlock()
	if fn != nil {
		fn(id)
	}
}

// Container is one addressable pane of a page.
type Container struct {
	id   string
	page *Page

	mu       sync.RWMutex
	content  strings.Builder
	style    lipgloss.Style
	styled   bool
	disabled bool
	owner    Object
	version  uint64

	// claims numbers draw requests; drawMu keeps their draws from overlapping.
	claims atomic.Uint64
	drawMu sync.Mutex
}

// ID returns the container id.
func (c *Container) ID() string { return c.id }

// Page returns the page holding the container.
func (c *Container) Page() *Page { return c.page }

// Env returns the services of the page.
func (c *Container) Env() Env { return c.page.Env() }

// Claim starts a draw request for the container and returns its ticket.
// Tickets handed out earlier become stale.
func (c *Container) Claim() uint64 {
	return c.claims.Add(1)
}

// Current reports whether claim is the latest request for the container.
func (c *Container) Current(claim uint64) bool {
	return c.claims.Load() == claim
}

// DrawClaimed runs draw while holding the container for claim, so draws for
// one container never interleave. It returns false without calling draw
// once a later claim exists.
func (c *Container) DrawClaimed(claim uint64, draw func()) bool {
	c.drawMu.Lock()
	defer c.drawMu.Unlock()
	if !c.Current(claim) {
		return false
	}
	draw()
	return true
}

// Clear empties the container and closes the object that owned it.
func (c *Container) Clear() {
	c.mu.Lock()
	prev := c.owner
	c.owner = nil
	c.content.Reset()
	c.style = lipgloss.Style{}
	c.styled = false
	c.disabled = false
	c.version++
	c.mu.Unlock()

	if closer, ok := prev.(Closer); ok {
		closer.Close()
	}
	c.page.notify(c.id)
}

// SetContent replaces the text of the container.
func (c *Container) SetContent(s string) {
	c.mu.Lock()
	c.content.Reset()
	c.content.WriteString(s)
	c.version++
	c.mu.Unlock()
	c.page.notify(c.id)
}

// Append adds text to the end of the container.
func (c *Container) Append(s string) {
	c.mu.Lock()
	c.content.WriteString(s)
	c.version++
	c.mu.Unlock()
	c.page.notify(c.id)
}

// Content returns the text of the container.
func (c *Container) Content() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.content.String()
}

// SetStyle applies a stylesheet to the container.
func (c *Container) SetStyle(style lipgloss.Style) {
	c.mu.Lock()
	c.style = style
	c.styled = true
	c.version++
	c.mu.Unlock()
	c.page.notify(c.id)
}

// Style returns the applied style and whether one was set.
func (c *Container) Style() (lipgloss.Style, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.style, c.styled
}

// SetDisabled greys the container out.
func (c *Container) SetDisabled(disabled bool) {
	c.mu.Lock()
	c.disabled = disabled
	c.version++
	c.mu.Unlock()
	c.page.notify(c.id)
}

// Disabled reports whether the container is greyed out.
func (c *Container) Disabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disabled
}

// SetOwner records the object drawing into the container.
func (c *Container) SetOwner(o Object) {
	c.mu.Lock()
	c.owner = o
	c.version++
	c.mu.Unlock()
}

// Owner returns the object drawing into the container.
func (c *Container) Owner() Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// Version increases on every change.
func (c *Container) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// View renders the content through the container style.
func (c *Container) View(width int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	style := lipgloss.NewStyle()
	if c.styled {
		style = c.style
	}
	if c.disabled {
		style = style.Faint(true)
	}
	if width > 0 && !c.styled {
		style = style.Width(width)
	}
	return style.Render(c.content.String())
}
