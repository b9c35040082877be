// Package display defines what a renderer is and where it draws.
//
// A Page holds named Containers. The plugin loader picks a renderer for an
// object's class from a Registry, hands it a Container and the decoded
// node, and the terminal shell draws whatever the container holds.
package display

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/entrhq/objbrowser/pkg/config"
	"github.com/entrhq/objbrowser/pkg/refresh"
	"github.com/entrhq/objbrowser/pkg/remote"
)

var (
	// ErrUnknownRenderer is returned by Registry.New for a name nobody registered.
	ErrUnknownRenderer = errors.New("renderer not registered")

	// ErrNotInitialized is returned when Render is called before Initialize.
	ErrNotInitialized = errors.New("renderer not initialized")

	// ErrSuperseded means a later request claimed the container before this
	// one could draw into it.
	ErrSuperseded = errors.New("superseded by a later request")
)

// Object is a renderer instance bound to one container.
type Object interface {
	// Initialize binds the object to the container it draws into.
	Initialize(c *Container) error

	// Render draws the node.
	Render(node *remote.ObjectNode) error

	SetPath(path string)
	Path() string
}

// Refresher is implemented by objects that re-fetch their node periodically.
type Refresher interface {
	SetRefreshPeriod(d time.Duration) refresh.Token
	RefreshPeriod() time.Duration
}

// Closer is implemented by objects holding timers or goroutines. Close is
// called when the container is cleared for another object.
type Closer interface {
	Close()
}

// NodeFetcher retrieves a node by object path.
type NodeFetcher interface {
	FetchNode(ctx context.Context, path string) (*remote.ObjectNode, error)
}

// Resolver picks, initialises and renders the renderer for an object into a
// container.
type Resolver interface {
	ResolveAndRender(ctx context.Context, path, className, containerID string) (Object, error)
}

// LayoutStore persists pane layouts per browser view.
type LayoutStore interface {
	Get(scopeKey string) config.PanelLayout
	SetText(scopeKey, text string) (config.PanelLayout, error)
}

// Factory creates a fresh renderer instance.
type Factory func() Object

// Registry maps class names to renderer factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// DefaultRegistry receives the renderers compiled into the binary.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.MustRegister(GenericClass, func() Object { return NewGeneric() })
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name. Names are unique.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("renderer name cannot be empty")
	}
	if f == nil {
		return fmt.Errorf("renderer %s: nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("renderer %s already registered", name)
	}
	r.factories[name] = f
	return nil
}

// MustRegister is Register for init functions. It panics on error.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// New creates an instance of the renderer registered under name.
func (r *Registry) New(name string) (Object, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownRenderer)
	}
	return f(), nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
