// Package loader resolves the renderer for an object's class and draws the
// object into a page container.
//
// For a class Foo the server may ship Foo.js and Foo.css next to the page.
// The loader probes both, attaches whatever exists to the page head once per
// session, and falls back to the generic renderer when there is no script.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/entrhq/objbrowser/pkg/display"
	"github.com/entrhq/objbrowser/pkg/logging"
	"github.com/entrhq/objbrowser/pkg/remote"
	"github.com/entrhq/objbrowser/pkg/resource"
	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrContainerNotFound means the target container is not on the page.
	ErrContainerNotFound = errors.New("container not found")

	// ErrNoClassName means neither the caller nor the node named a class.
	ErrNoClassName = errors.New("class name not found")

	// ErrRendererMissing means a script exists for the class but attaching it
	// did not provide a renderer under the class name.
	ErrRendererMissing = errors.New("renderer missing")
)

// Remote is the part of the object client the loader uses.
type Remote interface {
	FetchNode(ctx context.Context, path string) (*remote.ObjectNode, error)
	PluginURL(className string, kind remote.ResourceKind) string
}

// Resources is the part of the resource registry the loader uses.
type Resources interface {
	Probe(ctx context.Context, url string) (bool, error)
	EnsureLoaded(ctx context.Context, url string, kind remote.ResourceKind) error
	Resource(url string) (resource.Resource, bool)
}

// Option configures a Loader.
type Option func(*Loader) error

// WithRenderers sets the renderer registry. Defaults to display.DefaultRegistry.
func WithRenderers(r *display.Registry) Option {
	return func(l *Loader) error {
		l.renderers = r
		return nil
	}
}

// WithLogger sets the loader logger.
func WithLogger(logger logging.Sink) Option {
	return func(l *Loader) error {
		if logger != nil {
			l.logger = logger
		}
		return nil
	}
}

// WithSkipPatterns makes classes matching any glob use the generic renderer
// without probing the server.
func WithSkipPatterns(patterns ...string) Option {
	return func(l *Loader) error {
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				return fmt.Errorf("invalid skip pattern %q: %w", p, err)
			}
			l.skip = append(l.skip, g)
		}
		return nil
	}
}

// Loader implements display.Resolver.
type Loader struct {
	page      *display.Page
	client    Remote
	resources Resources
	renderers *display.Registry
	logger    logging.Sink
	skip      []glob.Glob
}

var _ display.Resolver = (*Loader)(nil)

// New creates a loader drawing into page.
func New(page *display.Page, client Remote, resources Resources, opts ...Option) (*Loader, error) {
	l := &Loader{
		page:      page,
		client:    client,
		resources: resources,
		renderers: display.DefaultRegistry,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// ResolveAndRender fetches the object at path and draws it into the
// container with the renderer for className, or for the class the node
// declares when className is empty.
//
// Fetch failures are drawn as an error panel and returned. When the class
// has a script but no registered renderer the container is left untouched.
// A request overtaken by a later one for the same container draws nothing,
// closes its renderer and returns display.ErrSuperseded.
func (l *Loader) ResolveAndRender(ctx context.Context, path, className, containerID string) (display.Object, error) {
	container, ok := l.page.Container(containerID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", containerID, ErrContainerNotFound)
	}
	claim := container.Claim()

	node, err := l.client.FetchNode(ctx, path)
	if err != nil {
		l.logger.Warnf("fetch %s failed: %v", path, err)
		if !container.DrawClaimed(claim, func() { display.ErrorPanel(container, err) }) {
			return nil, l.superseded(path, containerID, nil)
		}
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}

	if className == "" {
		className = node.Class
	}
	if className == "" {
		l.logger.Errorf("class name not found for %s", path)
		return nil, fmt.Errorf("%s: %w", path, ErrNoClassName)
	}

	obj, style, err := l.resolve(ctx, className)
	if err != nil {
		return nil, err
	}

	var drawErr error
	drawn := container.DrawClaimed(claim, func() {
		container.Clear()
		if style != nil {
			container.SetStyle(*style)
		}
		container.SetOwner(obj)
		obj.SetPath(path)
		if err := obj.Initialize(container); err != nil {
			display.ErrorPanel(container, err)
			drawErr = fmt.Errorf("initialize %s for %s: %w", className, path, err)
			return
		}
		if err := obj.Render(node); err != nil {
			display.ErrorPanel(container, err)
			drawErr = fmt.Errorf("render %s: %w", path, err)
		}
	})
	if !drawn {
		return nil, l.superseded(path, containerID, obj)
	}
	if drawErr != nil {
		return nil, drawErr
	}

	l.logger.Debugf("rendered %s as %s in %s", path, className, containerID)
	return obj, nil
}

// superseded drops the renderer of a request that lost its container.
func (l *Loader) superseded(path, containerID string, obj display.Object) error {
	if closer, ok := obj.(display.Closer); ok {
		closer.Close()
	}
	l.logger.Debugf("dropped %s for %s: a later request owns it", path, containerID)
	return fmt.Errorf("%s into %s: %w", path, containerID, display.ErrSuperseded)
}

// resolve returns a fresh renderer for className and the stylesheet to
// apply, if any.
func (l *Loader) resolve(ctx context.Context, className string) (display.Object, *lipgloss.Style, error) {
	if l.skipped(className) {
		l.logger.Debugf("class %s matches a skip pattern", className)
		return l.generic(), nil, nil
	}

	jsURL := l.client.PluginURL(className, remote.KindScript)
	cssURL := l.client.PluginURL(className, remote.KindStyle)

	var hasJS, hasCSS bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hasJS, err = l.probe(gctx, jsURL)
		return err
	})
	g.Go(func() error {
		var err error
		hasCSS, err = l.probe(gctx, cssURL)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		obj     display.Object
		missing error
	)
	if hasJS {
		if err := l.resources.EnsureLoaded(ctx, jsURL, remote.KindScript); err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			l.logger.Warnf("loading %s failed, using generic renderer: %v", jsURL, err)
			obj = l.generic()
		} else if inst, err := l.renderers.New(className); err != nil {
			l.logger.Errorf("%s attached but renderer %s is not registered", jsURL, className)
			missing = fmt.Errorf("%s: %w", className, ErrRendererMissing)
		} else {
			obj = inst
		}
	} else {
		obj = l.generic()
	}

	// The stylesheet is attached whatever became of the script.
	var style *lipgloss.Style
	if hasCSS {
		style = l.stylesheet(ctx, cssURL)
	}
	if missing != nil {
		return nil, nil, missing
	}
	return obj, style, nil
}

// probe reports whether url exists. Transport failures count as absent;
// only cancellation of ctx is returned.
func (l *Loader) probe(ctx context.Context, url string) (bool, error) {
	ok, err := l.resources.Probe(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		l.logger.Warnf("probe %s failed, treating as absent: %v", url, err)
		return false, nil
	}
	return ok, nil
}

func (l *Loader) stylesheet(ctx context.Context, url string) *lipgloss.Style {
	if err := l.resources.EnsureLoaded(ctx, url, remote.KindStyle); err != nil {
		l.logger.Warnf("loading stylesheet %s failed: %v", url, err)
		return nil
	}
	res, ok := l.resources.Resource(url)
	if !ok {
		return nil
	}
	style, err := display.ParseStylesheet(string(res.Body))
	if err != nil {
		l.logger.Warnf("stylesheet %s: %v", url, err)
		return nil
	}
	return &style
}

func (l *Loader) generic() display.Object {
	if obj, err := l.renderers.New(display.GenericClass); err == nil {
		return obj
	}
	return display.NewGeneric()
}

func (l *Loader) skipped(className string) bool {
	for _, g := range l.skip {
		if g.Match(className) {
			return true
		}
	}
	return false
}
