package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/entrhq/objbrowser/pkg/browser"
	"github.com/entrhq/objbrowser/pkg/display"
	"github.com/entrhq/objbrowser/pkg/resource"
)

const (
	statusSuccess        = "success"
	statusFailed         = "failed"
	statusPartialSuccess = "partial_success"
)

// RootContainerID is the container the dumped object is drawn into.
const RootContainerID = "headless_root"

// Resources is the part of the resource registry reported in the summary.
type Resources interface {
	Head() []resource.Resource
	Stats() resource.Stats
}

// Option configures an Executor.
type Option func(*Executor)

// WithResources reports attached plugin resources and request counts.
func WithResources(r Resources) Option {
	return func(e *Executor) { e.resources = r }
}

// WithOutput sets where progress and content are printed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Executor) { e.output = w }
}

// Executor draws an object, drives the browser as configured and prints
// what ended up on the page.
type Executor struct {
	page           *display.Page
	config         *Config
	resources      Resources
	output         io.Writer
	logger         *Logger
	artifactWriter *ArtifactWriter

	startTime time.Time
	summary   *DumpSummary
}

// NewExecutor creates a headless executor drawing into page. The page
// resolver must be set.
func NewExecutor(page *display.Page, config *Config, opts ...Option) (*Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if page.Env().Resolver == nil {
		return nil, errors.New("page has no resolver")
	}

	e := &Executor{
		page:   page,
		config: config,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = NewLogger(parseLogLevel(config.Logging.Verbosity), e.output)
	if config.Artifacts.Enabled {
		e.artifactWriter = NewArtifactWriter(config.Artifacts)
	}
	return e, nil
}

// Run performs the dump. A failure to draw the root object is returned as
// an error; failures of later steps only mark the summary partial.
func (e *Executor) Run(ctx context.Context) (*DumpSummary, error) {
	e.startTime = time.Now()
	e.summary = &DumpSummary{
		Path:      e.config.Path,
		StartTime: e.startTime,
	}

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	e.logger.Header("Object dump: " + e.config.Path)

	root, ok := e.page.Container(RootContainerID)
	if !ok {
		var err error
		if root, err = e.page.AddContainer(RootContainerID); err != nil {
			return nil, fmt.Errorf("failed to create root container: %w", err)
		}
	}

	e.logger.Step("Resolving " + e.config.Path)
	obj, err := e.page.Env().Resolver.ResolveAndRender(ctx, e.config.Path, "", RootContainerID)
	if err != nil {
		e.logger.Errorf("%v", err)
		e.fail(err)
		e.summary.Content = root.Content()
		e.logger.Section("Content")
		e.logger.Block(root.Content())
		return e.finish(statusFailed), err
	}
	defer func() {
		if closer, ok := obj.(display.Closer); ok {
			closer.Close()
		}
	}()

	e.summary.Renderer = rendererName(obj)
	e.logger.Successf("Drawn with %s", e.summary.Renderer)

	if b, ok := obj.(*browser.TreeBrowser); ok {
		e.driveBrowser(ctx, b)
	} else if len(e.config.Expand) > 0 || len(e.config.Show) > 0 || e.config.Layout != "" {
		e.logger.Warningf("%s is not a browser; expand, show and layout are ignored", e.config.Path)
	}

	e.summary.Content = root.Content()
	e.logger.Section("Content")
	e.logger.Block(root.Content())
	for _, p := range e.summary.Panes {
		e.logger.Section("Pane " + p.Label)
		e.logger.Block(p.Content)
	}

	status := statusSuccess
	if len(e.summary.Errors) > 0 {
		status = statusPartialSuccess
	}
	return e.finish(status), nil
}

// driveBrowser applies the layout, expands branches and shows objects.
func (e *Executor) driveBrowser(ctx context.Context, b *browser.TreeBrowser) {
	if e.config.Layout != "" {
		e.logger.Step("Applying layout " + e.config.Layout)
		if _, err := b.ApplyLayout(e.config.Layout); err != nil {
			e.logger.Errorf("%v", err)
			e.fail(err)
		}
	}

	for _, path := range e.config.Expand {
		if state, ok := b.State(path); ok && state == browser.Expanded {
			e.logger.Verbosef("%s already expanded", path)
			continue
		}
		e.logger.Step("Expanding " + path)
		if err := b.Toggle(ctx, path); err != nil {
			e.logger.Errorf("%v", err)
			e.fail(err)
		}
	}

	for _, s := range e.config.Show {
		e.logger.Step(fmt.Sprintf("Showing %s in %s", s.Path, s.Target))
		if _, err := b.SelectLabel(ctx, s.Path, s.Target); err != nil {
			e.logger.Errorf("%v", err)
			e.fail(err)
		}
	}

	for _, r := range b.Visible() {
		e.summary.Tree = append(e.summary.Tree, r.Line())
	}
	for _, t := range b.Targets() {
		if t.IsNew() {
			continue
		}
		c, ok := e.page.Container(t.ContainerID)
		if !ok {
			continue
		}
		pane := PaneDump{Label: t.Label, Content: c.Content()}
		if owner := c.Owner(); owner != nil {
			pane.Object = owner.Path()
		}
		e.summary.Panes = append(e.summary.Panes, pane)
	}
}

func (e *Executor) fail(err error) {
	e.summary.Errors = append(e.summary.Errors, err.Error())
}

// finish completes the summary, writes artifacts and prints the summary.
func (e *Executor) finish(status string) *DumpSummary {
	e.summary.Status = status
	e.summary.EndTime = time.Now()
	e.summary.Duration = e.summary.EndTime.Sub(e.startTime)

	if e.resources != nil {
		for _, r := range e.resources.Head() {
			e.summary.Resources = append(e.summary.Resources, r.URL)
		}
		stats := e.resources.Stats()
		e.summary.Probes = ProbeMetrics{Probes: stats.Probes, Loads: stats.Loads}
	}

	if e.artifactWriter != nil {
		if err := e.artifactWriter.WriteAll(e.summary); err != nil {
			e.logger.Warningf("failed to write artifacts: %v", err)
		} else {
			e.logger.Verbosef("artifacts written to %s", e.config.Artifacts.OutputDir)
		}
	}

	e.logger.Summary(e.summary)
	return e.summary
}

// rendererName names the renderer an object was drawn with.
func rendererName(obj display.Object) string {
	switch obj.(type) {
	case *browser.TreeBrowser:
		return browser.ClassName
	case *display.Generic:
		return display.GenericClass
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", obj), "*")
}
