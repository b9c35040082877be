// Package resource keeps track of plugin resources for the lifetime of a
// browsing session: whether a resource URL exists on the server, and which
// scripts and stylesheets have already been attached to the page head.
package resource

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/entrhq/objbrowser/pkg/logging"
	"github.com/entrhq/objbrowser/pkg/remote"
)

// Availability is the resolved existence state of a resource URL.
type Availability int

const (
	Unknown Availability = iota
	Exists
	Absent
)

func (a Availability) String() string {
	switch a {
	case Exists:
		return "exists"
	case Absent:
		return "absent"
	default:
		return "unknown"
	}
}

// CachePolicy controls how long probe results are kept.
type CachePolicy int

const (
	// CachePerSession keeps every resolved probe for the life of the
	// registry. Plugin availability is assumed static for a session.
	CachePerSession CachePolicy = iota

	// CachePerCall probes again on every request. Concurrent callers for
	// the same URL still share one request.
	CachePerCall
)

// ParseCachePolicy maps the config value onto a CachePolicy.
func ParseCachePolicy(s string) CachePolicy {
	if s == "call" || s == "per_call" {
		return CachePerCall
	}
	return CachePerSession
}

func (p CachePolicy) String() string {
	if p == CachePerCall {
		return "per_call"
	}
	return "per_session"
}

// Fetcher is the network side of the registry.
type Fetcher interface {
	ProbeExists(ctx context.Context, url string) (bool, error)
	FetchResource(ctx context.Context, url string) ([]byte, error)
}

// Resource is a script or stylesheet attached to the page head.
type Resource struct {
	URL        string
	Kind       remote.ResourceKind
	Body       []byte
	AttachedAt time.Time
}

// Stats counts the requests the registry actually sent.
type Stats struct {
	Probes int64
	Loads  int64
}

// Registry caches probe results and attached resources. It is safe for
// concurrent use; one registry is shared by every loader of a session.
type Registry struct {
	fetcher  Fetcher
	logger   logging.Sink
	policy   CachePolicy
	onAttach func(Resource)

	mu       sync.Mutex
	avail    map[string]Availability
	head     []Resource
	attached map[string]int

	probes singleflight.Group
	loads  singleflight.Group

	// inject serialises script attachment across all URLs so two plugins
	// never define their renderers concurrently.
	inject sync.Mutex

	probeCount atomic.Int64
	loadCount  atomic.Int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithPolicy sets the probe cache policy.
func WithPolicy(p CachePolicy) Option {
	return func(r *Registry) { r.policy = p }
}

// WithLogger sets the registry logger.
func WithLogger(l logging.Sink) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithAttachHook registers a callback run after each attachment.
func WithAttachHook(fn func(Resource)) Option {
	return func(r *Registry) { r.onAttach = fn }
}

// New creates an empty registry backed by fetcher.
func New(fetcher Fetcher, opts ...Option) *Registry {
	r := &Registry{
		fetcher:  fetcher,
		logger:   logging.Discard(),
		avail:    make(map[string]Availability),
		attached: make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the probe cache policy in effect.
func (r *Registry) Policy() CachePolicy {
	return r.policy
}

// Availability returns the cached probe state of url.
func (r *Registry) Availability(url string) Availability {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.avail[url]
}

// Probe reports whether url exists. A cache miss sends exactly one HEAD
// request; callers arriving while it is in flight wait for its answer.
// Transport failures are returned and not cached.
func (r *Registry) Probe(ctx context.Context, url string) (bool, error) {
	if r.policy == CachePerSession {
		if a := r.Availability(url); a != Unknown {
			return a == Exists, nil
		}
	}

	v, err := r.do(ctx, &r.probes, url, func(ctx context.Context) (interface{}, error) {
		if r.policy == CachePerSession {
			if a := r.Availability(url); a != Unknown {
				return a == Exists, nil
			}
		}

		r.probeCount.Add(1)
		exists, err := r.fetcher.ProbeExists(ctx, url)
		if err != nil {
			r.logger.Warnf("probe %s failed: %v", url, err)
			return false, err
		}

		r.mu.Lock()
		if exists {
			r.avail[url] = Exists
		} else {
			r.avail[url] = Absent
		}
		r.mu.Unlock()
		return exists, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// EnsureLoaded attaches the resource at url to the page head unless it is
// already there. Concurrent calls for the same url share one download and
// one attachment. A failed load is not remembered.
func (r *Registry) EnsureLoaded(ctx context.Context, url string, kind remote.ResourceKind) error {
	if r.Attached(url) {
		return nil
	}

	_, err := r.do(ctx, &r.loads, url, func(ctx context.Context) (interface{}, error) {
		if kind == remote.KindScript {
			r.inject.Lock()
			defer r.inject.Unlock()
		}
		if r.Attached(url) {
			return nil, nil
		}

		r.loadCount.Add(1)
		body, err := r.fetcher.FetchResource(ctx, url)
		if err != nil {
			r.logger.Errorf("failed to load %s %s: %v", kind, url, err)
			return nil, err
		}

		res := Resource{URL: url, Kind: kind, Body: body, AttachedAt: time.Now()}
		r.mu.Lock()
		r.attached[url] = len(r.head)
		r.head = append(r.head, res)
		// A successful load also settles the existence question.
		r.avail[url] = Exists
		r.mu.Unlock()

		r.logger.Infof("attached %s %s (%d bytes)", kind, url, len(body))
		if r.onAttach != nil {
			r.onAttach(res)
		}
		return nil, nil
	})
	return err
}

// Attached reports whether url is in the page head.
func (r *Registry) Attached(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.attached[url]
	return ok
}

// Resource returns the attached resource for url.
func (r *Registry) Resource(url string) (Resource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.attached[url]
	if !ok {
		return Resource{}, false
	}
	return r.head[i], true
}

// Head returns the attached resources in attachment order.
func (r *Registry) Head() []Resource {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Resource, len(r.head))
	copy(out, r.head)
	return out
}

// Stats returns the number of probes and loads sent so far.
func (r *Registry) Stats() Stats {
	return Stats{Probes: r.probeCount.Load(), Loads: r.loadCount.Load()}
}

// do runs fn once per key among concurrent callers. The shared call runs
// detached from any single caller's cancellation; each caller stops
// waiting when its own context is done.
func (r *Registry) do(ctx context.Context, g *singleflight.Group, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	shared := context.WithoutCancel(ctx)
	ch := g.DoChan(key, func() (interface{}, error) {
		return fn(shared)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
