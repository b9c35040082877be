// Package refresh re-fetches and re-renders a displayed object on a fixed
// period.
//
// Every period change mints a new Token. A pending timer remembers the token
// it was armed with and does nothing when it fires after the token has been
// replaced, so changing the period never leaves two loops running.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entrhq/objbrowser/pkg/logging"
	"github.com/entrhq/objbrowser/pkg/remote"
	"github.com/google/uuid"
)

// FetchFunc retrieves the current state of the displayed object.
type FetchFunc func(ctx context.Context) (*remote.ObjectNode, error)

// RenderFunc draws a freshly fetched node.
type RenderFunc func(node *remote.ObjectNode) error

// State is the scheduling state of a Scheduler.
type State int

const (
	// Idle means no timer is pending.
	Idle State = iota
	// Scheduled means a timer is armed with the current token.
	Scheduled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Token identifies one refresh loop. Tokens of a scheduler are strictly
// increasing; the uuid only correlates log lines.
type Token struct {
	seq uint64
	id  uuid.UUID
}

// Seq returns the position of the token in the scheduler's sequence.
func (t Token) Seq() uint64 { return t.seq }

// IsZero reports whether t was never minted.
func (t Token) IsZero() bool { return t.seq == 0 }

func (t Token) String() string {
	return fmt.Sprintf("%d/%s", t.seq, t.id.String()[:8])
}

// Timer is the part of *time.Timer the scheduler uses.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithAfterFunc replaces the wall clock, mostly for tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Scheduler) { s.after = fn }
}

// WithLogger sets the logger for fetch and render failures.
func WithLogger(l logging.Sink) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithFetchTimeout bounds each fetch. Zero means no bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// Scheduler runs fetch then render every period until the period is set to
// zero or Stop is called.
type Scheduler struct {
	fetch   FetchFunc
	render  RenderFunc
	after   AfterFunc
	logger  logging.Sink
	timeout time.Duration

	mu      sync.Mutex
	seq     uint64
	current Token
	period  time.Duration
	timer   Timer
	state   State

	runs    atomic.Uint64
	renders atomic.Uint64
}

// New creates an idle scheduler.
func New(fetch FetchFunc, render RenderFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetch:  fetch,
		render: render,
		after:  realAfterFunc,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPeriod replaces the running loop, if any, with one that fires every d.
// A non-positive d leaves the scheduler idle. The returned token identifies
// the new loop.
func (s *Scheduler) SetPeriod(d time.Duration) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.mintLocked()
	s.period = d
	if d > 0 {
		s.armLocked(tok, d)
	}
	s.logger.Debugf("refresh period set to %v (token %s)", d, tok)
	return tok
}

// Stop cancels the current loop. A run already in progress completes but
// does not re-arm.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mintLocked()
	s.period = 0
}

// State returns whether a timer is pending.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Period returns the current period.
func (s *Scheduler) Period() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

// Current returns the token of the live loop.
func (s *Scheduler) Current() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Runs returns how many fires carried a live token.
func (s *Scheduler) Runs() uint64 { return s.runs.Load() }

// Renders returns how many renders completed without error.
func (s *Scheduler) Renders() uint64 { return s.renders.Load() }

// mintLocked invalidates the live loop and returns the next token.
func (s *Scheduler) mintLocked() Token {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = Idle
	s.seq++
	s.current = Token{seq: s.seq, id: uuid.New()}
	return s.current
}

func (s *Scheduler) armLocked(tok Token, d time.Duration) {
	s.timer = s.after(d, func() { s.fire(tok) })
	s.state = Scheduled
}

func (s *Scheduler) live(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tok == s.current
}

func (s *Scheduler) fire(tok Token) {
	s.mu.Lock()
	if tok != s.current {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.state = Idle
	s.mu.Unlock()

	s.runs.Add(1)
	s.run(tok)

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok == s.current && s.period > 0 {
		s.armLocked(tok, s.period)
	}
}

func (s *Scheduler) run(tok Token) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	node, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warnf("refresh %s: fetch failed: %v", tok, err)
		return
	}
	// The period may have changed while the fetch was in flight.
	if !s.live(tok) {
		return
	}
	if err := s.render(node); err != nil {
		s.logger.Warnf("refresh %s: render failed: %v", tok, err)
		return
	}
	s.renders.Add(1)
}
