package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/entrhq/objbrowser/pkg/remote"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeFetcher answers probes from a fixed table and can hold requests until
// release is closed, so tests can pile up concurrent callers.
type fakeFetcher struct {
	exists   map[string]bool
	release  chan struct{}
	probeErr error

	probes atomic.Int32
	loads  atomic.Int32

	mu        sync.Mutex
	inFlight  int
	maxFlight int
}

func newFakeFetcher(exists map[string]bool) *fakeFetcher {
	f := &fakeFetcher{exists: exists, release: make(chan struct{})}
	close(f.release)
	return f
}

func (f *fakeFetcher) ProbeExists(ctx context.Context, url string) (bool, error) {
	f.probes.Add(1)
	<-f.release
	if f.probeErr != nil {
		return false, f.probeErr
	}
	return f.exists[url], nil
}

func (f *fakeFetcher) FetchResource(ctx context.Context, url string) ([]byte, error) {
	f.loads.Add(1)
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	f.mu.Unlock()

	<-f.release
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if !f.exists[url] {
		return nil, &remote.NetworkError{Method: "GET", URL: url, StatusCode: 404}
	}
	return []byte("body of " + url), nil
}

func TestEnsureLoadedConcurrentSameScript(t *testing.T) {
	const url = "/?path=Gauge.js&TextMode=1"
	f := &fakeFetcher{exists: map[string]bool{url: true}, release: make(chan struct{})}
	reg := New(f)

	const callers = 20
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- reg.EnsureLoaded(context.Background(), url, remote.KindScript)
		}()
	}

	// Give every caller a chance to queue up behind the first download.
	time.Sleep(20 * time.Millisecond)
	close(f.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.loads.Load(), "exactly one network request")
	assert.Len(t, reg.Head(), 1, "exactly one attached script")
	assert.True(t, reg.Attached(url))
	assert.Equal(t, Exists, reg.Availability(url))

	// Later calls are satisfied from the head.
	require.NoError(t, reg.EnsureLoaded(context.Background(), url, remote.KindScript))
	assert.Equal(t, int32(1), f.loads.Load())
	assert.Equal(t, int64(1), reg.Stats().Loads)
}

func TestEnsureLoadedSerialisesDifferentScripts(t *testing.T) {
	urls := []string{"/?path=A.js", "/?path=B.js", "/?path=C.js", "/?path=D.js"}
	exists := make(map[string]bool)
	for _, u := range urls {
		exists[u] = true
	}
	f := newFakeFetcher(exists)
	reg := New(f)

	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			assert.NoError(t, reg.EnsureLoaded(context.Background(), u, remote.KindScript))
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 1, f.maxFlight, "script injections must not overlap")
	assert.Len(t, reg.Head(), len(urls))
}

func TestEnsureLoadedFailureIsRetried(t *testing.T) {
	const url = "/?path=Broken.js"
	f := newFakeFetcher(map[string]bool{})
	reg := New(f)

	err := reg.EnsureLoaded(context.Background(), url, remote.KindScript)
	require.Error(t, err)
	assert.False(t, reg.Attached(url))

	f.exists = map[string]bool{url: true}
	require.NoError(t, reg.EnsureLoaded(context.Background(), url, remote.KindScript))
	assert.True(t, reg.Attached(url))
	assert.Equal(t, int32(2), f.loads.Load())
}

func TestProbeSharedAndCached(t *testing.T) {
	const url = "/?path=Gauge.css"
	f := &fakeFetcher{exists: map[string]bool{url: true}, release: make(chan struct{})}
	reg := New(f)

	const callers = 10
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := reg.Probe(context.Background(), url)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(f.release)
	wg.Wait()
	close(results)

	for ok := range results {
		assert.True(t, ok)
	}
	assert.Equal(t, int32(1), f.probes.Load(), "concurrent callers share one probe")

	ok, err := reg.Probe(context.Background(), url)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), f.probes.Load(), "resolved probes are cached")
}

func TestProbeAbsentIsCached(t *testing.T) {
	f := newFakeFetcher(map[string]bool{})
	reg := New(f)

	for i := 0; i < 3; i++ {
		ok, err := reg.Probe(context.Background(), "/?path=Bar.js")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, int32(1), f.probes.Load())
	assert.Equal(t, Absent, reg.Availability("/?path=Bar.js"))
}

func TestProbePerCallPolicy(t *testing.T) {
	f := newFakeFetcher(map[string]bool{"/x": true})
	reg := New(f, WithPolicy(CachePerCall))

	for i := 0; i < 3; i++ {
		ok, err := reg.Probe(context.Background(), "/x")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, int32(3), f.probes.Load())
}

func TestProbeTransportErrorNotCached(t *testing.T) {
	f := newFakeFetcher(map[string]bool{"/x": true})
	f.probeErr = errors.New("connection refused")
	reg := New(f)

	_, err := reg.Probe(context.Background(), "/x")
	require.Error(t, err)
	assert.Equal(t, Unknown, reg.Availability("/x"))

	f.probeErr = nil
	ok, err := reg.Probe(context.Background(), "/x")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProbeCallerCancellation(t *testing.T) {
	f := &fakeFetcher{exists: map[string]bool{"/slow": true}, release: make(chan struct{})}
	reg := New(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reg.Probe(ctx, "/slow")
	assert.ErrorIs(t, err, context.Canceled)

	// The detached probe still completes and fills the cache.
	close(f.release)
	assert.Eventually(t, func() bool {
		return reg.Availability("/slow") == Exists
	}, time.Second, 5*time.Millisecond)
}

func TestAttachHook(t *testing.T) {
	f := newFakeFetcher(map[string]bool{"/s.css": true})
	var got []Resource
	reg := New(f, WithAttachHook(func(r Resource) { got = append(got, r) }))

	require.NoError(t, reg.EnsureLoaded(context.Background(), "/s.css", remote.KindStyle))
	require.Len(t, got, 1)
	assert.Equal(t, remote.KindStyle, got[0].Kind)

	res, ok := reg.Resource("/s.css")
	require.True(t, ok)
	assert.Equal(t, "body of /s.css", string(res.Body))
}
