package display

import (
	"errors"
	"sync"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/entrhq/objbrowser/pkg/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct {
	Generic
	closed int
}

func (c *closeRecorder) Close() { c.closed++ }

func TestPage_Containers(t *testing.T) {
	var mu sync.Mutex
	var changed []string
	page := NewPage(Env{})
	page.OnChange(func(id string) {
		mu.Lock()
		defer mu.Unlock()
		changed = append(changed, id)
	})

	a, err := page.AddContainer("a")
	require.NoError(t, err)
	_, err = page.AddContainer("b")
	require.NoError(t, err)

	_, err = page.AddContainer("a")
	assert.Error(t, err, "ids are unique")
	_, err = page.AddContainer("")
	assert.Error(t, err)

	got, ok := page.Container("a")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, []string{"a", "b"}, page.Containers())

	assert.True(t, page.RemoveContainer("a"))
	assert.False(t, page.RemoveContainer("a"))
	_, ok = page.Container("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, page.Containers())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, changed, "a")
	assert.Contains(t, changed, "b")
}

func TestContainer_Content(t *testing.T) {
	page := NewPage(Env{})
	c, err := page.AddContainer("pane")
	require.NoError(t, err)

	v0 := c.Version()
	c.SetContent("hello")
	c.Append(" world")
	assert.Equal(t, "hello world", c.Content())
	assert.Greater(t, c.Version(), v0)

	c.SetStyle(lipgloss.NewStyle().Bold(true))
	_, styled := c.Style()
	assert.True(t, styled)

	c.SetDisabled(true)
	assert.True(t, c.Disabled())

	c.Clear()
	assert.Empty(t, c.Content())
	assert.False(t, c.Disabled())
	_, styled = c.Style()
	assert.False(t, styled)
}

func TestContainer_ClearClosesOwner(t *testing.T) {
	page := NewPage(Env{})
	c, err := page.AddContainer("pane")
	require.NoError(t, err)

	owner := &closeRecorder{}
	c.SetOwner(owner)
	assert.Same(t, owner, c.Owner())

	c.Clear()
	assert.Equal(t, 1, owner.closed)
	assert.Nil(t, c.Owner())

	c.Clear()
	assert.Equal(t, 1, owner.closed, "owner is closed once")
}

func TestContainer_Claims(t *testing.T) {
	page := NewPage(Env{})
	c, err := page.AddContainer("pane")
	require.NoError(t, err)

	first := c.Claim()
	second := c.Claim()
	assert.False(t, c.Current(first))
	assert.True(t, c.Current(second))

	assert.False(t, c.DrawClaimed(first, func() { c.SetContent("stale") }))
	assert.True(t, c.DrawClaimed(second, func() { c.SetContent("fresh") }))
	assert.Equal(t, "fresh", c.Content())

	// Removing the container invalidates requests still in flight.
	third := c.Claim()
	page.RemoveContainer("pane")
	assert.False(t, c.DrawClaimed(third, func() { c.SetContent("late") }))
	assert.Empty(t, c.Content())
}

func TestContainer_View(t *testing.T) {
	page := NewPage(Env{})
	c, err := page.AddContainer("pane")
	require.NoError(t, err)
	c.SetContent("text")
	assert.Contains(t, c.View(20), "text")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Gauge", func() Object { return NewGeneric() }))

	assert.Error(t, r.Register("Gauge", func() Object { return NewGeneric() }))
	assert.Error(t, r.Register("", func() Object { return NewGeneric() }))
	assert.Error(t, r.Register("Nil", nil))

	obj, err := r.New("Gauge")
	require.NoError(t, err)
	assert.NotNil(t, obj)

	_, err = r.New("Missing")
	assert.True(t, errors.Is(err, ErrUnknownRenderer))

	assert.True(t, r.Has("Gauge"))
	assert.Equal(t, []string{"Gauge"}, r.Names())

	assert.Panics(t, func() { r.MustRegister("Gauge", func() Object { return NewGeneric() }) })
}

func TestDefaultRegistryHasGeneric(t *testing.T) {
	assert.True(t, DefaultRegistry.Has(GenericClass))
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "parse error",
			err:  &remote.ParseError{URL: "http://h/A", Snippet: "Oops not json", Err: errors.New("bad")},
			want: "Failed to parse json from server (http://h/A): Oops not json",
		},
		{
			name: "status error",
			err:  &remote.NetworkError{Method: "GET", URL: "http://h/A", StatusCode: 404},
			want: "Failed to fetch http://h/A: server answered 404",
		},
		{
			name: "transport error",
			err:  &remote.NetworkError{Method: "GET", URL: "http://h/A", Err: errors.New("refused")},
			want: "Failed to fetch http://h/A: refused",
		},
		{
			name: "other",
			err:  errors.New("boom"),
			want: "Error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorText(tt.err))
		})
	}
}

func TestErrorPanel(t *testing.T) {
	page := NewPage(Env{})
	c, err := page.AddContainer("pane")
	require.NoError(t, err)
	c.SetContent("old")

	ErrorPanel(c, &remote.ParseError{URL: "u", Err: errors.New("x")})
	assert.True(t, c.Disabled())
	assert.Contains(t, c.Content(), ParseFailureText)
	assert.NotContains(t, c.Content(), "old")
}
