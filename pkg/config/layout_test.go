package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLayout(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    PanelLayout
		wantErr bool
	}{
		{name: "single pane", text: "[[100]]", want: PanelLayout{{100}}},
		{name: "two rows", text: " [[100],[50,50]] ", want: PanelLayout{{100}, {50, 50}}},
		{name: "sum not checked", text: "[[30,30]]", want: PanelLayout{{30, 30}}},
		{name: "invalid json", text: "[[100]", wantErr: true},
		{name: "not nested", text: "[100]", wantErr: true},
		{name: "no rows", text: "[]", wantErr: true},
		{name: "empty row", text: "[[100],[]]", wantErr: true},
		{name: "zero width", text: "[[0,100]]", wantErr: true},
		{name: "negative width", text: "[[-50,150]]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLayout(tt.text)
			if tt.wantErr {
				var layoutErr *LayoutError
				require.Error(t, err)
				assert.True(t, errors.As(err, &layoutErr))
				assert.Equal(t, tt.text, layoutErr.Text)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPanelLayout(t *testing.T) {
	l := PanelLayout{{100}, {50, 50}}
	assert.Equal(t, 3, l.Panes())
	assert.Equal(t, "[[100],[50,50]]", l.String())

	c := l.Clone()
	c[1][0] = 10
	assert.Equal(t, 50, l[1][0], "clone must not share rows")

	assert.Equal(t, PanelLayout{{100}}, DefaultLayout())
}

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "HttpObjectBrowser_Root", ScopeKey("Root"))
	assert.Equal(t, "HttpObjectBrowser_Root_App_State", ScopeKey("Root/App/State"))
	assert.Equal(t, "HttpObjectBrowser_", ScopeKey(""))
}

func TestLayoutSection(t *testing.T) {
	t.Run("default when absent", func(t *testing.T) {
		s := NewLayoutSection()
		assert.Equal(t, PanelLayout{{100}}, s.Get("missing"))
	})

	t.Run("set rejects invalid layout", func(t *testing.T) {
		s := NewLayoutSection()
		err := s.Set("k", PanelLayout{})
		var layoutErr *LayoutError
		assert.True(t, errors.As(err, &layoutErr))
		assert.Empty(t, s.Keys())
	})

	t.Run("get returns a copy", func(t *testing.T) {
		s := NewLayoutSection()
		require.NoError(t, s.Set("k", PanelLayout{{50, 50}}))
		got := s.Get("k")
		got[0][0] = 1
		assert.Equal(t, PanelLayout{{50, 50}}, s.Get("k"))
	})

	t.Run("set data accepts text and arrays", func(t *testing.T) {
		s := NewLayoutSection()
		err := s.SetData(map[string]interface{}{
			"a": "[[100],[50,50]]",
			"b": []interface{}{[]interface{}{float64(25), float64(75)}},
		})
		require.NoError(t, err)
		assert.Equal(t, PanelLayout{{100}, {50, 50}}, s.Get("a"))
		assert.Equal(t, PanelLayout{{25, 75}}, s.Get("b"))
	})

	t.Run("set data rejects bad entries", func(t *testing.T) {
		s := NewLayoutSection()
		assert.Error(t, s.SetData(map[string]interface{}{"a": "nope"}))
		assert.Error(t, s.SetData(map[string]interface{}{"a": 42}))
	})

	t.Run("reset drops layouts", func(t *testing.T) {
		s := NewLayoutSection()
		require.NoError(t, s.Set("k", PanelLayout{{50, 50}}))
		s.Reset()
		assert.Empty(t, s.Keys())
	})
}

func TestLayoutStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	layouts, err := NewLayoutStore(NewManager(store))
	require.NoError(t, err)

	key := ScopeKey("Root/App")
	assert.Equal(t, PanelLayout{{100}}, layouts.Get(key))

	got, err := layouts.SetText(key, "[[100],[50,50]]")
	require.NoError(t, err)
	assert.Equal(t, PanelLayout{{100}, {50, 50}}, got)

	// A fresh store over the same file sees the persisted layout.
	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	again, err := NewLayoutStore(NewManager(reopened))
	require.NoError(t, err)
	assert.Equal(t, PanelLayout{{100}, {50, 50}}, again.Get(key))
}

func TestLayoutStore_InvalidTextNotPersisted(t *testing.T) {
	manager := NewManager(NewMemoryStore())
	layouts, err := NewLayoutStore(manager)
	require.NoError(t, err)

	key := ScopeKey("Root")
	_, err = layouts.SetText(key, "[[50,50]")
	var layoutErr *LayoutError
	require.True(t, errors.As(err, &layoutErr))

	assert.Equal(t, PanelLayout{{100}}, layouts.Get(key))
	data, err := manager.Store().GetSection(SectionIDLayouts)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestNewLayoutStore_ReusesRegisteredSection(t *testing.T) {
	manager := NewManager(NewMemoryStore())
	section := NewLayoutSection()
	require.NoError(t, manager.RegisterSection(section))

	layouts, err := NewLayoutStore(manager)
	require.NoError(t, err)
	require.NoError(t, layouts.Set("k", PanelLayout{{10, 90}}))
	assert.Equal(t, PanelLayout{{10, 90}}, section.Get("k"))
}
