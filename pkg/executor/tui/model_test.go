package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/objbrowser/pkg/browser"
	"github.com/entrhq/objbrowser/pkg/config"
	"github.com/entrhq/objbrowser/pkg/display"
	"github.com/entrhq/objbrowser/pkg/loader"
	"github.com/entrhq/objbrowser/pkg/remote"
	"github.com/entrhq/objbrowser/pkg/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var objects = map[string]string{
	"Root": `{"Name":"Root","Class":"HttpObjectBrowser","IsContainer":1,
		"0":{"Name":"Foo","Class":"ReferenceContainer","IsContainer":1},
		"1":{"Name":"Baz","Class":"GAM","IsContainer":0}}`,
	"Root/Foo": `{"Name":"Foo","Class":"ReferenceContainer","IsContainer":1,
		"0":{"Name":"Inner","Class":"GAM"},
		"1":{"Name":"Deep","Class":"ReferenceContainer","IsContainer":1}}`,
	"Root/Foo/Inner": `{"Name":"Inner","Class":"GAM","Cycles":9}`,
	"Root/Baz":       `{"Name":"Baz","Class":"GAM","Cycles":5}`,
}

func serveObjects(w http.ResponseWriter, r *http.Request) {
	if p := r.URL.Query().Get("path"); p != "" {
		if p != "HttpObjectBrowser.js" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "/* plugin */")
		return
	}
	body, ok := objects[strings.TrimPrefix(r.URL.Path, "/")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, body)
}

type shell struct {
	m      *model
	page   *display.Page
	client *remote.Client

	mu     sync.Mutex
	opened []string
	copied []string
}

func newShell(t *testing.T, rootPath string) *shell {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(serveObjects))
	t.Cleanup(srv.Close)

	client, err := remote.NewClient(srv.URL + "/?ObjPath=Root&TextMode=1")
	require.NoError(t, err)
	layouts, err := config.NewLayoutStore(config.NewManager(config.NewMemoryStore()))
	require.NoError(t, err)

	s := &shell{client: client}
	s.page = display.NewPage(display.Env{
		Fetcher: client,
		Layouts: layouts,
		ViewURL: client.ViewURL,
		OpenView: func(url, path string) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.opened = append(s.opened, url)
		},
	})
	l, err := loader.New(s.page, client, resource.New(client))
	require.NoError(t, err)
	s.page.SetResolver(l)

	_, err = s.page.AddContainer(DefaultRootID)
	require.NoError(t, err)
	root, err := l.ResolveAndRender(context.Background(), rootPath, "", DefaultRootID)
	require.NoError(t, err)
	t.Cleanup(func() {
		for _, id := range s.page.Containers() {
			if c, ok := s.page.Container(id); ok {
				if r, ok := c.Owner().(display.Refresher); ok {
					r.SetRefreshPeriod(0)
				}
			}
		}
	})

	s.m = newModel(context.Background(), s.page, DefaultRootID, root)
	s.m.copyText = func(text string) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.copied = append(s.copied, text)
		return nil
	}
	s.m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return s
}

// send feeds msg to the model and then every message produced by the
// resulting commands that finishes promptly. Timers such as toast expiry
// are left alone.
func (s *shell) send(msg tea.Msg) {
	_, cmd := s.m.Update(msg)
	for _, out := range collect(cmd) {
		switch out.(type) {
		case toggleDoneMsg, selectDoneMsg, openViewMsg, toastMsg:
			s.send(out)
		}
	}
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		return []tea.Msg{msg}
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func paths(rows []browser.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Path
	}
	return out
}

func TestModel_CursorMovement(t *testing.T) {
	s := newShell(t, "Root")
	require.NotNil(t, s.m.browser)
	assert.Equal(t, []string{"Root/Foo", "Root/Baz"}, paths(s.m.rows()))

	s.send(key("down"))
	assert.Equal(t, 1, s.m.cursor)
	s.send(key("down"))
	assert.Equal(t, 1, s.m.cursor, "cursor stops at the last row")
	s.send(key("k"))
	assert.Equal(t, 0, s.m.cursor)
	s.send(key("up"))
	assert.Equal(t, 0, s.m.cursor)
}

func TestModel_ExpandAndCollapse(t *testing.T) {
	s := newShell(t, "Root")

	s.send(key("enter"))
	assert.Equal(t, []string{"Root/Foo", "Root/Foo/Inner", "Root/Foo/Deep", "Root/Baz"}, paths(s.m.rows()))
	assert.Equal(t, 0, s.m.busy)

	s.send(key(" "))
	assert.Equal(t, []string{"Root/Foo", "Root/Baz"}, paths(s.m.rows()))
}

func TestModel_ToggleLeafDoesNothing(t *testing.T) {
	s := newShell(t, "Root")
	s.send(key("down"))

	_, cmd := s.m.Update(key("enter"))
	assert.Nil(t, cmd)
}

func TestModel_ExpandFailureShowsToast(t *testing.T) {
	s := newShell(t, "Root")
	s.send(key("enter"))
	s.send(key("down"))
	s.send(key("down"))
	row, ok := s.m.selectedRow()
	require.True(t, ok)
	require.Equal(t, "Root/Foo/Deep", row.Path)

	// Deep is not served.
	s.send(key("enter"))
	assert.True(t, s.m.toast.active)
	assert.True(t, s.m.toast.isError)
	state, _ := s.m.browser.State("Root/Foo/Deep")
	assert.Equal(t, browser.Collapsed, state)
}

func TestModel_ShowInTarget(t *testing.T) {
	s := newShell(t, "Root")
	s.send(key("down"))
	s.send(key("s"))

	target, ok := s.m.currentTarget()
	require.True(t, ok)
	assert.Equal(t, "0x0", target.Label)

	c, ok := s.page.Container(target.ContainerID)
	require.True(t, ok)
	assert.Contains(t, c.Content(), "Baz (GAM)")
	assert.False(t, s.m.toast.active)
}

func TestModel_NewView(t *testing.T) {
	s := newShell(t, "Root")
	s.send(key("n"))

	require.Len(t, s.opened, 1)
	assert.Equal(t, s.client.ViewURL("Root/Foo"), s.opened[0])

	s.send(openViewMsg{url: s.opened[0], path: "Root/Foo"})
	assert.Equal(t, []string{s.opened[0]}, s.copied)
	assert.Contains(t, s.m.toast.details, "Root/Foo")
}

func TestModel_TargetCycling(t *testing.T) {
	s := newShell(t, "Root")
	labels := func() string {
		tg, _ := s.m.currentTarget()
		return tg.Label
	}

	assert.Equal(t, "0x0", labels())
	s.send(key("tab"))
	assert.Equal(t, browser.NewTargetLabel, labels())
	s.send(key("tab"))
	assert.Equal(t, "0x0", labels())
	s.send(key("2"))
	assert.Equal(t, browser.NewTargetLabel, labels())
	s.send(key("9"))
	assert.Equal(t, browser.NewTargetLabel, labels(), "out of range digit is ignored")
}

func TestModel_LayoutPrompt(t *testing.T) {
	s := newShell(t, "Root")

	s.send(key("L"))
	require.True(t, s.m.overlay.isActive())
	assert.Equal(t, "[[100]]", s.m.overlay.prompt.input.Value())

	s.m.overlay.prompt.input.SetValue("[[50,")
	s.send(key("enter"))
	assert.True(t, s.m.overlay.isActive(), "invalid text keeps the prompt open")
	assert.True(t, s.m.toast.isError)
	assert.Equal(t, "[[100]]", s.m.browser.LayoutText())

	s.m.overlay.prompt.input.SetValue("[[50,50],[100]]")
	s.send(key("enter"))
	assert.False(t, s.m.overlay.isActive())
	assert.Len(t, s.m.targets(), 4)
	assert.Contains(t, s.m.View(), "1x0")
}

func TestModel_PromptEscape(t *testing.T) {
	s := newShell(t, "Root")
	s.send(key("L"))
	s.send(key("q"))
	assert.True(t, s.m.overlay.isActive(), "keys go to the prompt")
	s.send(key("esc"))
	assert.False(t, s.m.overlay.isActive())
}

func TestModel_RefreshPrompt(t *testing.T) {
	s := newShell(t, "Root")

	s.send(key("r"))
	assert.False(t, s.m.overlay.isActive(), "empty pane has nothing to refresh")
	assert.True(t, s.m.toast.active)

	s.send(key("down"))
	s.send(key("s"))
	s.send(key("r"))
	require.True(t, s.m.overlay.isActive())
	assert.Equal(t, "0", s.m.overlay.prompt.input.Value())

	s.m.overlay.prompt.input.SetValue("10")
	s.send(key("enter"))
	assert.True(t, s.m.overlay.isActive())

	s.m.overlay.prompt.input.SetValue("250")
	s.send(key("enter"))
	assert.False(t, s.m.overlay.isActive())

	target, _ := s.m.currentTarget()
	c, _ := s.page.Container(target.ContainerID)
	r, ok := c.Owner().(display.Refresher)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, r.RefreshPeriod())
}

func TestModel_CopyPath(t *testing.T) {
	s := newShell(t, "Root")
	s.send(key("y"))
	assert.Equal(t, []string{"Root/Foo"}, s.copied)

	s.m.copyText = func(string) error { return errors.New("no clipboard") }
	s.send(key("y"))
	assert.True(t, s.m.toast.isError)
}

func TestModel_ContainerChangedClampsCursor(t *testing.T) {
	s := newShell(t, "Root")
	s.send(key("enter"))
	s.send(key("G"))
	assert.Equal(t, 3, s.m.cursor)

	require.NoError(t, s.m.browser.Toggle(context.Background(), "Root/Foo"))
	s.send(containerChangedMsg{id: DefaultRootID})
	assert.Equal(t, 1, s.m.cursor)
}

func TestModel_ToastExpiry(t *testing.T) {
	s := newShell(t, "Root")
	s.send(toastMsg{message: "hello"})
	require.True(t, s.m.toast.active)

	s.send(toastExpiredMsg{shown: s.m.toast.shownAt.Add(-time.Second)})
	assert.True(t, s.m.toast.active, "an older expiry does not hide a newer toast")

	s.send(toastExpiredMsg{shown: s.m.toast.shownAt})
	assert.False(t, s.m.toast.active)
}

func TestModel_View(t *testing.T) {
	s := newShell(t, "Root")
	view := s.m.View()
	assert.Contains(t, view, "Foo (ReferenceContainer)")
	assert.Contains(t, view, "0x0")
	assert.Contains(t, view, "objbrowser")
}

func TestModel_NonBrowserRoot(t *testing.T) {
	s := newShell(t, "Root/Baz")
	assert.Nil(t, s.m.browser)
	assert.Empty(t, s.m.rows())

	_, cmd := s.m.Update(key("s"))
	assert.Nil(t, cmd)
	assert.Contains(t, s.m.View(), "Baz (GAM)")
}

func TestModel_Quit(t *testing.T) {
	s := newShell(t, "Root")
	_, cmd := s.m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "250", want: 250 * time.Millisecond},
		{in: "2s", want: 2 * time.Second},
		{in: "50ms", want: 50 * time.Millisecond},
		{in: "10", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePeriod(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
