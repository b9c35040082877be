package browser

import (
	"fmt"

	"github.com/entrhq/objbrowser/pkg/config"
	"github.com/entrhq/objbrowser/pkg/display"
)

// NewTargetLabel labels the target that opens a node as a new view.
const NewTargetLabel = "N"

// Target is a place a selected node can be shown in.
type Target struct {
	Label       string
	ContainerID string
	Row         int
	Col         int
	// Width is the column width in percent of the row.
	Width int
}

// IsNew reports whether the target opens a new view rather than a pane.
func (t Target) IsNew() bool {
	return t.ContainerID == ""
}

// RowID returns the id of pane row r.
func (b *TreeBrowser) RowID(r int) string {
	return fmt.Sprintf("_%s_rightPaneContainerR%d", b.uid, r)
}

// PaneID returns the container id of the pane at row r, column c.
func (b *TreeBrowser) PaneID(r, c int) string {
	return fmt.Sprintf("%sC%d", b.RowID(r), c)
}

// CreateTargetPanels replaces the pane grid with one container per cell of
// layout. Objects shown in the old panes are closed.
func (b *TreeBrowser) CreateTargetPanels(layout config.PanelLayout) error {
	b.mu.Lock()
	c := b.container
	old := b.panes
	b.mu.Unlock()
	if c == nil {
		return fmt.Errorf("create panels: %w", display.ErrNotInitialized)
	}

	page := c.Page()
	for _, t := range old {
		page.RemoveContainer(t.ContainerID)
	}

	panes := make([]Target, 0, layout.Panes())
	for r, row := range layout {
		for col, width := range row {
			id := b.PaneID(r, col)
			if _, err := page.AddContainer(id); err != nil {
				return fmt.Errorf("create pane %dx%d: %w", r, col, err)
			}
			panes = append(panes, Target{
				Label:       fmt.Sprintf("%dx%d", r, col),
				ContainerID: id,
				Row:         r,
				Col:         col,
				Width:       width,
			})
		}
	}

	b.mu.Lock()
	b.layout = layout.Clone()
	b.panes = panes
	b.mu.Unlock()
	return nil
}

// Layout returns the current pane layout.
func (b *TreeBrowser) Layout() config.PanelLayout {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.layout.Clone()
}

// Targets lists the panes in row-major order followed by the New target.
func (b *TreeBrowser) Targets() []Target {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]Target(nil), b.panes...)
	return append(out, Target{Label: NewTargetLabel, Row: -1, Col: -1})
}

// Target looks a target up by label.
func (b *TreeBrowser) Target(label string) (Target, bool) {
	for _, t := range b.Targets() {
		if t.Label == label {
			return t, true
		}
	}
	return Target{}, false
}

// LayoutText returns the layout as the JSON text the user edits.
func (b *TreeBrowser) LayoutText() string {
	return b.Layout().String()
}

// ApplyLayout parses, persists and applies a layout typed by the user.
// Invalid text yields a *config.LayoutError and changes nothing.
func (b *TreeBrowser) ApplyLayout(text string) (config.PanelLayout, error) {
	b.mu.Lock()
	store := b.env.Layouts
	b.mu.Unlock()

	var (
		layout config.PanelLayout
		err    error
	)
	if store != nil {
		layout, err = store.SetText(b.ScopeKey(), text)
	} else {
		layout, err = config.ParseLayout(text)
	}
	if err != nil {
		return nil, err
	}

	if err := b.CreateTargetPanels(layout); err != nil {
		return nil, err
	}
	return layout, nil
}
