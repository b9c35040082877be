package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

const (
	// SectionIDLayouts is the identifier for the panel layout section
	SectionIDLayouts = "panel_layouts"

	// scopePrefix prefixes every layout key so layouts of different root
	// views never collide with other keys in the section.
	scopePrefix = "HttpObjectBrowser_"
)

// PanelLayout is the pane grid of a browser view: one entry per row, each
// row listing its column widths in percent. Widths in a row are expected
// to add up to 100 but this is not checked; other sums simply render
// misproportioned panes.
type PanelLayout [][]int

// DefaultLayout is a single full-width pane.
func DefaultLayout() PanelLayout {
	return PanelLayout{{100}}
}

// Panes returns the total number of panes in the layout.
func (l PanelLayout) Panes() int {
	n := 0
	for _, row := range l {
		n += len(row)
	}
	return n
}

// Clone returns a deep copy of the layout.
func (l PanelLayout) Clone() PanelLayout {
	out := make(PanelLayout, len(l))
	for i, row := range l {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// String returns the JSON text of the layout, e.g. [[100],[50,50]].
func (l PanelLayout) String() string {
	data, err := json.Marshal([][]int(l))
	if err != nil {
		return "[]"
	}
	return string(data)
}

func (l PanelLayout) validate() error {
	if len(l) == 0 {
		return fmt.Errorf("layout needs at least one row")
	}
	for r, row := range l {
		if len(row) == 0 {
			return fmt.Errorf("row %d needs at least one column", r)
		}
		for c, w := range row {
			if w <= 0 {
				return fmt.Errorf("row %d column %d: width must be positive, got %d", r, c, w)
			}
		}
	}
	return nil
}

// LayoutError reports a layout text that cannot be used. The user is
// expected to correct it before it is persisted.
type LayoutError struct {
	Text string
	Err  error
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("invalid layout %q: %v", e.Text, e.Err)
}

func (e *LayoutError) Unwrap() error { return e.Err }

// ParseLayout parses layout JSON such as [[100],[50,50]].
func ParseLayout(text string) (PanelLayout, error) {
	var layout PanelLayout
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &layout); err != nil {
		return nil, &LayoutError{Text: text, Err: err}
	}
	if err := layout.validate(); err != nil {
		return nil, &LayoutError{Text: text, Err: err}
	}
	return layout, nil
}

// ScopeKey derives the storage key of a browser view from its root object
// path, so different root views keep independent layouts.
func ScopeKey(objPath string) string {
	return scopePrefix + strings.ReplaceAll(objPath, "/", "_")
}

// LayoutSection persists the pane grid of each browser view.
type LayoutSection struct {
	layouts map[string]PanelLayout
	mu      sync.RWMutex
}

// NewLayoutSection creates an empty layout section.
func NewLayoutSection() *LayoutSection {
	return &LayoutSection{layouts: make(map[string]PanelLayout)}
}

// ID returns the section identifier.
func (s *LayoutSection) ID() string {
	return SectionIDLayouts
}

// Title returns the section title.
func (s *LayoutSection) Title() string {
	return "Panel Layouts"
}

// Description returns the section description.
func (s *LayoutSection) Description() string {
	return "Pane grid (rows of column widths in percent) of each browser view, keyed by root object path."
}

// Get returns the stored layout for scopeKey, or the default layout.
func (s *LayoutSection) Get(scopeKey string) PanelLayout {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.layouts[scopeKey]; ok {
		return l.Clone()
	}
	return DefaultLayout()
}

// Set stores the layout for scopeKey.
func (s *LayoutSection) Set(scopeKey string, layout PanelLayout) error {
	if err := layout.validate(); err != nil {
		return &LayoutError{Text: layout.String(), Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts[scopeKey] = layout.Clone()
	return nil
}

// Keys returns the scope keys that have a stored layout.
func (s *LayoutSection) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.layouts))
	for k := range s.layouts {
		keys = append(keys, k)
	}
	return keys
}

// Data returns the current configuration data. Layouts are stored as their
// JSON text.
func (s *LayoutSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := make(map[string]any, len(s.layouts))
	for k, l := range s.layouts {
		data[k] = l.String()
	}
	return data
}

// SetData updates the configuration from the provided data. Values may be
// layout JSON text or the decoded nested arrays.
func (s *LayoutSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	layouts := make(map[string]PanelLayout, len(data))
	for key, value := range data {
		var text string
		switch v := value.(type) {
		case string:
			text = v
		case []any:
			raw, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("invalid layout for %s: %w", key, err)
			}
			text = string(raw)
		default:
			return fmt.Errorf("invalid value type for layout %s: expected string or array, got %T", key, value)
		}

		layout, err := ParseLayout(text)
		if err != nil {
			return fmt.Errorf("layout %s: %w", key, err)
		}
		layouts[key] = layout
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, l := range layouts {
		s.layouts[k] = l
	}
	return nil
}

// Validate validates the current configuration.
func (s *LayoutSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for k, l := range s.layouts {
		if err := l.validate(); err != nil {
			return fmt.Errorf("layout %s: %w", k, err)
		}
	}
	return nil
}

// Reset drops every stored layout.
func (s *LayoutSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts = make(map[string]PanelLayout)
}

// LayoutStore reads and persists browser layouts through a Manager. Every
// Set is written to the backing Store immediately.
type LayoutStore struct {
	manager *Manager
	section *LayoutSection
}

// NewLayoutStore returns a store over the manager's layout section,
// registering the section if the manager does not have one yet.
func NewLayoutStore(manager *Manager) (*LayoutStore, error) {
	if s, ok := manager.GetSection(SectionIDLayouts); ok {
		section, ok := s.(*LayoutSection)
		if !ok {
			return nil, fmt.Errorf("section %s has unexpected type %T", SectionIDLayouts, s)
		}
		return &LayoutStore{manager: manager, section: section}, nil
	}

	section := NewLayoutSection()
	if err := manager.RegisterSection(section); err != nil {
		return nil, err
	}
	data, err := manager.Store().GetSection(SectionIDLayouts)
	if err != nil {
		return nil, err
	}
	if err := section.SetData(data); err != nil {
		return nil, err
	}
	return &LayoutStore{manager: manager, section: section}, nil
}

// Get returns the layout for scopeKey, or the default single pane.
func (s *LayoutStore) Get(scopeKey string) PanelLayout {
	return s.section.Get(scopeKey)
}

// Set stores and persists the layout for scopeKey.
func (s *LayoutStore) Set(scopeKey string, layout PanelLayout) error {
	if err := s.section.Set(scopeKey, layout); err != nil {
		return err
	}
	return s.manager.SaveSection(SectionIDLayouts)
}

// SetText parses layout JSON and persists it. Nothing is stored when the
// text is invalid; the returned error is a *LayoutError.
func (s *LayoutStore) SetText(scopeKey, text string) (PanelLayout, error) {
	layout, err := ParseLayout(text)
	if err != nil {
		return nil, err
	}
	if err := s.Set(scopeKey, layout); err != nil {
		return nil, err
	}
	return layout, nil
}
