package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDUI is the identifier for the UI settings section
	SectionIDUI = "ui"

	// Default values for UI settings
	defaultTreeWidth     = 30
	defaultHighlightJSON = true
	defaultJSONTheme     = "dracula"
)

// UISection manages user interface configuration settings.
type UISection struct {
	TreeWidth     int    `json:"tree_width"`
	HighlightJSON bool   `json:"highlight_json"`
	JSONTheme     string `json:"json_theme"`
	mu            sync.RWMutex
}

// NewUISection creates a new UI section with default settings.
func NewUISection() *UISection {
	return &UISection{
		TreeWidth:     defaultTreeWidth,
		HighlightJSON: defaultHighlightJSON,
		JSONTheme:     defaultJSONTheme,
	}
}

// ID returns the section identifier.
func (s *UISection) ID() string {
	return SectionIDUI
}

// Title returns the section title.
func (s *UISection) Title() string {
	return "UI Settings"
}

// Description returns the section description.
func (s *UISection) Description() string {
	return "Navigation tree width and how the generic renderer shows raw JSON."
}

// Data returns the current configuration data.
func (s *UISection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"tree_width":     s.TreeWidth,
		"highlight_json": s.HighlightJSON,
		"json_theme":     s.JSONTheme,
	}
}

// SetData updates the configuration from the provided data.
func (s *UISection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "tree_width":
			switch v := value.(type) {
			case float64:
				// JSON numbers come as float64
				s.TreeWidth = int(v)
			case int:
				s.TreeWidth = v
			default:
				return fmt.Errorf("invalid value type for tree_width: expected number, got %T", value)
			}

		case "highlight_json":
			if enabled, ok := value.(bool); ok {
				s.HighlightJSON = enabled
			} else {
				return fmt.Errorf("invalid value type for highlight_json: expected bool, got %T", value)
			}

		case "json_theme":
			if theme, ok := value.(string); ok {
				s.JSONTheme = theme
			} else {
				return fmt.Errorf("invalid value type for json_theme: expected string, got %T", value)
			}

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *UISection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.TreeWidth < 10 || s.TreeWidth > 90 {
		return fmt.Errorf("tree_width must be between 10 and 90 percent, got %d", s.TreeWidth)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *UISection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TreeWidth = defaultTreeWidth
	s.HighlightJSON = defaultHighlightJSON
	s.JSONTheme = defaultJSONTheme
}

// GetTreeWidth returns the navigation tree width in percent of the screen.
func (s *UISection) GetTreeWidth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.TreeWidth
}

// GetJSONDisplay returns whether raw JSON is highlighted and the theme to use.
func (s *UISection) GetJSONDisplay() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.HighlightJSON, s.JSONTheme
}
