package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDRefresh is the identifier for the refresh section
	SectionIDRefresh = "refresh"

	defaultRefreshPeriod = time.Duration(0)
)

// MinRefreshPeriod is the shortest non-zero refresh period accepted.
const MinRefreshPeriod = 50 * time.Millisecond

// RefreshSection holds the refresh period new renderers start with. Zero
// means a renderer only shows the snapshot it was created with.
type RefreshSection struct {
	DefaultPeriod time.Duration `json:"default_period"`
	mu            sync.RWMutex
}

// NewRefreshSection creates a refresh section with default settings.
func NewRefreshSection() *RefreshSection {
	return &RefreshSection{DefaultPeriod: defaultRefreshPeriod}
}

// ID returns the section identifier.
func (s *RefreshSection) ID() string {
	return SectionIDRefresh
}

// Title returns the section title.
func (s *RefreshSection) Title() string {
	return "Refresh"
}

// Description returns the section description.
func (s *RefreshSection) Description() string {
	return "Default period at which displayed objects are fetched again."
}

// Data returns the current configuration data.
func (s *RefreshSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"default_period": s.DefaultPeriod.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *RefreshSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := data["default_period"]
	if !ok {
		return nil
	}
	switch v := value.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration string for default_period: %w", err)
		}
		s.DefaultPeriod = d
	case float64:
		// JSON numbers come as float64 and are read as milliseconds
		s.DefaultPeriod = time.Duration(v) * time.Millisecond
	case int:
		s.DefaultPeriod = time.Duration(v) * time.Millisecond
	default:
		return fmt.Errorf("invalid value type for default_period: expected string or number, got %T", value)
	}
	return nil
}

// Validate validates the current configuration.
func (s *RefreshSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.DefaultPeriod < 0 {
		return fmt.Errorf("default_period cannot be negative")
	}
	if s.DefaultPeriod > 0 && s.DefaultPeriod < MinRefreshPeriod {
		return fmt.Errorf("default_period must be 0 or at least %v, got %v", MinRefreshPeriod, s.DefaultPeriod)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *RefreshSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DefaultPeriod = defaultRefreshPeriod
}

// GetDefaultPeriod returns the default refresh period.
func (s *RefreshSection) GetDefaultPeriod() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DefaultPeriod
}

// SetDefaultPeriod sets the default refresh period.
func (s *RefreshSection) SetDefaultPeriod(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DefaultPeriod = d
}
