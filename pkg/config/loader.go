package config

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"
)

const (
	// SectionIDLoader is the identifier for the plugin loader section
	SectionIDLoader = "loader"

	// ProbeCachePerSession keeps probe results for the whole session.
	ProbeCachePerSession = "per_session"
	// ProbeCachePerCall probes the server on every load.
	ProbeCachePerCall = "per_call"
)

// LoaderSection configures how plugins are discovered.
type LoaderSection struct {
	// ProbeCache is either "per_session" or "per_call".
	ProbeCache string `json:"probe_cache"`

	// SkipClasses lists glob patterns of class names that always use the
	// generic renderer without probing the server.
	SkipClasses []string `json:"skip_classes"`

	mu sync.RWMutex
}

// NewLoaderSection creates a loader section with default settings.
func NewLoaderSection() *LoaderSection {
	return &LoaderSection{
		ProbeCache:  ProbeCachePerSession,
		SkipClasses: []string{},
	}
}

// ID returns the section identifier.
func (s *LoaderSection) ID() string {
	return SectionIDLoader
}

// Title returns the section title.
func (s *LoaderSection) Title() string {
	return "Plugin Loader"
}

// Description returns the section description.
func (s *LoaderSection) Description() string {
	return "Probe caching policy and classes that always use the generic renderer."
}

// Data returns the current configuration data.
func (s *LoaderSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	skip := make([]any, len(s.SkipClasses))
	for i, p := range s.SkipClasses {
		skip[i] = p
	}
	return map[string]any{
		"probe_cache":  s.ProbeCache,
		"skip_classes": skip,
	}
}

// SetData updates the configuration from the provided data.
func (s *LoaderSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "probe_cache":
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for probe_cache: expected string, got %T", value)
			}
			s.ProbeCache = v

		case "skip_classes":
			switch v := value.(type) {
			case []any:
				patterns := make([]string, 0, len(v))
				for _, p := range v {
					str, ok := p.(string)
					if !ok {
						return fmt.Errorf("invalid skip_classes entry: expected string, got %T", p)
					}
					patterns = append(patterns, str)
				}
				s.SkipClasses = patterns
			case []string:
				s.SkipClasses = append([]string(nil), v...)
			default:
				return fmt.Errorf("invalid value type for skip_classes: expected list, got %T", value)
			}

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *LoaderSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ProbeCache != ProbeCachePerSession && s.ProbeCache != ProbeCachePerCall {
		return fmt.Errorf("probe_cache must be %q or %q, got %q", ProbeCachePerSession, ProbeCachePerCall, s.ProbeCache)
	}
	for _, p := range s.SkipClasses {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("invalid skip_classes pattern %q: %w", p, err)
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *LoaderSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ProbeCache = ProbeCachePerSession
	s.SkipClasses = []string{}
}

// GetProbeCache returns the probe cache policy name.
func (s *LoaderSection) GetProbeCache() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ProbeCache
}

// GetSkipClasses returns a copy of the skip patterns.
func (s *LoaderSection) GetSkipClasses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.SkipClasses...)
}

// AddSkipClass appends a skip pattern after checking that it compiles.
func (s *LoaderSection) AddSkipClass(pattern string) error {
	if _, err := glob.Compile(pattern); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SkipClasses = append(s.SkipClasses, pattern)
	return nil
}
