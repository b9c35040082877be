package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// NewDefaultManager creates a manager over store with every section the
// application uses registered and loaded.
func NewDefaultManager(store Store) (*Manager, error) {
	manager := NewManager(store)

	sections := []Section{
		NewLayoutSection(),
		NewLoaderSection(),
		NewRefreshSection(),
		NewUISection(),
	}
	for _, s := range sections {
		if err := manager.RegisterSection(s); err != nil {
			return nil, err
		}
	}

	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	return manager, nil
}

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager, err := NewDefaultManager(store)
	if err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

func section[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}
	s, ok := Global().GetSection(id)
	if !ok {
		return zero
	}
	typed, ok := s.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetLayouts returns the panel layout section from global config.
// Returns nil if config is not initialized.
func GetLayouts() *LayoutSection {
	return section[*LayoutSection](SectionIDLayouts)
}

// GetLoader returns the loader section from global config.
// Returns nil if config is not initialized.
func GetLoader() *LoaderSection {
	return section[*LoaderSection](SectionIDLoader)
}

// GetRefresh returns the refresh section from global config.
// Returns nil if config is not initialized.
func GetRefresh() *RefreshSection {
	return section[*RefreshSection](SectionIDRefresh)
}

// GetUI returns the UI section from global config.
// Returns nil if config is not initialized.
func GetUI() *UISection {
	return section[*UISection](SectionIDUI)
}
