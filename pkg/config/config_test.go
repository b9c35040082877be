package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func resetGlobal() {
	globalMu.Lock()
	globalManager = nil
	globalMu.Unlock()
}

func TestInitialize(t *testing.T) {
	t.Run("initializes global manager successfully", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		resetGlobal()

		if err := Initialize(configPath); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}

		if !IsInitialized() {
			t.Error("Global manager should be initialized")
		}

		manager := Global()
		for _, id := range []string{SectionIDLayouts, SectionIDLoader, SectionIDRefresh, SectionIDUI} {
			s, ok := manager.GetSection(id)
			if !ok || s == nil {
				t.Errorf("%s section not registered", id)
			}
		}
	})

	t.Run("loads existing configuration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		resetGlobal()

		if err := Initialize(configPath); err != nil {
			t.Fatalf("First initialize failed: %v", err)
		}

		if err := GetLayouts().Set(ScopeKey("Root"), PanelLayout{{50, 50}}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		GetRefresh().SetDefaultPeriod(2 * time.Second)
		if err := Global().SaveAll(); err != nil {
			t.Fatalf("SaveAll failed: %v", err)
		}

		resetGlobal()
		if err := Initialize(configPath); err != nil {
			t.Fatalf("Re-initialize failed: %v", err)
		}

		if got := GetLayouts().Get(ScopeKey("Root")).String(); got != "[[50,50]]" {
			t.Errorf("layout not loaded, got %s", got)
		}
		if got := GetRefresh().GetDefaultPeriod(); got != 2*time.Second {
			t.Errorf("refresh period not loaded, got %v", got)
		}
	})

	t.Run("rejects a corrupt config file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(configPath, []byte("{not json"), 0600); err != nil {
			t.Fatal(err)
		}
		resetGlobal()

		if err := Initialize(configPath); err == nil {
			t.Error("expected error for corrupt config file")
		}
		if IsInitialized() {
			t.Error("manager should not be set after a failed Initialize")
		}
	})
}

func TestGlobal(t *testing.T) {
	t.Run("returns initialized manager", func(t *testing.T) {
		resetGlobal()
		if err := Initialize(filepath.Join(t.TempDir(), "config.json")); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}

		if Global() == nil {
			t.Fatal("Global() returned nil")
		}
	})

	t.Run("panics if not initialized", func(t *testing.T) {
		resetGlobal()

		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for uninitialized config")
			}
		}()

		Global()
	})
}

func TestSectionGetters(t *testing.T) {
	t.Run("return nil when not initialized", func(t *testing.T) {
		resetGlobal()

		if GetLayouts() != nil {
			t.Error("GetLayouts should be nil")
		}
		if GetLoader() != nil {
			t.Error("GetLoader should be nil")
		}
		if GetRefresh() != nil {
			t.Error("GetRefresh should be nil")
		}
		if GetUI() != nil {
			t.Error("GetUI should be nil")
		}
	})

	t.Run("return typed sections when initialized", func(t *testing.T) {
		resetGlobal()
		if err := Initialize(filepath.Join(t.TempDir(), "config.json")); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}

		if GetLayouts().ID() != SectionIDLayouts {
			t.Error("wrong layout section")
		}
		if GetLoader().ID() != SectionIDLoader {
			t.Error("wrong loader section")
		}
		if GetRefresh().ID() != SectionIDRefresh {
			t.Error("wrong refresh section")
		}
		if GetUI().ID() != SectionIDUI {
			t.Error("wrong ui section")
		}
	})
}

func TestGlobalConfig_ThreadSafety(t *testing.T) {
	resetGlobal()
	if err := Initialize(filepath.Join(t.TempDir(), "config.json")); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			IsInitialized()
			GetLayouts().Get(ScopeKey("Root"))
			GetLoader().GetSkipClasses()
			GetRefresh().GetDefaultPeriod()
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
