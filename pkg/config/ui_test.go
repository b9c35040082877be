package config

import (
	"testing"
)

func TestUISection_DefaultValues(t *testing.T) {
	ui := NewUISection()

	if ui.GetTreeWidth() != 30 {
		t.Errorf("Expected default tree width of 30, got %d", ui.GetTreeWidth())
	}
	highlight, theme := ui.GetJSONDisplay()
	if !highlight {
		t.Error("Expected JSON highlighting to be enabled by default")
	}
	if theme != "dracula" {
		t.Errorf("Expected default theme dracula, got %s", theme)
	}
}

func TestUISection_SetData(t *testing.T) {
	ui := NewUISection()

	err := ui.SetData(map[string]interface{}{
		"tree_width":     float64(40),
		"highlight_json": false,
		"json_theme":     "monokai",
		"unknown_key":    "ignored",
	})
	if err != nil {
		t.Fatalf("SetData failed: %v", err)
	}

	if ui.GetTreeWidth() != 40 {
		t.Errorf("Expected tree width 40, got %d", ui.GetTreeWidth())
	}
	highlight, theme := ui.GetJSONDisplay()
	if highlight {
		t.Error("Expected highlighting to be disabled")
	}
	if theme != "monokai" {
		t.Errorf("Expected theme monokai, got %s", theme)
	}
}

func TestUISection_SetDataInvalidTypes(t *testing.T) {
	tests := []struct {
		name string
		data map[string]interface{}
	}{
		{"tree width string", map[string]interface{}{"tree_width": "wide"}},
		{"highlight string", map[string]interface{}{"highlight_json": "yes"}},
		{"theme number", map[string]interface{}{"json_theme": 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewUISection().SetData(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestUISection_Validate(t *testing.T) {
	tests := []struct {
		width   int
		wantErr bool
	}{
		{30, false},
		{10, false},
		{90, false},
		{5, true},
		{95, true},
	}

	for _, tt := range tests {
		ui := NewUISection()
		ui.TreeWidth = tt.width
		err := ui.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("width %d: Validate() error = %v, wantErr %v", tt.width, err, tt.wantErr)
		}
	}
}

func TestUISection_Reset(t *testing.T) {
	ui := NewUISection()
	ui.TreeWidth = 70
	ui.HighlightJSON = false
	ui.JSONTheme = "github"

	ui.Reset()

	if ui.GetTreeWidth() != 30 {
		t.Errorf("tree width not reset, got %d", ui.GetTreeWidth())
	}
	highlight, theme := ui.GetJSONDisplay()
	if !highlight || theme != "dracula" {
		t.Errorf("json display not reset, got %v %s", highlight, theme)
	}
}

func TestUISection_DataRoundTrip(t *testing.T) {
	ui := NewUISection()
	ui.TreeWidth = 45

	other := NewUISection()
	if err := other.SetData(ui.Data()); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}
	if other.GetTreeWidth() != 45 {
		t.Errorf("Expected 45, got %d", other.GetTreeWidth())
	}
}
