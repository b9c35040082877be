package headless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactWriter handles writing dump artifacts
type ArtifactWriter struct {
	outputDir string
	config    ArtifactConfig
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(config ArtifactConfig) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: config.OutputDir,
		config:    config,
	}
}

// WriteAll writes all configured artifact formats
func (w *ArtifactWriter) WriteAll(summary *DumpSummary) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if w.config.JSON {
		if err := w.WriteDumpJSON(summary); err != nil {
			return err
		}
	}

	if w.config.Markdown {
		if err := w.WriteSummaryMarkdown(summary); err != nil {
			return err
		}
	}

	return nil
}

// WriteDumpJSON writes the full dump summary as JSON
func (w *ArtifactWriter) WriteDumpJSON(summary *DumpSummary) error {
	path := filepath.Join(w.outputDir, "dump.json")

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dump summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write dump JSON: %w", writeErr)
	}

	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(summary *DumpSummary) error {
	path := filepath.Join(w.outputDir, "summary.md")

	var md strings.Builder

	md.WriteString("# Object Dump Summary\n\n")
	md.WriteString(fmt.Sprintf("**Path:** %s\n\n", summary.Path))
	md.WriteString(fmt.Sprintf("**Renderer:** %s\n\n", summary.Renderer))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration))

	if len(summary.Errors) > 0 {
		md.WriteString("## Errors\n\n")
		for _, e := range summary.Errors {
			md.WriteString(fmt.Sprintf("- %s\n", e))
		}
		md.WriteString("\n")
	}

	if len(summary.Tree) > 0 {
		md.WriteString("## Tree\n\n```\n")
		for _, line := range summary.Tree {
			md.WriteString(line)
			md.WriteString("\n")
		}
		md.WriteString("```\n\n")
	}

	for _, pane := range summary.Panes {
		md.WriteString(fmt.Sprintf("## Pane %s\n\n```\n%s\n```\n\n", pane.Label, strings.TrimRight(pane.Content, "\n")))
	}

	if len(summary.Resources) > 0 {
		md.WriteString("## Attached Resources\n\n")
		for _, r := range summary.Resources {
			md.WriteString(fmt.Sprintf("- `%s`\n", r))
		}
		md.WriteString("\n")
	}

	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

// DumpSummary contains a complete summary of a dump
type DumpSummary struct {
	Path      string        `json:"path"`
	Renderer  string        `json:"renderer"`
	Status    string        `json:"status"`
	Errors    []string      `json:"errors,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Content   string        `json:"content"`
	Tree      []string      `json:"tree,omitempty"`
	Panes     []PaneDump    `json:"panes,omitempty"`
	Resources []string      `json:"resources,omitempty"`
	Probes    ProbeMetrics  `json:"probes"`
}

// PaneDump is the content of one pane at the end of the dump.
type PaneDump struct {
	Label   string `json:"label"`
	Object  string `json:"object,omitempty"`
	Content string `json:"content"`
}

// ProbeMetrics counts server round trips made for plugin resources.
type ProbeMetrics struct {
	Probes int64 `json:"probes"`
	Loads  int64 `json:"loads"`
}
