// Package headless implements the non-interactive executor: it draws one
// object the way the terminal shell would, optionally drives the browser
// through a scripted sequence, and prints what ended up on the page.
//
// It suits CI checks against a running server, cron snapshots and scripts
// that need the rendered text rather than a terminal session.
//
//	┌─────────────────────────────────────────────┐
//	│              Headless Executor              │
//	│  - Resolve and draw the root object         │
//	│  - Apply layout, expand, show (browsers)    │
//	│  - Print content, panes and summary         │
//	│  - Write artifacts                          │
//	└──────────────────┬──────────────────────────┘
//	                   │
//	                   ▼
//	        ┌──────────────────────┐
//	        │   loader.Loader      │
//	        │   display.Page       │
//	        └──────────────────────┘
//
// Example configuration:
//
//	path: Root
//	layout: "[[50,50]]"
//	expand:
//	  - Root/Functions
//	show:
//	  - path: Root/Functions/Timer
//	    target: 0x1
//	artifacts:
//	  enabled: true
//	  output_dir: ./dump
//
// Artifacts:
//
// The artifact writer generates:
// - dump.json: the full dump summary
// - summary.md: a human-readable markdown summary
package headless
