// Package dashboard provides the embedded web UI assets for FleetPulse.
//
// This package uses Go's embed directive to include the dashboard HTML, CSS,
// and JavaScript at compile time. This enables single-binary deployment
// without external asset files.
//
// The page renders one card per display from the /api/sse stream and offers
// a manual refresh via POST /api/refresh.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Fleet grid with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
