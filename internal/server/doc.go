// Package server provides the HTTP server for the FleetPulse dashboard and API.
//
// This package is internal to FleetPulse and handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded HTML/CSS/JS dashboard at "/"
//   - REST API: JSON fleet state at "/api/fleet", manual refresh at "/api/refresh"
//   - Server-Sent Events: Real-time fleet states at "/api/sse"
//   - Metrics: Prometheus exposition at "/metrics"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the fleetpulse library should not need to interact with this
// package directly. The server is started automatically by [fleetpulse.FleetPulse.Start].
package server
