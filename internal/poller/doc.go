// Package poller aggregates the live playback state of a display fleet.
//
// This package is internal to fleetpulse. On every cycle it reads the fleet
// roster, fetches the current playback of each online display with bounded
// concurrency, resolves preview URLs for the media on screen and publishes the
// result as one snapshot.
//
// The main components are:
//
//   - [Map]: Order-preserving worker pool with a concurrency ceiling
//   - [StatusFetcher]: One display's playback, normalizing failures to absent
//   - [PreviewResolver]: Cached preview URL resolution with a freshness window
//   - [FleetPoller]: Cycle orchestration, overlap suppression and publication
//
// Per-item failures are swallowed as low as possible (in StatusFetcher and
// PreviewResolver), so the merge step only ever sees normalized values. Only a
// failed roster read surfaces as an error for the whole fleet.
package poller
