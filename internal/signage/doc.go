// Package signage provides the domain types and REST client for the signage API.
//
// This package is internal to fleetpulse. It models displays and their current
// playback, and implements the three remote reads the aggregator consumes:
//
//   - [Client.GetDisplayRoster]: all displays of an organization
//   - [Client.GetCurrentPlayback]: what one display is presenting right now
//   - [Client.GetMediaPreviewURL]: a short-lived signed preview URL for a media asset
//
// A display that has not played anything yet answers 404, surfaced as
// [ErrNotFound]. Every other non-2xx status is a [*StatusError].
package signage
