package store

import (
	"time"

	"github.com/jpalmerr/fleetpulse/internal/signage"
)

// PreviewEntry is a resolved preview URL for one media asset.
type PreviewEntry struct {
	URL        string    `json:"url"`
	ResolvedAt time.Time `json:"resolved_at"`

	// Fresh is false once the entry is older than the preview TTL. Stale
	// entries stay visible until a refresh replaces them.
	Fresh bool `json:"fresh"`
}

// FleetState is the aggregate published at the end of a poll cycle.
type FleetState struct {
	// Displays is the roster as returned by the API, offline displays included.
	Displays []signage.Display `json:"displays"`

	// Playback maps display id to its current playback. A nil value means
	// absent: nothing played yet, the read failed, or the display is offline.
	Playback map[string]*signage.PlaybackSnapshot `json:"playback"`

	// Previews maps media asset id to its preview URL.
	Previews map[string]PreviewEntry `json:"previews"`

	// LastUpdated is when the last successful cycle completed.
	LastUpdated time.Time `json:"last_updated"`

	// Cycle is the sequence number of the cycle that produced this state.
	Cycle uint64 `json:"cycle"`

	// CycleID correlates this state with the poller's log lines.
	CycleID string `json:"cycle_id"`

	// Error is set when the roster could not be fetched. The remaining fields
	// then carry the last good state.
	Error string `json:"error,omitempty"`
}

// PlaybackFor returns the playback of a display and whether one is known.
func (s FleetState) PlaybackFor(displayID string) (*signage.PlaybackSnapshot, bool) {
	p := s.Playback[displayID]
	return p, p != nil
}

// PreviewURL returns the preview URL for a media asset, if resolved.
func (s FleetState) PreviewURL(mediaID string) (string, bool) {
	e, ok := s.Previews[mediaID]
	return e.URL, ok
}

// Store defines the interface for publishing and subscribing to fleet states.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Publish replaces the current state and notifies all subscribers.
	Publish(state FleetState)

	// Current returns the most recently published state. Before the first
	// publication it returns the zero FleetState.
	Current() FleetState

	// Subscribe returns a channel that receives every published state.
	// The returned channel has a buffer; slow consumers may miss states.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan FleetState

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan FleetState)
}
