package fleetpulse

import (
	"time"

	"github.com/jpalmerr/fleetpulse/internal/signage"
	"github.com/jpalmerr/fleetpulse/internal/store"
)

// Display is one screen registered to the monitored organization.
type Display = signage.Display

// ConnectivityState is a display's connection state. Only [StateOnline]
// displays are polled for playback.
type ConnectivityState = signage.ConnectivityState

const (
	StateOnline  = signage.StateOnline
	StateOffline = signage.StateOffline
	StatePending = signage.StatePending
)

// PlaybackSnapshot describes what a display is currently presenting.
type PlaybackSnapshot = signage.PlaybackSnapshot

// PlaybackKind discriminates media campaigns from menus.
type PlaybackKind = signage.PlaybackKind

const (
	KindMediaCampaign = signage.KindMediaCampaign
	KindMenu          = signage.KindMenu
)

// PreviewEntry is a resolved preview URL for one media asset.
type PreviewEntry = store.PreviewEntry

// Snapshot is one complete view of the fleet, as published by a poll cycle.
//
// A Snapshot is a private copy: callbacks may keep or modify it without
// affecting other subscribers.
type Snapshot struct {
	// Displays is the organization's roster, offline displays included.
	Displays []Display

	// LastUpdated is when the last successful cycle completed.
	LastUpdated time.Time

	// Cycle is the sequence number of the producing cycle.
	Cycle uint64

	// CycleID correlates the snapshot with log lines.
	CycleID string

	// Error is set when the roster could not be read. The snapshot then
	// carries the last good data.
	Error string

	playback map[string]*PlaybackSnapshot
	previews map[string]PreviewEntry
}

// Playback returns what the display is presenting. ok is false when playback
// is absent: nothing played yet, the read failed, or the display is offline.
func (s Snapshot) Playback(displayID string) (p *PlaybackSnapshot, ok bool) {
	p = s.playback[displayID]
	return p, p != nil
}

// PreviewURL returns the preview URL of a media asset, if one was resolved.
func (s Snapshot) PreviewURL(mediaID string) (string, bool) {
	e, ok := s.previews[mediaID]
	return e.URL, ok
}

// Preview returns the full preview entry of a media asset, including its
// freshness.
func (s Snapshot) Preview(mediaID string) (PreviewEntry, bool) {
	e, ok := s.previews[mediaID]
	return e, ok
}

// Healthy reports whether the producing cycle read the roster successfully.
func (s Snapshot) Healthy() bool {
	return s.Error == ""
}

// snapshotFromState converts a store state to the public type.
// Creates defensive copies of mutable fields to prevent data races.
func snapshotFromState(st store.FleetState) Snapshot {
	snap := Snapshot{
		LastUpdated: st.LastUpdated,
		Cycle:       st.Cycle,
		CycleID:     st.CycleID,
		Error:       st.Error,
	}
	if st.Displays != nil {
		snap.Displays = append([]Display(nil), st.Displays...)
	}
	if st.Playback != nil {
		snap.playback = make(map[string]*PlaybackSnapshot, len(st.Playback))
		for id, p := range st.Playback {
			if p == nil {
				snap.playback[id] = nil
				continue
			}
			cp := *p
			snap.playback[id] = &cp
		}
	}
	if st.Previews != nil {
		snap.previews = make(map[string]PreviewEntry, len(st.Previews))
		for id, e := range st.Previews {
			snap.previews[id] = e
		}
	}
	return snap
}
