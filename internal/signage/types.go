package signage

import (
	"errors"
	"fmt"
	"time"
)

// ConnectivityState is the connection state reported for a display.
type ConnectivityState string

const (
	StateOnline  ConnectivityState = "online"
	StateOffline ConnectivityState = "offline"
	StatePending ConnectivityState = "pending"
)

// Display is one physical screen registered to an organization.
type Display struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	State    ConnectivityState `json:"status"`
	LastSeen time.Time         `json:"last_seen"`
}

// Online reports whether the display should be polled for playback.
func (d Display) Online() bool {
	return d.State == StateOnline
}

// PlaybackKind discriminates what a display is presenting.
type PlaybackKind string

const (
	KindMediaCampaign PlaybackKind = "media-campaign"
	KindMenu          PlaybackKind = "menu"
)

// PlaybackSnapshot describes what a display is currently presenting.
//
// MediaID, Filename and ContentType are only set for [KindMediaCampaign].
type PlaybackSnapshot struct {
	DisplayID   string       `json:"display_id"`
	Kind        PlaybackKind `json:"kind"`
	CampaignID  string       `json:"campaign_id,omitempty"`
	MenuID      string       `json:"menu_id,omitempty"`
	MediaID     string       `json:"media_id,omitempty"`
	Filename    string       `json:"filename,omitempty"`
	ContentType string       `json:"content_type,omitempty"`
	StartedAt   time.Time    `json:"started_at,omitzero"`
}

// MediaAssetID returns the media asset referenced by the snapshot, if any.
func (p *PlaybackSnapshot) MediaAssetID() (string, bool) {
	if p == nil || p.Kind != KindMediaCampaign || p.MediaID == "" {
		return "", false
	}
	return p.MediaID, true
}

// errMalformed marks a response body that decoded but does not make sense.
var errMalformed = errors.New("malformed response")

// validate rejects snapshots whose kind is unknown or whose media reference is
// missing.
func (p *PlaybackSnapshot) validate() error {
	switch p.Kind {
	case KindMenu:
		return nil
	case KindMediaCampaign:
		if p.MediaID == "" {
			return fmt.Errorf("%w: media-campaign playback without media_id", errMalformed)
		}
		return nil
	case "":
		return fmt.Errorf("%w: playback kind is missing", errMalformed)
	default:
		return fmt.Errorf("%w: unknown playback kind %q", errMalformed, p.Kind)
	}
}
