package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/fleetpulse/internal/signage"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errBackend = errors.New("backend unavailable")

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeAPI is an in-memory signage API with call accounting.
//
// Playback and preview behavior is configured per id; unknown ids answer
// ErrNotFound for playback and errBackend for previews.
type fakeAPI struct {
	mu         sync.Mutex
	displays   []signage.Display
	rosterErr  error
	playback   map[string]signage.PlaybackSnapshot
	failing    map[string]error
	hanging    map[string]bool
	previews   map[string]string
	previewErr map[string]error

	// rosterHook, when set, runs at the start of every roster call.
	rosterHook func(ctx context.Context, call int)

	rosterCalls   int
	playbackCalls map[string]int
	previewCalls  map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		playback:      make(map[string]signage.PlaybackSnapshot),
		failing:       make(map[string]error),
		hanging:       make(map[string]bool),
		previews:      make(map[string]string),
		previewErr:    make(map[string]error),
		playbackCalls: make(map[string]int),
		previewCalls:  make(map[string]int),
	}
}

func (f *fakeAPI) addDisplay(id string, state signage.ConnectivityState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.displays = append(f.displays, signage.Display{ID: id, Name: "Display " + id, State: state})
}

func (f *fakeAPI) setMedia(displayID, mediaID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playback[displayID] = signage.PlaybackSnapshot{
		DisplayID:   displayID,
		Kind:        signage.KindMediaCampaign,
		CampaignID:  "campaign-" + mediaID,
		MediaID:     mediaID,
		Filename:    mediaID + ".mp4",
		ContentType: "video/mp4",
	}
}

func (f *fakeAPI) setMenu(displayID, menuID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playback[displayID] = signage.PlaybackSnapshot{
		DisplayID: displayID,
		Kind:      signage.KindMenu,
		MenuID:    menuID,
	}
}

func (f *fakeAPI) GetDisplayRoster(ctx context.Context, orgID string) ([]signage.Display, error) {
	f.mu.Lock()
	f.rosterCalls++
	call := f.rosterCalls
	hook := f.rosterHook
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, call)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rosterErr != nil {
		return nil, f.rosterErr
	}
	out := make([]signage.Display, len(f.displays))
	copy(out, f.displays)
	return out, nil
}

func (f *fakeAPI) GetCurrentPlayback(ctx context.Context, displayID string) (signage.PlaybackSnapshot, error) {
	f.mu.Lock()
	f.playbackCalls[displayID]++
	hang := f.hanging[displayID]
	err := f.failing[displayID]
	snap, ok := f.playback[displayID]
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return signage.PlaybackSnapshot{}, ctx.Err()
	}
	if err != nil {
		return signage.PlaybackSnapshot{}, err
	}
	if !ok {
		return signage.PlaybackSnapshot{}, signage.ErrNotFound
	}
	return snap, nil
}

func (f *fakeAPI) GetMediaPreviewURL(ctx context.Context, mediaID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previewCalls[mediaID]++
	if err := f.previewErr[mediaID]; err != nil {
		return "", err
	}
	url, ok := f.previews[mediaID]
	if !ok {
		return "", errBackend
	}
	return url, nil
}

func (f *fakeAPI) totalPlaybackCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.playbackCalls {
		n += c
	}
	return n
}

func (f *fakeAPI) playbackCallsFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playbackCalls[id]
}

func (f *fakeAPI) previewCallsFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.previewCalls[id]
}

func (f *fakeAPI) totalPreviewCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.previewCalls {
		n += c
	}
	return n
}
