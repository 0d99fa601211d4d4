// Package mocksignage serves a small simulated signage fleet over the signage
// REST routes, for demos and local runs of the CLI.
//
// Each online display rotates through a playlist of campaigns and menus,
// moving to the next item every 20-60 seconds. One display is offline and one
// is pending, so the dashboard shows every connectivity state.
package mocksignage

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/fleetpulse/internal/signage"
)

// Organization is the only organization the mock knows about.
const Organization = "demo-org"

type media struct {
	id          string
	campaign    string
	filename    string
	contentType string
	previewURL  string
}

// playlist is shared by every display; each starts at a different offset.
var playlist = []struct {
	media *media
	menu  string
}{
	{media: &media{id: "m-spring", campaign: "c-spring-sale", filename: "spring-sale.jpg", contentType: "image/jpeg",
		previewURL: "https://picsum.photos/seed/spring/640/360"}},
	{menu: "breakfast"},
	{media: &media{id: "m-ocean", campaign: "c-brand", filename: "ocean.jpg", contentType: "image/jpeg",
		previewURL: "https://picsum.photos/seed/ocean/640/360"}},
	{media: &media{id: "m-city", campaign: "c-brand", filename: "city.jpg", contentType: "image/jpeg",
		previewURL: "https://picsum.photos/seed/city/640/360"}},
	{menu: "lunch"},
}

type displayState struct {
	display      signage.Display
	position     int
	startedAt    time.Time
	nextChangeAt time.Time
}

// Server is the simulated signage API.
type Server struct {
	mu       sync.Mutex
	displays []*displayState
	media    map[string]*media
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a mock fleet of six displays.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		media:  make(map[string]*media),
		now:    time.Now,
		logger: logger,
	}
	for _, item := range playlist {
		if item.media != nil {
			s.media[item.media.id] = item.media
		}
	}

	fleet := []signage.Display{
		{ID: "d-lobby", Name: "Lobby", State: signage.StateOnline},
		{ID: "d-entrance", Name: "Entrance", State: signage.StateOnline},
		{ID: "d-counter", Name: "Counter", State: signage.StateOnline},
		{ID: "d-window", Name: "Shop Window", State: signage.StateOnline},
		{ID: "d-storage", Name: "Storage", State: signage.StateOffline},
		{ID: "d-new", Name: "New Install", State: signage.StatePending},
	}
	now := s.now()
	for i, d := range fleet {
		d.LastSeen = now
		s.displays = append(s.displays, &displayState{
			display:      d,
			position:     i % len(playlist),
			startedAt:    now,
			nextChangeAt: now.Add(nextChange()),
		})
	}
	return s
}

// Handler returns the HTTP routes of the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /organizations/{org}/displays", s.handleRoster)
	mux.HandleFunc("GET /displays/{id}/playback/current", s.handlePlayback)
	mux.HandleFunc("GET /media/{id}/preview-url", s.handlePreview)
	return mux
}

// ListenAndServe serves the mock API on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("org") != Organization {
		http.NotFound(w, r)
		return
	}

	simulateLatency()

	s.mu.Lock()
	now := s.now()
	roster := make([]signage.Display, 0, len(s.displays))
	for _, d := range s.displays {
		if d.display.Online() {
			d.display.LastSeen = now
		}
		roster = append(roster, d.display)
	}
	s.mu.Unlock()

	writeJSON(w, s.logger, roster)
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	simulateLatency()

	s.mu.Lock()
	d := s.find(id)
	if d == nil || !d.display.Online() {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	s.advance(d)
	item := playlist[d.position]
	snap := signage.PlaybackSnapshot{
		DisplayID: id,
		StartedAt: d.startedAt,
	}
	s.mu.Unlock()

	if item.media != nil {
		snap.Kind = signage.KindMediaCampaign
		snap.CampaignID = item.media.campaign
		snap.MediaID = item.media.id
		snap.Filename = item.media.filename
		snap.ContentType = item.media.contentType
	} else {
		snap.Kind = signage.KindMenu
		snap.MenuID = item.menu
	}
	writeJSON(w, s.logger, snap)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	m, ok := s.media[r.PathValue("id")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	simulateLatency()

	writeJSON(w, s.logger, map[string]string{"url": m.previewURL})
}

// advance moves the display to its next playlist item once its slot has
// elapsed. Caller holds s.mu.
func (s *Server) advance(d *displayState) {
	now := s.now()
	if now.Before(d.nextChangeAt) {
		return
	}
	d.position = (d.position + 1) % len(playlist)
	d.startedAt = now
	d.nextChangeAt = now.Add(nextChange())
	s.logger.Info("playback change", "display_id", d.display.ID, "position", d.position)
}

func (s *Server) find(id string) *displayState {
	for _, d := range s.displays {
		if d.display.ID == id {
			return d
		}
	}
	return nil
}

// nextChange returns a random slot length of 20-60 seconds.
func nextChange() time.Duration {
	return time.Duration(20+rand.Intn(41)) * time.Second
}

// simulateLatency sleeps 20-100ms to mimic a remote API.
func simulateLatency() {
	time.Sleep(time.Duration(20+rand.Intn(81)) * time.Millisecond)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}
