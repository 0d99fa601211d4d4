// Package fleetpulse provides an embeddable live dashboard for a fleet of
// digital-signage displays.
//
// FleetPulse polls a signage REST API for an organization's displays, asks
// each online display what it is currently playing, and resolves short-lived
// preview URLs for the media on screen. Each poll cycle publishes one
// self-consistent snapshot of the fleet, which is served as a web dashboard,
// a JSON API and a Server-Sent Events stream.
//
// # Quick Start
//
//	fp, _ := fleetpulse.New(
//	    fleetpulse.WithAPI("https://signage.example.com/v1"),
//	    fleetpulse.WithOrganization("org-42"),
//	    fleetpulse.WithToken(os.Getenv("SIGNAGE_TOKEN")),
//	)
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	fp.Start(ctx) // blocks until context is cancelled
//
// # Polling
//
// The fleet is polled once on start and then every polling interval (15s by
// default). A poll cycle:
//
//   - reads the display roster; if that fails, the last good snapshot is
//     republished with its Error set
//   - reads current playback for every online display, at most
//     [WithConcurrency] at a time; a display whose read fails is shown with
//     no playback while its siblings are unaffected
//   - resolves preview URLs for the media being played, reusing any URL
//     resolved within the preview TTL (5 minutes by default)
//
// Only one cycle runs at a time. A manual refresh (POST /api/refresh) that
// arrives while a cycle is running is rejected rather than queued.
//
// # Snapshots
//
// Register [WithSnapshotCallback] to receive every published [Snapshot]:
//
//	fleetpulse.WithSnapshotCallback(func(s fleetpulse.Snapshot) {
//	    for _, d := range s.Displays {
//	        if p, ok := s.Playback(d.ID); ok && p.Kind == fleetpulse.KindMediaCampaign {
//	            url, _ := s.PreviewURL(p.MediaID)
//	            fmt.Println(d.Name, p.Filename, url)
//	        }
//	    }
//	})
//
// # Architecture
//
// FleetPulse consists of several internal packages (under internal/):
//
//   - internal/signage: REST client with retries and a circuit breaker
//   - internal/poller: Bounded fan-out, playback and preview fetching, poll cycles
//   - internal/cache: TTL cache backing preview URLs
//   - internal/store: In-memory snapshot storage with pub/sub
//   - internal/server: HTTP server with REST API, Server-Sent Events and metrics
//   - internal/metrics: Prometheus collectors
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package fleetpulse
