package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/fleetpulse"
	"github.com/jpalmerr/fleetpulse/example/mocksignage"
)

func main() {
	// start the simulated signage API (see mocksignage)
	mock := mocksignage.New(slog.Default())
	go func() {
		if err := mock.ListenAndServe(":9999"); err != nil {
			slog.Error("mock signage API error", "error", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	fp, err := fleetpulse.New(
		fleetpulse.WithAPI("http://localhost:9999"),
		fleetpulse.WithOrganization(mocksignage.Organization),
		fleetpulse.WithPollingInterval(5*time.Second),
		fleetpulse.WithConcurrency(3),
		fleetpulse.WithPort(8080),
		fleetpulse.WithTitle("FleetPulse Demo"),
		fleetpulse.WithSnapshotCallback(func(s fleetpulse.Snapshot) {
			if !s.Healthy() {
				slog.Warn("fleet degraded", "cycle", s.Cycle, "error", s.Error)
				return
			}
			playing := 0
			for _, d := range s.Displays {
				if _, ok := s.Playback(d.ID); ok {
					playing++
				}
			}
			slog.Info("fleet updated", "cycle", s.Cycle, "displays", len(s.Displays), "playing", playing)
		}),
	)
	if err != nil {
		slog.Error("failed to create fleetpulse", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   FleetPulse Demo                                     ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Displays:                                           ║")
	fmt.Println("  ║   • 4 online, rotating campaigns and menus            ║")
	fmt.Println("  ║   • 1 offline, 1 pending                              ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fp.Start(ctx); err != nil {
		slog.Error("fleetpulse error", "error", err)
		os.Exit(1)
	}
}
