// Standalone mock signage API for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/fleetpulse serve -c example/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jpalmerr/fleetpulse/example/mocksignage"
)

func main() {
	fmt.Println("Mock signage API starting on :9999")
	fmt.Printf("Organization: %s\n", mocksignage.Organization)
	fmt.Println("Online displays rotate through campaigns and menus every 20-60s")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	if err := mocksignage.New(slog.Default()).ListenAndServe(":9999"); err != nil {
		slog.Error("mock server error", "error", err)
		os.Exit(1)
	}
}
