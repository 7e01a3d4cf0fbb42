// Command demoserver starts an upstream that produces traffic worth capturing.
// Usage: go run ./cmd/demoserver [port]
// Default port: 9999
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/simaofelgueirasJM/flipper/internal/demoserver"
)

func main() {
	cfg := demoserver.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	fmt.Println("Demo upstream routes:")
	fmt.Println("  GET  /api/profile, /api/feed   versioned bodies (diff them)")
	fmt.Println("  ANY  /api/echo                 reflects the request")
	fmt.Println("  GET  /api/cookies              two Set-Cookie headers")
	fmt.Println("  GET  /api/broken               body cannot be read fully")
	fmt.Println("  GET  /api/status/{code}        arbitrary status")
	fmt.Println("  POST /demo/set-version, /demo/bump-all, /demo/reset")
	fmt.Println()
	fmt.Printf("Capture with: flipper -fetch http://localhost:%d/api/profile\n", cfg.Port)
	fmt.Println()

	server := demoserver.NewDemoServer(cfg)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
