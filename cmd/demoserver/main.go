// Command demoserver starts the Kage demo server with dark pattern fixture pages.
// Usage: go run ./cmd/demoserver [port]
// Default port: 9999
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/raysh454/kage/internal/demoserver"
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

	fmt.Println("===========================================")
	fmt.Println("   Kage Demo Server - Dark Pattern Fixtures")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Pages carry deliberately manipulative designs:")
	fmt.Println("  - Hidden fees and preselected add-ons (/checkout)")
	fmt.Println("  - Confirmshaming newsletter popup (/newsletter)")
	fmt.Println("  - Fake scarcity and disguised ads (/sale)")
	fmt.Println("  - Obstructed subscription cancelling (/account)")
	fmt.Println()
	fmt.Println("Switch each page to its cleaned variant from the")
	fmt.Println("control panel to exercise scan diffing.")
	fmt.Println()

	server := demoserver.NewDemoServer(cfg)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
