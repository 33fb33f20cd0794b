/*
main.go - Daemon entry point

PURPOSE:
  Initializes and starts the focusgate session daemon. Handles configuration,
  dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load (or bootstrap) the TOML configuration
  3. Open the journal database
  4. Build the session manager at the current instant
  5. Start the background refresher and the HTTP server

COMMAND-LINE FLAGS:
  -config  Configuration file path (default: per-user config dir)
  -journal Journal database path (default: from config)
           Use ":memory:" for an ephemeral journal
  -bind    Listen address override (default: from config)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (15s timeout)
  3. Stop the refresher and close the journal

SEE ALSO:
  - config: File format and environment overrides
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/focusgate/session-engine/api"
	"github.com/focusgate/session-engine/config"
	"github.com/focusgate/session-engine/engine"
	"github.com/focusgate/session-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	journalPath := flag.String("journal", "", "journal database path override")
	bind := flag.String("bind", "", "listen address override")
	flag.Parse()

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			log.Fatalf("Failed to locate configuration: %v", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *journalPath != "" {
		cfg.JournalPath = *journalPath
	}
	if *bind != "" {
		cfg.BindOn = *bind
	}

	journal, err := sqlite.New(cfg.JournalPath)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer journal.Close()

	manager := engine.NewManager(cfg.ManagerConfig(), engine.Now())

	handler := api.NewHandler(manager, journal)
	router := api.NewRouter(handler)

	refresher := api.NewRefresher(manager, journal)
	if err := refresher.Start(); err != nil {
		log.Fatalf("Failed to start refresher: %v", err)
	}
	defer refresher.Stop()

	server := &http.Server{
		Addr:         cfg.BindOn,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", cfg.BindOn)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}
