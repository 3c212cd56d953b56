/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the weekly performance recalculation service.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (file + environment)
  3. Initialize SQLite store
  4. Wire the engine (lifecycle, recalculator, orchestrator)
  5. Configure HTTP router, optionally start the in-process scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a JSON config file (optional; env vars still apply)
  -port    HTTP server port override
  -db      SQLite database path override
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/performance.db"

  # Run with a config file and the in-process scheduler
  ./server -config=./config.json

SEE ALSO:
  - api/server.go: Router configuration
  - engine/rollover.go: the job wired here
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zykor/performance-engine/api"
	"github.com/zykor/performance-engine/config"
	"github.com/zykor/performance-engine/engine"
	"github.com/zykor/performance-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Path to JSON config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire the engine. The store serves every role here; a split
	// deployment can hand in separate implementations per interface.
	lifecycle := engine.NewLifecycle(store)
	recalc := engine.NewRecalculator(store, store, cfg.Classifier(), store)
	orchestrator := engine.NewOrchestrator(store, lifecycle, recalc, store)

	// Initialize handler and router
	handler := api.NewHandler(store, orchestrator)
	router := api.NewRouter(handler)

	var scheduler *api.Scheduler
	if cfg.SchedulerEnabled {
		scheduler = api.NewScheduler(orchestrator, time.Duration(cfg.SchedulerIntervalHours)*time.Hour)
		scheduler.Start()
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Port)
		log.Printf("📊 Trigger: POST http://localhost:%d/api/jobs/weekly-recalculation", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
