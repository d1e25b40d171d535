package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uaesivakumar/premiumradar-saas-sub004/config"
	"github.com/uaesivakumar/premiumradar-saas-sub004/debug"
	"github.com/uaesivakumar/premiumradar-saas-sub004/journey"
)

var (
	configFile = flag.String("config", "", "Path to service configuration YAML file")
	addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
	journeyDir = flag.String("journeys", "", "Directory of journey YAML files (overrides config)")
)

func main() {
	flag.Parse()

	// Load service config
	var cfg *config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(*configFile)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	} else {
		cfg = config.Default()
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *journeyDir != "" {
		cfg.JourneyDir = *journeyDir
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	// Load journey definitions
	registry := journey.NewRegistry()
	if cfg.JourneyDir != "" {
		n, err := registry.LoadDir(cfg.JourneyDir)
		if err != nil {
			log.Fatalf("Failed to load journeys: %v", err)
		}
		logger.Info("Loaded journeys", "count", n, "dir", cfg.JourneyDir)
	} else {
		logger.Info("No journey directory configured; sessions must be started programmatically")
	}

	debugger := debug.New(sessionConfig(cfg), loggingCallbacks(logger), logger)

	mux := http.NewServeMux()
	debug.NewHandler(debugger, registry, logger).RegisterRoutes(mux)
	mux.HandleFunc("GET /api/v1/journeys", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, registry.List())
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("Starting server", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	fmt.Printf("Journey debugger listening on %s\n", cfg.ListenAddr)

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	debugger.StopSession()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	fmt.Println("Shutdown complete")
}

func sessionConfig(cfg *config.Config) debug.SessionConfig {
	return debug.SessionConfig{
		PauseOnStart:       cfg.Session.PauseOnStart,
		PauseOnError:       cfg.Session.PauseOnError,
		PauseOnCaughtError: cfg.Session.PauseOnCaughtError,
		MaxCallStackDepth:  cfg.Session.MaxCallStackDepth,
		Verbose:            cfg.Session.Verbose,
		StepDelay:          time.Duration(cfg.Session.StepDelayMS) * time.Millisecond,
	}
}

// loggingCallbacks mirrors every session transition into the service log so
// a headless deployment still has a debugging record.
func loggingCallbacks(logger *slog.Logger) debug.DebugCallbacks {
	return debug.DebugCallbacks{
		OnSessionStart: func(s *debug.DebugSession) {
			logger.Info("Debug session started", "session_id", s.ID, "journey_id", s.JourneyID)
		},
		OnSessionPause: func(s *debug.DebugSession, reason string) {
			logger.Info("Debug session paused", "session_id", s.ID, "reason", reason, "step_index", s.CurrentStepIndex)
		},
		OnSessionResume: func(s *debug.DebugSession) {
			logger.Info("Debug session resumed", "session_id", s.ID, "step_index", s.CurrentStepIndex)
		},
		OnSessionComplete: func(s *debug.DebugSession) {
			logger.Info("Debug session completed", "session_id", s.ID)
		},
		OnSessionError: func(s *debug.DebugSession, err error) {
			logger.Error("Debug session failed", "session_id", s.ID, "error", err)
		},
		OnBreakpointHit: func(hit *debug.BreakpointHit) {
			logger.Info("Breakpoint hit", "breakpoint_id", hit.BreakpointID, "step_id", hit.StepID, "hit_count", hit.HitCount)
		},
		OnLogpoint: func(bp *debug.Breakpoint, output string) {
			logger.Info("Logpoint", "breakpoint_id", bp.ID, "output", output)
		},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
