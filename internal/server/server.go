// Package server provides HTTP server initialization and lifecycle
// management for the VoxCraft API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/voxforge/voxcraft/internal/config"
	"github.com/voxforge/voxcraft/internal/pipeline"
	"github.com/voxforge/voxcraft/internal/session"
	"github.com/voxforge/voxcraft/web/handlers"
)

// Start builds the handler stack and serves until ctx is cancelled.
// Returns the actual address being listened on (useful for testing with
// port 0).
func Start(ctx context.Context, cfg *config.Config, orchestrator *pipeline.Orchestrator, sessions *session.Manager) (string, error) {
	api := handlers.NewAPI(orchestrator, sessions)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", api.Generate)
	mux.HandleFunc("/api/sessions/", api.Session)
	mux.HandleFunc("/ws", api.Chat)
	mux.HandleFunc("/healthz", api.Health)

	// 10 req/sec sustained, bursts of 20.
	rateLimiter := handlers.NewRateLimiter(10.0, 20)

	var handler http.Handler = mux
	handler = rateLimiter.Middleware(handler)
	handler = handlers.RequireAuth(handler, cfg)
	handler = handlers.SecurityHeaders(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown error: %v", err)
		}
	}()

	go func() {
		log.Printf("server: listening on %s", listener.Addr())
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("server: serve error: %v", err)
		}
	}()

	return listener.Addr().String(), nil
}
