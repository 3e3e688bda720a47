// Package gateway exposes the voice-gateway HTTP API: synchronous synthesis,
// pseudo-streaming synthesis, and voice cloning from uploaded WAV samples.
//
// All heavy lifting happens in the remote cloud voice API; the handlers here
// validate input shape, gate clone uploads through the WAV parser, and
// re-serialize responses.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-gateway/internal/config"
	"github.com/book-expert/voice-gateway/internal/core"
	"github.com/book-expert/voice-gateway/internal/text"
)

// HTTP server timeouts.
const (
	readTimeout = 30 * time.Second
	// The pseudo-streaming endpoint holds the response open while emitting
	// delayed chunks, so the write timeout must cover the full sequence.
	writeTimeout = 120 * time.Second
	idleTimeout  = 60 * time.Second
)

// Deps bundles the collaborators injected into the server. Archive and
// Events are optional; when nil the corresponding step is skipped.
type Deps struct {
	Synthesizer core.Synthesizer
	Cloner      core.VoiceCloner
	Registry    core.VoiceRegistry
	Archive     core.ObjectStore
	Events      core.EventPublisher
}

// Server handles the gateway's HTTP API requests.
type Server struct {
	cfg        *config.Config
	log        *logger.Logger
	deps       Deps
	normalizer *text.Normalizer
	server     *http.Server
}

// New creates a gateway server with its routes registered.
func New(cfg *config.Config, log *logger.Logger, deps Deps) *Server {
	gatewayServer := &Server{
		cfg:        cfg,
		log:        log,
		deps:       deps,
		normalizer: text.NewNormalizer(),
		server:     nil,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/healthz", gatewayServer.handleHealthz)
	mux.HandleFunc("GET /v1/voices", gatewayServer.handleListVoices)
	mux.HandleFunc("POST /v1/tts", gatewayServer.withAuth(gatewayServer.handleSynthesize))
	mux.HandleFunc("POST /v1/tts/stream", gatewayServer.withAuth(gatewayServer.handleSynthesizeStream))
	mux.HandleFunc("POST /v1/voices/clone", gatewayServer.withAuth(gatewayServer.handleCloneVoice))

	gatewayServer.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return gatewayServer
}

// Handler returns the server's route handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening for HTTP requests and blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server on %s", s.server.Addr)

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	return nil
}
