// Package api exposes the biometric matching core over HTTP. The routes
// mirror the capture frontend's expectations: face enrollment and
// verification, voice enrollment and verification, and the vote endpoints
// that every authentication modality funnels into.
//
// The package is a thin adapter: request parsing and response shaping only.
// All matching and gating rules live in the face, voice, and vote packages.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verivote/verivote/internal/face"
	"github.com/verivote/verivote/internal/health"
	"github.com/verivote/verivote/internal/observe"
	"github.com/verivote/verivote/internal/vote"
	"github.com/verivote/verivote/internal/voice"
)

// Config holds the HTTP server settings.
type Config struct {
	// ListenAddr is the TCP address to listen on.
	ListenAddr string

	// CORSAllowedOrigin is served in Access-Control-Allow-Origin. The
	// capture frontend runs on a different origin.
	CORSAllowedOrigin string
}

// Server wires the engines and the vote service into an HTTP surface.
type Server struct {
	faces      *face.Engine
	voices     *voice.Engine
	votes      *vote.Service
	httpServer *http.Server
}

// New creates a [Server] with the full middleware stack and route table.
func New(cfg Config, faces *face.Engine, voices *voice.Engine, votes *vote.Service, hc *health.Handler, metrics *observe.Metrics) *Server {
	s := &Server{
		faces:  faces,
		voices: voices,
		votes:  votes,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware(cfg.CORSAllowedOrigin))
	r.Use(observe.Middleware(metrics))

	r.Get("/", s.handleRoot)
	r.Post("/enroll-face", s.handleEnrollFace)
	r.Post("/verify-face", s.handleVerifyFace)
	r.Post("/reset-faces", s.handleResetFaces)
	r.Post("/voice/enroll", s.handleEnrollVoice)
	r.Post("/voice/verify", s.handleVerifyVoice)
	r.Post("/vote", s.handleVote)
	r.Post("/vote/face", s.handleVoteModality("face"))
	r.Post("/vote/voice", s.handleVoteModality("voice"))

	r.Get("/healthz", hc.Healthz)
	r.Get("/readyz", hc.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until the listener fails or [Server.Shutdown] is called.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the configured route table; used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// corsMiddleware answers preflight requests and stamps the allowed origin on
// every response.
func corsMiddleware(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
