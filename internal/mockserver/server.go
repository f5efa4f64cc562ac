// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr matches the backend address the client expects.
	DefaultAddr = "127.0.0.1:8000"

	// DefaultMaxUploadMB bounds voice uploads.
	DefaultMaxUploadMB = 25

	// maxJSONBody bounds JSON request bodies. /text carries the full history.
	maxJSONBody = 1 << 20

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 5 * time.Second

	// VoiceAnswer and NoTranscript are the canned /voice response.
	VoiceAnswer  = "Audio received"
	NoTranscript = "[No transcript]"

	// NoMessageAnswer is returned with 400 when /text has no messages.
	NoMessageAnswer = "No message received"
)

// ============================================================================
// WIRE TYPES
// ============================================================================

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type textRequest struct {
	Messages []chatMessage `json:"messages"`
	UserID   string        `json:"user_id"`
}

type checkUserRequest struct {
	UserID string `json:"user_id"`
}

// looseString accepts a JSON string or number, since clients send age as
// either.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("age must be a string or number")
	}
	*s = looseString(num.String())
	return nil
}

type createProfileRequest struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
	Age    looseString `json:"age"`
}

type profileJSON struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Age    string `json:"age"`
}

// ============================================================================
// SERVER
// ============================================================================

// Config configures the mock server.
type Config struct {
	Addr string

	// UploadDir receives voice uploads. Empty discards them.
	UploadDir string

	MaxUploadMB int
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:        DefaultAddr,
		MaxUploadMB: DefaultMaxUploadMB,
	}
}

// Server is a development stand-in for the kare backend.
type Server struct {
	cfg     Config
	store   ProfileStore
	logger  *zap.Logger
	metrics *Metrics
	router  chi.Router
}

// New creates a server backed by store. A nil logger disables logging.
func New(cfg Config, store ProfileStore, logger *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = DefaultMaxUploadMB
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		metrics: NewMetrics(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(MetricsMiddleware(s.metrics))
	r.Use(SecurityHeaders)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(chimw.Recoverer)

	// The real backend allows every origin for the web front-end.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Post("/check-user", s.handleCheckUser)
	r.Post("/create-profile", s.handleCreateProfile)
	r.Post("/text", s.handleText)
	r.Post("/voice", s.handleVoice)

	s.router = r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndRun listens on the configured address and serves until ctx is
// done.
func (s *Server) ListenAndRun(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Run(ctx, ln)
}

// Run serves on ln until ctx is done, then shuts down gracefully. It
// returns nil after a clean shutdown.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("mock server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("mock server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCheckUser(w http.ResponseWriter, r *http.Request) {
	var req checkUserRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	p, err := s.store.GetProfile(r.Context(), userID)
	if err != nil {
		s.logger.Error("lookup profile", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to look up user")
		return
	}
	if p == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"exists": false, "profile": nil})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"exists":  true,
		"profile": profileJSON{UserID: p.UserID, Name: p.Name, Age: p.Age},
	})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	p := Profile{
		UserID: strings.TrimSpace(req.UserID),
		Name:   strings.TrimSpace(req.Name),
		Age:    strings.TrimSpace(string(req.Age)),
	}
	if p.UserID == "" || p.Name == "" || p.Age == "" {
		s.writeError(w, http.StatusBadRequest, "User ID, name, and age are required")
		return
	}

	err := s.store.CreateProfile(r.Context(), p)
	if errors.Is(err, ErrProfileExists) {
		s.writeError(w, http.StatusConflict, "User already exists")
		return
	}
	if err != nil {
		s.logger.Error("create profile", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}
	s.metrics.ProfilesCreated.Inc()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Profile created for " + p.Name,
		"profile": profileJSON{UserID: p.UserID, Name: p.Name, Age: p.Age},
	})
}

// handleText echoes the most recent message.
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"answer": NoMessageAnswer})
		return
	}
	s.metrics.TurnsTotal.WithLabelValues("text").Inc()

	last := req.Messages[len(req.Messages)-1]
	s.writeJSON(w, http.StatusOK, map[string]string{"answer": last.Content})
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	// One extra MiB leaves room for the multipart envelope.
	if r.ContentLength > limit+(1<<20) {
		s.writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "Expected multipart form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > limit {
		s.writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
		return
	}

	n, err := s.storeUpload(file, header.Filename)
	if err != nil {
		s.logger.Error("store voice upload", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	s.metrics.VoiceBytes.Observe(float64(n))
	s.metrics.TurnsTotal.WithLabelValues("voice").Inc()
	s.logger.Debug("voice received",
		zap.String("user_id", r.FormValue("user_id")),
		zap.Int64("bytes", n))

	s.writeJSON(w, http.StatusOK, map[string]string{
		"answer":     VoiceAnswer,
		"transcript": NoTranscript,
	})
}

// storeUpload copies the upload into UploadDir, or drains it when no
// directory is configured.
func (s *Server) storeUpload(src io.Reader, filename string) (int64, error) {
	if s.cfg.UploadDir == "" {
		return io.Copy(io.Discard, src)
	}
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return 0, err
	}

	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		name = "voice.webm"
	}
	name = fmt.Sprintf("%d_%s", time.Now().UnixNano(), name)

	dst, err := os.OpenFile(filepath.Join(s.cfg.UploadDir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// ============================================================================
// HELPERS
// ============================================================================

// decodeJSON decodes the request body into v, writing a 400 on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}

// writeError writes {"error": message}, the backend's error shape.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
