// Package server exposes the intent resolver over HTTP. The surface is
// deliberately small: one resolution endpoint, a health check and a local
// audio asset proxy. Authorization is trusted to have happened upstream; a
// bearer-token hook is available for deployments that want a shared
// secret at this boundary.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ambiance/internal/ledger"
	"ambiance/internal/logging"
	"ambiance/internal/resolver"
)

// IntentResolver is the resolution capability the server fronts.
type IntentResolver interface {
	Resolve(ctx context.Context, history ledger.Ledger) (*resolver.Outcome, error)
}

// RequestLogger records resolved requests. Logging failures never fail
// the request.
type RequestLogger interface {
	Insert(ctx context.Context, userID, text string, soundID, themeID *string) (string, error)
}

// Config carries the server's wiring.
type Config struct {
	Addr        string `yaml:"addr" json:"addr"`
	AssetDir    string `yaml:"asset_dir" json:"asset_dir"`
	BearerToken string `yaml:"bearer_token" json:"bearer_token"`
}

// Server handles the ambiance HTTP API.
type Server struct {
	resolver IntentResolver
	log      RequestLogger
	cfg      Config
}

// New builds a server. log may be nil to disable request logging.
func New(res IntentResolver, log RequestLogger, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8787"
	}
	return &Server{resolver: res, log: log, cfg: cfg}
}

// resolveRequest is the wire shape of a resolution call.
type resolveRequest struct {
	UserID   string        `json:"userId,omitempty"`
	Contents ledger.Ledger `json:"contents"`
}

// resolveResponse mirrors the resolution outcome; null ids are part of
// the contract, not an error.
type resolveResponse struct {
	SoundID  *string       `json:"soundId"`
	ThemeID  *string       `json:"themeId"`
	Contents ledger.Ledger `json:"contents"`
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/resolve", s.withAuth(s.handleResolve))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /sounds/{name}", s.handleSound)
	return mux
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	if s.cfg.BearerToken == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if got != s.cfg.BearerToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	out, err := s.resolver.Resolve(r.Context(), req.Contents)
	if err != nil {
		var verr *ledger.ValidationError
		if errors.As(err, &verr) {
			logging.Server("resolve rejected: %v", verr)
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		var uerr *resolver.UpstreamError
		if errors.As(err, &uerr) {
			logging.Server("resolve upstream failure: %v", uerr)
			http.Error(w, "upstream language model unavailable", http.StatusBadGateway)
			return
		}
		logging.Server("resolve failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.record(r.Context(), req, out)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resolveResponse{
		SoundID:  out.SoundID,
		ThemeID:  out.ThemeID,
		Contents: out.Ledger,
	}); err != nil {
		logging.Server("failed to write resolve response: %v", err)
	}
}

// record logs the resolved request, best effort.
func (s *Server) record(ctx context.Context, req resolveRequest, out *resolver.Outcome) {
	if s.log == nil {
		return
	}
	text := ""
	if len(req.Contents) > 0 {
		text = req.Contents.Last().Text()
	}
	userID := req.UserID
	if userID == "" {
		userID = "anonymous"
	}
	if _, err := s.log.Insert(ctx, userID, text, out.SoundID, out.ThemeID); err != nil {
		logging.Server("request log insert failed: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "OK")
}

func (s *Server) handleSound(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.cfg.AssetDir, name)
	f, err := os.Open(path)
	if err != nil {
		logging.ServerDebug("sound asset %q not served: %v", name, err)
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	// Assets are immutable; let clients cache them for a year.
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Handler()}

	errChan := make(chan error, 1)
	go func() {
		logging.Server("listening on %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logging.Server("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
