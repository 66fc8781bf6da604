package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"shiftcal/internal/config"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/reconcile"
)

// RunFunc triggers one reconciliation and returns its ledger.
type RunFunc func(ctx context.Context) (*reconcile.Ledger, error)

// Server exposes the status API: health, the last run's ledger, and a
// manual run trigger.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	// run triggers a reconciliation; nil disables /api/run. Single-run
	// protection belongs to the caller's reconcile.Runner, which is also
	// shared with the cron schedule.
	run RunFunc

	// mu guards lastLedger.
	mu         sync.RWMutex
	lastLedger *reconcile.Ledger
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, run RunFunc) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
		run: run,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// SetLedger records the most recent run's ledger for /api/ledger.
func (s *Server) SetLedger(l *reconcile.Ledger) {
	s.mu.Lock()
	s.lastLedger = l
	s.mu.Unlock()
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Treat an empty username or password as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays reachable without credentials.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="shiftcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/ledger", s.handleLedger)
	s.mux.HandleFunc("/api/run", s.handleRun)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleLedger returns the last reconciliation run's ledger, or 404
// before the first run.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.RLock()
	l := s.lastLedger
	s.mu.RUnlock()

	if l == nil {
		writeError(w, http.StatusNotFound, "no reconciliation run yet")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// handleRun triggers a reconciliation. Only one run may be in flight
// across every trigger source; a run already started by the schedule
// or by another request gets a 409 here.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.run == nil {
		writeError(w, http.StatusServiceUnavailable, "manual runs disabled")
		return
	}

	ledger, err := s.run(r.Context())
	if err != nil {
		if errors.Is(err, reconcile.ErrRunInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		appLog.Error("manual reconciliation failed", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.SetLedger(ledger)
	writeJSON(w, http.StatusOK, ledger)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to encode JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
