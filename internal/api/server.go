package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/thewriterben/wildcam/internal/auth"
	"github.com/thewriterben/wildcam/internal/coordinator"
	"github.com/thewriterben/wildcam/internal/middleware"
	"github.com/thewriterben/wildcam/internal/store"
	"github.com/thewriterben/wildcam/internal/wildlife"
	"github.com/thewriterben/wildcam/internal/ws"
)

// Server is the device's local HTTP surface: status, stored events,
// supervised feedback and the live WebSocket event stream.
type Server struct {
	addr  string
	coord *coordinator.Coordinator
	store *store.Store
	hub   *ws.Hub
	auth  *auth.Authenticator

	httpServer *http.Server
	started    time.Time
}

// NewServer wires the API server. Store and hub may be nil; the
// corresponding endpoints then report unavailability.
func NewServer(addr string, coord *coordinator.Coordinator, st *store.Store, hub *ws.Hub, authn *auth.Authenticator) *Server {
	return &Server{
		addr:  addr,
		coord: coord,
		store: st,
		hub:   hub,
		auth:  authn,
	}
}

// Start begins serving. It blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	protect := middleware.AuthMiddleware(s.auth)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.Handle("/api/status", protect(http.HandlerFunc(s.handleStatus)))
	mux.Handle("/api/events", protect(http.HandlerFunc(s.handleEvents)))
	mux.Handle("/api/zones", protect(http.HandlerFunc(s.handleZones)))
	mux.Handle("/api/patterns", protect(http.HandlerFunc(s.handlePatterns)))
	mux.Handle("/api/feedback", protect(http.HandlerFunc(s.handleFeedback)))
	if s.hub != nil {
		mux.Handle("/ws/events", protect(ws.NewHandler(s.hub)))
	}

	s.started = time.Now()
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("[API] Listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expiresAt, err := s.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAuthDisabled) {
			writeError(w, http.StatusBadRequest, "authentication is disabled")
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.coord.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":     time.Since(s.started).String(),
		"cycles":     stats.Cycles,
		"detections": stats.Detections,
		"captures":   stats.Captures,
		"skipped":    stats.Skipped,
		"faults":     stats.Faults,
		"fallbacks":  stats.Fallbacks,
		"ws_clients": s.wsClients(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "event store unavailable")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	var since *time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			since = &t
		}
	}

	events, err := s.store.ListEvents(r.URL.Query().Get("category"), since, limit)
	if err != nil {
		log.Printf("[API] listing events: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "event store unavailable")
		return
	}
	zones, err := s.store.ListZoneStats()
	if err != nil {
		log.Printf("[API] listing zone stats: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list zones")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"zones": zones})
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	analyzer := s.coord.Analyzer()
	if analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "analyzer unavailable")
		return
	}

	type patternView struct {
		Category  string `json:"category"`
		Exemplars int    `json:"exemplars"`
		Observed  uint64 `json:"observed"`
	}
	patterns := analyzer.Patterns()
	views := make([]patternView, 0, len(patterns))
	for _, p := range patterns {
		views = append(views, patternView{
			Category:  p.Category.String(),
			Exemplars: len(p.Exemplars),
			Observed:  p.Observed,
		})
	}

	hourly := make([]float64, 24)
	for h := 0; h < 24; h++ {
		hourly[h] = analyzer.HourlyActivity(h)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patterns": views,
		"hourly":   hourly,
	})
}

// handleFeedback records supervised classification feedback against a
// stored event, feeding the analyzer's learned pools.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	analyzer := s.coord.Analyzer()
	if analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "analyzer unavailable")
		return
	}

	var req struct {
		Category   string                           `json:"category"`
		Confidence float64                          `json:"confidence"`
		Hour       int                              `json:"hour"`
		Movement   wildlife.MovementCharacteristics `json:"movement"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, ok := parseCategory(req.Category)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}
	analyzer.LearnPattern(cat, req.Movement, req.Confidence, req.Hour)
	writeJSON(w, http.StatusOK, map[string]interface{}{"learned": true})
}

func (s *Server) wsClients() int {
	if s.hub == nil {
		return 0
	}
	return s.hub.ClientCount()
}

func parseCategory(name string) (wildlife.Category, bool) {
	for c := wildlife.CategoryUnknown; c <= wildlife.CategoryHuman; c++ {
		if c.String() == name {
			return c, true
		}
	}
	return wildlife.CategoryUnknown, false
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[API] encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
