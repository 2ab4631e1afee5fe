// Package api provides the HTTP admin surface of the boost engine.
// GET endpoints are public (read-only observation).
// POST endpoints require the server.admin-key bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/talgya/harvest-boost/internal/boost"
	"github.com/talgya/harvest-boost/internal/clock"
	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/engine"
	"github.com/talgya/harvest-boost/internal/persistence"
	"github.com/talgya/harvest-boost/internal/sim"
	"github.com/talgya/harvest-boost/internal/world"
)

// Boost lookups allowed per client per minute.
const boostLookupsPerMinute = 120

// Server serves boost state over HTTP.
type Server struct {
	Boosts *boost.Service
	Eng    *engine.Engine
	Host   *world.Host
	DB     *persistence.DB // nil disables /events
	Sim    *sim.Simulation // nil when driven by a real host
	Level  *slog.LevelVar  // toggled by /debug
	Clock  clock.Clock     // wall clock for rate limiting; defaults to Real
	Reload func() (*config.Config, error)

	once    sync.Once
	router  chi.Router
	limiter *RateLimiter
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.once.Do(s.routes)
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	if s.Clock == nil {
		s.Clock = clock.Real()
	}
	s.limiter = NewRateLimiter(boostLookupsPerMinute, time.Minute, s.Clock)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/info", s.handleInfo)
		r.With(s.limiter.Middleware).Get("/boost", s.handleBoost)
		r.Get("/agents", s.handleAgents)
		r.Get("/agents/{id}", s.handleAgent)
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/reload", s.handleReload)
			r.Post("/debug", s.handleDebug)
			r.Post("/speed", s.handleSpeed)
		})
	})

	s.router = r
}

// Start begins serving the HTTP API in a goroutine. The returned server is
// for shutdown.
func (s *Server) Start(addr string) *http.Server {
	s.once.Do(s.routes)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.adminKey() != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// Shutdown stops srv, waiting up to five seconds for requests in flight.
func Shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("HTTP server shutdown", "error", err)
	}
}

// corsMiddleware adds CORS headers for allowed dashboard origins.
// HARVESTBOOST_CORS_ORIGINS holds a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("HARVESTBOOST_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminKey is read from the live config so a reload can rotate it.
func (s *Server) adminKey() string {
	return s.Boosts.Config().Server.AdminKey
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request, key string) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == key
}

// adminOnly requires bearer token auth.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := s.adminKey()
		if key == "" {
			http.Error(w, "admin endpoints disabled (no HARVESTBOOST_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r, key) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":          "HarvestBoost",
		"tick":          s.Eng.Tick(),
		"game_time":     engine.GameTime(s.Eng.Tick()),
		"speed":         s.Eng.Speed(),
		"running":       s.Eng.Running(),
		"worlds":        s.Host.Worlds(),
		"online_agents": len(s.Host.OnlineAgents()),
		"tracked":       s.Boosts.Tracker.Len(),
		"cached_areas":  s.Boosts.Cache.Len(),
		"debug":         s.Level != nil && s.Level.Level() <= slog.LevelDebug,
	}
	if s.Sim != nil {
		status["simulation"] = s.Sim.Stats()
	}
	if s.DB != nil {
		if counts, err := s.DB.Counts(); err == nil {
			status["journal"] = counts
		} else {
			slog.Warn("journal counts unavailable", "error", err)
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	type level struct {
		Farmers    int     `json:"farmers"`
		Multiplier float64 `json:"multiplier"`
		Percentage int     `json:"percentage"`
	}

	cfg := s.Boosts.Config()
	curve := boost.CurveFor(cfg)
	levels := make([]level, 0, cfg.Boosts.MaxPlayers)
	for n := 1; n <= curve.MaxLevel(); n++ {
		levels = append(levels, level{Farmers: n, Multiplier: curve.MultiplierFor(n), Percentage: curve.PercentageFor(n)})
	}

	writeJSON(w, map[string]any{
		"levels":               levels,
		"max_players":          cfg.Boosts.MaxPlayers,
		"radius":               cfg.Detection.Radius,
		"area_radius":          cfg.Advanced.FarmingDetectionRadius,
		"minimum_presence_ms":  cfg.MinimumPresence().Milliseconds(),
		"check_interval_ticks": cfg.Detection.CheckInterval,
		"enabled":              cfg.Enable,
		"disabled_worlds":      cfg.Advanced.DisabledWorlds,
		"xp_bonus":             cfg.Advanced.XPBonus,
	})
}

func (s *Server) handleBoost(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	worldName := q.Get("world")
	if worldName == "" {
		http.Error(w, "world required", http.StatusBadRequest)
		return
	}
	var coords [3]float64
	for i, axis := range []string{"x", "y", "z"} {
		v, err := strconv.ParseFloat(q.Get(axis), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			http.Error(w, fmt.Sprintf("invalid %s coordinate", axis), http.StatusBadRequest)
			return
		}
		coords[i] = v
	}
	loc := world.At(worldName, coords[0], coords[1], coords[2])

	e := s.Boosts.Cache.Lookup(r.Context(), loc)
	writeJSON(w, map[string]any{
		"area":        loc.Key().String(),
		"count":       e.Count,
		"multiplier":  e.Multiplier,
		"percentage":  e.Percentage(),
		"computed_at": e.ComputedAt,
		"disabled":    s.Boosts.Config().WorldDisabled(worldName),
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	online := s.Host.OnlineAgents()
	out := make([]boost.AgentStatus, 0, len(online))
	for _, a := range online {
		out = append(out, s.Boosts.Inspect(r.Context(), a))
	}
	writeJSON(w, out)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	a, ok := s.Host.Lookup(id)
	if !ok {
		http.Error(w, "agent not online", http.StatusNotFound)
		return
	}
	st := s.Boosts.Inspect(r.Context(), a)
	writeJSON(w, map[string]any{
		"status":  st,
		"summary": st.String(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if s.DB == nil {
		writeJSON(w, []persistence.Event{})
		return
	}

	events, err := s.DB.RecentEvents(limit)
	if err != nil {
		slog.Error("recent events query failed", "error", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []persistence.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.Reload == nil {
		http.Error(w, "reload not configured", http.StatusNotImplemented)
		return
	}
	cfg, err := s.Reload()
	if err != nil {
		slog.Warn("config reload failed", "error", err)
		http.Error(w, "reload failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.Boosts.Reload(cfg)
	if s.Level != nil {
		s.Level.Set(levelFor(cfg.Advanced.Debug))
	}
	slog.Info("config reloaded via API", "levels", len(cfg.Levels()), "max_players", cfg.Boosts.MaxPlayers)
	writeJSON(w, map[string]any{"reloaded": true, "max_players": cfg.Boosts.MaxPlayers})
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if s.Level == nil {
		http.Error(w, "log level not adjustable", http.StatusNotImplemented)
		return
	}
	s.Level.Set(levelFor(req.Enabled))
	slog.Info("debug logging toggled", "enabled", req.Enabled)
	writeJSON(w, map[string]bool{"debug": req.Enabled})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 1000 {
		http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
		return
	}
	s.Eng.SetSpeed(req.Speed)
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func levelFor(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Warn("encode response", "error", err)
	}
}
