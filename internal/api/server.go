// Package api exposes the trading engine over REST and a WebSocket
// scan-log stream. Read endpoints serve snapshots; control endpoints
// pause, resume or kill the engine.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"autotradev1/internal/engine"
	"autotradev1/internal/strategy"
)

// setCORS sets CORS headers for REST endpoints.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// Server serves the engine API on a single ServeMux.
type Server struct {
	eng    *engine.Engine
	hub    *Hub
	logger *slog.Logger

	http *http.Server
}

// NewServer builds the API server. The returned server's Hub should be
// fed scan-log entries via Hub.Publish.
func NewServer(addr string, eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		eng:    eng,
		hub:    NewHub(logger),
		logger: logger,
	}

	mux := http.NewServeMux()
	s.register(mux)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Hub returns the WebSocket fan-out hub.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		writeJSON(w, map[string]any{
			"engine": string(s.eng.Status()),
			"safety": s.eng.SafetyStatus(),
			"today":  s.eng.TodayStats(),
		})
	})

	mux.HandleFunc("/api/v1/trades/active", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		writeJSON(w, s.eng.ActiveTrades())
	})

	mux.HandleFunc("/api/v1/trades/history", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		trades := s.eng.TradeHistory()
		if limit := queryInt(r, "limit", 0); limit > 0 && limit < len(trades) {
			trades = trades[len(trades)-limit:]
		}
		writeJSON(w, trades)
	})

	mux.HandleFunc("/api/v1/scanlog", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		entries := s.eng.ScanLog()
		if limit := queryInt(r, "limit", 0); limit > 0 && limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}
		writeJSON(w, entries)
	})

	mux.HandleFunc("/api/v1/safety", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		writeJSON(w, s.eng.SafetyStatus())
	})

	mux.HandleFunc("/api/v1/stats/today", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		writeJSON(w, s.eng.TodayStats())
	})

	mux.HandleFunc("/api/v1/strategies", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		type info struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			Confidence int    `json:"confidence"`
		}
		out := make([]info, 0, len(strategy.Catalog))
		for _, st := range strategy.Catalog {
			out = append(out, info{ID: st.ID(), Name: st.Name(), Confidence: st.Confidence()})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		writeJSON(w, out)
	})

	mux.HandleFunc("/api/v1/engine/pause", s.control(func(r *http.Request) error {
		s.eng.Pause()
		return nil
	}))
	mux.HandleFunc("/api/v1/engine/resume", s.control(func(r *http.Request) error {
		s.eng.Resume()
		return nil
	}))
	mux.HandleFunc("/api/v1/engine/kill", s.control(func(r *http.Request) error {
		s.eng.KillAll(r.Context())
		return nil
	}))

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("ws upgrade failed", "err", err)
			return
		}
		s.hub.serve(conn)
	})
}

// control wraps a state-changing engine call; POST only.
func (s *Server) control(fn func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}
		if err := fn(r); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			writeJSON(w, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, map[string]any{
			"ok":     true,
			"engine": string(s.eng.Status()),
		})
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("api server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api server failed", "err", err)
		}
	}()
}

// Stop shuts the HTTP listener and disconnects WS clients.
func (s *Server) Stop(ctx context.Context) {
	s.hub.closeAll()
	_ = s.http.Shutdown(ctx)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
