// Package metrics exposes Prometheus metrics and a health endpoint for
// the trading engine.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	ScansTotal        prometheus.Counter
	ScansBlocked      *prometheus.CounterVec // labels: reason
	TradesOpened      prometheus.Counter
	TradesClosed      *prometheus.CounterVec // labels: reason
	OpenPositions     prometheus.Gauge
	RealizedPnL       prometheus.Gauge
	CandleFetchDur    prometheus.Histogram
	LTPFetchDur       prometheus.Histogram
	NotificationFails prometheus.Counter
}

// New registers and returns the engine metrics.
func New() *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autotrade_scans_total",
			Help: "Watchlist scans started",
		}),
		ScansBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autotrade_scans_blocked_total",
			Help: "Scans aborted by the safety gate, by reason",
		}, []string{"reason"}),
		TradesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autotrade_trades_opened_total",
			Help: "Positions opened",
		}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autotrade_trades_closed_total",
			Help: "Positions closed, by exit reason",
		}, []string{"reason"}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autotrade_open_positions",
			Help: "Currently open positions",
		}),
		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autotrade_realized_pnl_rupees",
			Help: "Realized P&L for the session in rupees",
		}),
		CandleFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autotrade_candle_fetch_duration_seconds",
			Help:    "Historical candle fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		LTPFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autotrade_ltp_fetch_duration_seconds",
			Help:    "Last-traded-price fetch latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		NotificationFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autotrade_notification_failures_total",
			Help: "Alert deliveries that returned an error",
		}),
	}

	prometheus.MustRegister(
		m.ScansTotal,
		m.ScansBlocked,
		m.TradesOpened,
		m.TradesClosed,
		m.OpenPositions,
		m.RealizedPnL,
		m.CandleFetchDur,
		m.LTPFetchDur,
		m.NotificationFails,
	)
	return m
}

// engine.MetricsSink implementation

func (m *Metrics) ScanStarted() { m.ScansTotal.Inc() }

func (m *Metrics) ScanBlocked(reason string) { m.ScansBlocked.WithLabelValues(reason).Inc() }

func (m *Metrics) TradeOpened() { m.TradesOpened.Inc() }

func (m *Metrics) TradeClosed(exitReason string, pnl float64) {
	m.TradesClosed.WithLabelValues(exitReason).Inc()
	m.RealizedPnL.Add(pnl)
}

func (m *Metrics) SetOpenPositions(n int) { m.OpenPositions.Set(float64(n)) }

func (m *Metrics) ObserveCandleFetch(d time.Duration) { m.CandleFetchDur.Observe(d.Seconds()) }

func (m *Metrics) ObserveLTPFetch(d time.Duration) { m.LTPFetchDur.Observe(d.Seconds()) }

func (m *Metrics) NotificationFailed() { m.NotificationFails.Inc() }

// HealthStatus tracks dependency liveness for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	FeedConnected  bool      `json:"feed_connected"`
	LastTickTime   time.Time `json:"last_tick_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	EngineStatus   string    `json:"engine_status"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetFeedConnected(v bool) {
	h.mu.Lock()
	h.FeedConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetEngineStatus(s string) {
	h.mu.Lock()
	h.EngineStatus = s
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if h.EngineStatus == "EMERGENCY_STOPPED" {
		overallStatus = "halted"
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		EngineStatus    string  `json:"engine_status"`
		FeedConnected   bool    `json:"feed_connected"`
		LastTickTime    string  `json:"last_tick_time"`
		TickAge         string  `json:"tick_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		EngineStatus:    h.EngineStatus,
		FeedConnected:   h.FeedConnected,
		LastTickTime:    h.LastTickTime.Format(time.RFC3339),
		TickAge:         tickAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
