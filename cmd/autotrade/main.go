package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pquerna/otp/totp"

	"autotradev1/config"
	"autotradev1/internal/api"
	"autotradev1/internal/engine"
	"autotradev1/internal/execution"
	"autotradev1/internal/logger"
	"autotradev1/internal/marketdata/angel"
	"autotradev1/internal/marketdata/archive"
	"autotradev1/internal/marketdata/cached"
	"autotradev1/internal/marketdata/sim"
	"autotradev1/internal/markethours"
	"autotradev1/internal/metrics"
	"autotradev1/internal/model"
	"autotradev1/internal/notification"
	redisstore "autotradev1/internal/store/redis"
	sqlitestore "autotradev1/internal/store/sqlite"
	smartconnect "autotradev1/pkg/smartconnect"
)

func main() {
	cfg := config.Load()
	slg := logger.Init("autotrade", logger.ParseLevel(getEnv("LOG_LEVEL", "info")))
	slg.Info("starting", "mode", cfg.Mode)

	watchlist := cfg.ParseWatchlist()
	if len(watchlist) == 0 {
		log.Fatal("[autotrade] empty watchlist, nothing to trade")
	}
	strategies := cfg.ParseStrategies()
	slg.Info("scan universe", "instruments", len(watchlist), "strategies", strategies)

	// ---- Metrics & health ----
	prom := metrics.New()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Shutdown plumbing ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite: trade journal + candle archive ----
	os.MkdirAll("data", 0o755)
	journal, err := execution.NewJournal(cfg.SQLitePath, slg)
	if err != nil {
		log.Fatalf("[autotrade] journal init failed: %v", err)
	}
	defer journal.Close()

	candleDB, err := sqlitestore.New(getEnv("CANDLE_DB_PATH", "data/candles.db"), slg)
	if err != nil {
		log.Fatalf("[autotrade] candle store init failed: %v", err)
	}
	defer candleDB.Close()

	// ---- Redis candle cache + scan-log stream (optional) ----
	var redisStore *redisstore.Store
	if cfg.RedisAddr != "" {
		redisStore, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}, slg)
		if err != nil {
			slg.Warn("redis unavailable, continuing without cache", "err", err)
			redisStore = nil
		} else {
			defer redisStore.Close()
		}
	}
	if redisStore != nil {
		health.StartLivenessChecker(ctx, redisStore.Client(), candleDB.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, candleDB.DB(), 10*time.Second)
	}

	// ---- Market data + broker per mode ----
	var (
		candles model.CandleSource
		ticks   model.LTPSource
		broker  model.OrderPlacer
	)
	if cfg.Live() {
		client := smartconnect.New(smartconnect.Config{APIKey: cfg.AngelAPIKey})
		totpCode, err := totp.GenerateCode(cfg.AngelTOTPSecret, time.Now())
		if err != nil {
			log.Fatalf("[autotrade] TOTP generation failed: %v", err)
		}
		if err := client.GenerateSession(ctx, cfg.AngelClientCode, cfg.AngelPassword, totpCode); err != nil {
			log.Fatalf("[autotrade] Angel One login failed: %v", err)
		}
		slg.Info("angel one session ready", "client", cfg.AngelClientCode)
		defer client.TerminateSession(context.Background())

		rest := angel.NewSource(client, time.Now)

		feed, err := smartconnect.NewMarketFeed(
			client.AccessToken(), cfg.AngelAPIKey, client.ClientCode(), client.FeedToken())
		if err != nil {
			log.Fatalf("[autotrade] market feed init failed: %v", err)
		}
		stream := angel.NewStream(feed, rest, watchlist, slg)
		go func() {
			health.SetFeedConnected(true)
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				slg.Error("market feed stopped", "err", err)
			}
			health.SetFeedConnected(false)
		}()

		candles = rest
		ticks = stream
		broker = execution.NewLiveBroker(client, slg)
	} else {
		simSrc := sim.New(envInt64("SIM_SEED", 42), 0, time.Now)
		candles = simSrc
		ticks = simSrc
		broker = execution.NewPaperBroker(slg, time.Now)
		health.SetFeedConnected(true)
		slg.Info("paper mode: simulated market data, instant fills")
	}

	if redisStore != nil {
		candles = cached.New(candles, redisStore)
	}
	candles = archive.New(candles, candleDB, slg)

	// ---- Notifier ----
	var backends []notification.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
		slg.Info("notifications: telegram")
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
		slg.Info("notifications: webhook")
	}
	var notifier notification.Notifier
	switch len(backends) {
	case 0:
		notifier = notification.NewLogNotifier()
	case 1:
		notifier = backends[0]
	default:
		notifier = notification.Multi(backends...)
	}

	// ---- Engine ----
	eng := engine.New(engine.Params{
		Paper:   !cfg.Live(),
		Capital: cfg.Capital,

		Timeframe:   cfg.Timeframe,
		HistoryBars: cfg.HistoryBars,

		ScanInterval:    time.Duration(cfg.ScanIntervalSec) * time.Second,
		MonitorInterval: time.Duration(cfg.MonitorIntervalSec) * time.Second,

		MinConfidence:    cfg.MinConfidence,
		MaxOpenPositions: cfg.MaxOpenPositions,
		MaxDailyLoss:     cfg.MaxDailyLoss,
		MaxConsecLosses:  cfg.MaxConsecLosses,
		Cooldown:         time.Duration(cfg.CooldownMinutes) * time.Minute,

		MaxDeployedPercent: cfg.MaxDeployedPercent,
		RiskPerTradePct:    cfg.RiskPerTradePct,

		StopLossPercent: cfg.StopLossPercent,
		UseATRStop:      cfg.UseATRStop,
		ATRMultiplier:   cfg.ATRMultiplier,
		Target1Percent:  cfg.Target1Percent,
		Target2Percent:  cfg.Target2Percent,

		TrailingSL:       cfg.TrailingSL,
		TrailingPercent:  cfg.TrailingPercent,
		TrailingActivate: cfg.TrailingActivate,
		BreakevenSL:      cfg.BreakevenSL,
		BreakevenTrigger: cfg.BreakevenTrigger,

		NoNewTradesAfterMin: markethours.ParseHHMM(cfg.NoNewTradesAfter, 885),
		SquareOffMin:        markethours.ParseHHMM(cfg.SquareOffTime, 915),

		Strategies: strategies,
		Watchlist:  watchlist,
	}, engine.Deps{
		Candles:  candles,
		Ticks:    ticks,
		Broker:   broker,
		Notifier: notifier,
		Journal:  journal,
		Metrics:  prom,
		Logger:   slg,
	})

	// ---- API server (REST + WS scan-log stream) ----
	apiSrv := api.NewServer(cfg.APIAddr, eng, slg)
	apiSrv.Start()

	// Mirror scan-log entries to the WS hub and the Redis stream.
	hub := apiSrv.Hub()
	eng.SetScanLogSink(func(entry model.ScanLogEntry) {
		hub.Publish(entry)
		if redisStore != nil {
			redisStore.AppendScanLog(ctx, entry)
		}
	})

	if err := eng.Start(ctx); err != nil {
		log.Fatalf("[autotrade] engine start failed: %v", err)
	}
	health.SetEngineStatus(string(eng.Status()))

	// Keep /healthz in sync with engine state.
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				health.SetEngineStatus(string(eng.Status()))
			}
		}
	}()

	slg.Info("engine running",
		"capital", cfg.Capital,
		"max_positions", cfg.MaxOpenPositions,
		"scan_interval_sec", cfg.ScanIntervalSec,
		"api_addr", cfg.APIAddr,
		"metrics_addr", cfg.MetricsAddr)

	<-sigCh
	slg.Info("shutdown signal received")

	eng.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Stop(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	slg.Info("stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
