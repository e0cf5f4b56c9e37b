package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"autotradev1/internal/model"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Angel One credentials (required only in live mode)
	AngelAPIKey     string
	AngelClientCode string
	AngelPassword   string
	AngelTOTPSecret string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	APIAddr       string

	// Notifications
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	// Engine
	Mode               string  // "paper" or "live"
	Capital            float64 // total capital in rupees
	Timeframe          string  // broker candle timeframe, e.g. FIVE_MINUTE
	HistoryBars        int     // candles fetched per scan
	ScanIntervalSec    int
	MonitorIntervalSec int
	MinConfidence      int
	MaxOpenPositions   int
	MaxDailyLoss       float64 // rupees
	MaxConsecLosses    int
	CooldownMinutes    int
	MaxDeployedPercent float64 // of capital
	RiskPerTradePct    float64 // risk budget per trade, % of capital
	StopLossPercent    float64
	UseATRStop         bool
	ATRMultiplier      float64
	Target1Percent     float64
	Target2Percent     float64
	TrailingSL         bool
	TrailingPercent    float64
	TrailingActivate   float64
	BreakevenSL        bool
	BreakevenTrigger   float64
	NoNewTradesAfter   string // HH:MM IST
	SquareOffTime      string // HH:MM IST

	// Comma-separated strategy IDs in priority order
	Strategies string

	// Comma-separated "EXCHANGE:SYMBOL:TOKEN" watchlist entries
	Watchlist string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		AngelAPIKey:     getEnv("ANGEL_API_KEY", ""),
		AngelClientCode: getEnv("ANGEL_CLIENT_CODE", ""),
		AngelPassword:   getEnv("ANGEL_PASSWORD", ""),
		AngelTOTPSecret: getEnv("ANGEL_TOTP_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/trades.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		APIAddr:       getEnv("API_ADDR", ":8080"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		Mode:               getEnv("MODE", "paper"),
		Capital:            envFloat("CAPITAL", 200000),
		Timeframe:          getEnv("TIMEFRAME", "FIVE_MINUTE"),
		HistoryBars:        envInt("HISTORY_BARS", 200),
		ScanIntervalSec:    envInt("SCAN_INTERVAL_SEC", 30),
		MonitorIntervalSec: envInt("MONITOR_INTERVAL_SEC", 5),
		MinConfidence:      envInt("MIN_CONFIDENCE", 65),
		MaxOpenPositions:   envInt("MAX_OPEN_POSITIONS", 3),
		MaxDailyLoss:       envFloat("MAX_DAILY_LOSS", 5000),
		MaxConsecLosses:    envInt("MAX_CONSECUTIVE_LOSSES", 3),
		CooldownMinutes:    envInt("COOLDOWN_MINUTES", 15),
		MaxDeployedPercent: envFloat("MAX_DEPLOYED_PERCENT", 80),
		RiskPerTradePct:    envFloat("RISK_PER_TRADE_PCT", 1.0),
		StopLossPercent:    envFloat("STOPLOSS_PERCENT", 1.5),
		UseATRStop:         envBool("USE_ATR_STOP", false),
		ATRMultiplier:      envFloat("ATR_MULTIPLIER", 2.0),
		Target1Percent:     envFloat("TARGET1_PERCENT", 2.0),
		Target2Percent:     envFloat("TARGET2_PERCENT", 4.0),
		TrailingSL:         envBool("TRAILING_SL", true),
		TrailingPercent:    envFloat("TRAILING_PERCENT", 1.0),
		TrailingActivate:   envFloat("TRAILING_ACTIVATE_PERCENT", 1.0),
		BreakevenSL:        envBool("BREAKEVEN_SL", true),
		BreakevenTrigger:   envFloat("BREAKEVEN_TRIGGER_PERCENT", 0.8),
		NoNewTradesAfter:   getEnv("NO_NEW_TRADES_AFTER", "14:45"),
		SquareOffTime:      getEnv("SQUARE_OFF_TIME", "15:15"),

		Strategies: getEnv("STRATEGIES", "momentum_breakout,ema_crossover,supertrend_follow"),

		// Default: RELIANCE + TCS on NSE
		Watchlist: getEnv("WATCHLIST", "NSE:RELIANCE:2885,NSE:TCS:11536"),
	}
}

// ParseStrategies returns the enabled strategy IDs in priority order.
func (c *Config) ParseStrategies() []string {
	parts := strings.Split(c.Strategies, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseWatchlist parses the watchlist string into instruments, skipping
// malformed entries with a log line.
func (c *Config) ParseWatchlist() []model.Instrument {
	parts := strings.Split(c.Watchlist, ",")
	out := make([]model.Instrument, 0, len(parts))
	for _, p := range parts {
		inst := model.ParseInstrument(p)
		if inst.Symbol == "" {
			if strings.TrimSpace(p) != "" {
				log.Printf("[config] skipping invalid watchlist entry: %q", p)
			}
			continue
		}
		out = append(out, inst)
	}
	return out
}

// Live reports whether live broker execution is configured.
func (c *Config) Live() bool {
	return strings.EqualFold(c.Mode, "live")
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid number for %s: %q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid bool for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return b
}
