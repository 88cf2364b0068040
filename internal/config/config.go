// Package config loads the POS settings from the environment (and a .env
// file when present). The API and worker share one Config; the register
// reads the same variables but only needs the API URL.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	Location           *time.Location

	LogFormat      string
	LogLevel       string
	OTLPEndpoint   string
	TracingEnabled bool
	MetricsNS      string

	CatalogSearchLimit   int
	CatalogCacheTTL      time.Duration
	StatsCacheTTL        time.Duration
	IdempotencyTTL       time.Duration
	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration
	APIRateLimit         string
	BodyLimitBytes       int64
	AuthHashAlgo         string
	MigrateOnStart       bool
	ShutdownTimeout      time.Duration

	// Invoice and receipt defaults.
	DefaultTaxRate     decimal.Decimal
	WalkInCustomerName string
	StoreName          string
	StoreAddress       string
	StoreGSTIN         string
	StoreEmail         string

	// PrinterKind is network, usb or none; inferred from the address
	// settings when unset.
	PrinterKind       string
	PrinterAddr       string
	PrinterUSBPath    string
	PrinterWidth      int
	PrintOnSave       bool
	WorkerConcurrency int
	WorkerMetricsAddr string

	RegisterAPIURL         string
	RegisterSearchDebounce time.Duration
	RegisterHTMLPath       string
	OutboundTimeout        time.Duration
}

// Load reads configuration for the API server and worker. Both need Postgres
// and Redis.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	switch {
	case cfg.DatabaseURL == "":
		return nil, errors.New("DATABASE_URL is required")
	case cfg.RedisURL == "":
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}

// LoadRegister reads configuration for the register, which only talks to the API.
func LoadRegister() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.RegisterAPIURL == "" {
		return nil, errors.New("REGISTER_API_URL is required")
	}
	return cfg, nil
}

func load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	v := vars{k}

	loc := time.Local
	if name := v.str("APP_TIMEZONE", ""); name != "" {
		l, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("APP_TIMEZONE: %w", err)
		}
		loc = l
	}
	taxRate, err := decimal.NewFromString(v.str("DEFAULT_TAX_RATE", "0.05"))
	if err == nil && taxRate.IsNegative() {
		err = errors.New("must not be negative")
	}
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_TAX_RATE: %w", err)
	}

	cfg := &Config{
		AppEnv:             v.str("APP_ENV", "development"),
		Port:               v.str("PORT", "8080"),
		DatabaseURL:        v.str("DATABASE_URL", ""),
		RedisURL:           v.str("REDIS_URL", ""),
		CORSAllowedOrigins: v.list("CORS_ALLOWED_ORIGINS"),
		Location:           loc,

		LogFormat:      v.str("OBS_LOG_FORMAT", "json"),
		LogLevel:       v.str("OBS_LOG_LEVEL", "info"),
		OTLPEndpoint:   v.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TracingEnabled: v.flag("OBS_TRACING_ENABLED", false),
		MetricsNS:      v.str("OBS_METRICS_NAMESPACE", "pos"),

		CatalogSearchLimit:   v.positive("CATALOG_SEARCH_LIMIT", 10),
		CatalogCacheTTL:      v.dur("CATALOG_CACHE_TTL", time.Minute),
		StatsCacheTTL:        v.dur("STATS_CACHE_TTL", 30*time.Second),
		IdempotencyTTL:       v.dur("IDEMPOTENCY_TTL", 10*time.Minute),
		LoginRateLimitMax:    v.positive("LOGIN_RATE_LIMIT_MAX", 10),
		LoginRateLimitWindow: v.dur("LOGIN_RATE_LIMIT_WINDOW", time.Minute),
		APIRateLimit:         v.str("API_RATE_LIMIT", "600-M"),
		BodyLimitBytes:       int64(v.positive("BODY_LIMIT_BYTES", 1<<20)),
		AuthHashAlgo:         strings.ToLower(v.str("AUTH_HASH_ALGO", "bcrypt")),
		MigrateOnStart:       v.flag("MIGRATE_ON_START", true),
		ShutdownTimeout:      v.dur("SHUTDOWN_TIMEOUT", 15*time.Second),

		DefaultTaxRate:     taxRate,
		WalkInCustomerName: v.str("WALKIN_CUSTOMER_NAME", "Walk-In Customer"),
		StoreName:          v.str("STORE_NAME", "Toko"),
		StoreAddress:       v.str("STORE_ADDRESS", ""),
		StoreGSTIN:         v.str("STORE_GSTIN", ""),
		StoreEmail:         v.str("STORE_EMAIL", ""),

		PrinterKind:       strings.ToLower(v.str("PRINTER_KIND", "")),
		PrinterAddr:       v.str("PRINTER_ADDR", ""),
		PrinterUSBPath:    v.str("PRINTER_USB_PATH", ""),
		PrinterWidth:      v.positive("PRINTER_WIDTH", 48),
		PrintOnSave:       v.flag("PRINT_ON_SAVE", false),
		WorkerConcurrency: v.positive("WORKER_CONCURRENCY", 2),
		WorkerMetricsAddr: v.str("WORKER_METRICS_ADDR", ":9091"),

		RegisterAPIURL:         strings.TrimRight(v.str("REGISTER_API_URL", ""), "/"),
		RegisterSearchDebounce: v.dur("REGISTER_SEARCH_DEBOUNCE", 300*time.Millisecond),
		RegisterHTMLPath:       v.str("REGISTER_HTML_PATH", ""),
		OutboundTimeout:        v.dur("OUTBOUND_TIMEOUT", 5*time.Second),
	}
	if cfg.PrinterKind == "" {
		switch {
		case cfg.PrinterAddr != "":
			cfg.PrinterKind = "network"
		case cfg.PrinterUSBPath != "":
			cfg.PrinterKind = "usb"
		default:
			cfg.PrinterKind = "none"
		}
	}
	return cfg, nil
}

// HTTPAddr is the listen address for the API.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	switch {
	case port == "":
		return ":8080"
	case strings.HasPrefix(port, ":"):
		return port
	default:
		return ":" + port
	}
}

// vars reads environment values out of koanf. Blank and unparsable values
// fall back to the given default.
type vars struct{ k *koanf.Koanf }

func (v vars) str(key, def string) string {
	if s := strings.TrimSpace(v.k.String(key)); s != "" {
		return s
	}
	return def
}

func (v vars) positive(key string, def int) int {
	n, err := strconv.Atoi(v.str(key, ""))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (v vars) dur(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v.str(key, ""))
	if err != nil {
		return def
	}
	return d
}

func (v vars) flag(key string, def bool) bool {
	switch strings.ToLower(v.str(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func (v vars) list(key string) []string {
	var out []string
	for _, part := range strings.Split(v.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
