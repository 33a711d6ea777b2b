// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, the payment
// gateway, the embedding provider, caches and observability.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // VNPAY_TIMEZONE must resolve on images without zoneinfo
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-bookstore-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// VNPayConfig defines the payment gateway merchant settings.
type VNPayConfig struct {
	TmnCode       string        // VNPAY_TMN_CODE
	HashSecret    string        // VNPAY_HASH_SECRET
	PayURL        string        // VNPAY_PAY_URL
	ReturnURL     string        // VNPAY_RETURN_URL
	Version       string        // VNPAY_VERSION
	Command       string        // VNPAY_COMMAND
	CurrCode      string        // VNPAY_CURR_CODE
	Locale        string        // VNPAY_LOCALE
	OrderType     string        // VNPAY_ORDER_TYPE
	Timezone      string        // VNPAY_TIMEZONE (IANA name)
	ExpireAfter   time.Duration // VNPAY_EXPIRE_AFTER
	RawPayloadMax int           // PAYMENT_RAW_PAYLOAD_MAX (bytes)
}

// Enabled reports whether gateway payments are configured.
func (v VNPayConfig) Enabled() bool { return v.TmnCode != "" && v.HashSecret != "" }

// EmbeddingConfig defines the embedding provider client settings.
type EmbeddingConfig struct {
	URL            string        // EMBEDDING_API_URL
	APIKey         string        // EMBEDDING_API_KEY
	Model          string        // EMBEDDING_MODEL
	Dimensions     int           // EMBEDDING_DIMENSIONS (informational)
	MaxAttempts    int           // EMBEDDING_MAX_ATTEMPTS
	RetryDelay     time.Duration // EMBEDDING_RETRY_DELAY
	AttemptTimeout time.Duration // EMBEDDING_ATTEMPT_TIMEOUT
	CallBudget     time.Duration // EMBEDDING_CALL_BUDGET
	BreakerEnabled bool          // EMBEDDING_BREAKER_ENABLED
}

// CacheConfig defines the query-vector cache tiers.
type CacheConfig struct {
	QueryCacheBytes int           // QUERY_CACHE_BYTES (0 disables the in-process tier)
	QueryCacheTTL   time.Duration // QUERY_CACHE_TTL
	RedisAddr       string        // REDIS_ADDR (empty disables the shared tier)
	RedisPassword   string        // REDIS_PASSWORD
	RedisDB         int           // REDIS_DB
}

// WorkerConfig defines background and fan-out concurrency.
type WorkerConfig struct {
	BackfillConcurrency      int  // BACKFILL_CONCURRENCY
	BackfillOnStartup        bool // BACKFILL_ON_STARTUP
	SearchComputeConcurrency int  // SEARCH_COMPUTE_CONCURRENCY
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test
	ShutdownTimeout   time.Duration // graceful shutdown budget

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath string // SQLite path

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Domain
	VNPay     VNPayConfig
	Embedding EmbeddingConfig
	Cache     CacheConfig
	Worker    WorkerConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 10*time.Second),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "app.db"),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Payment gateway
		VNPay: VNPayConfig{
			TmnCode:       strings.TrimSpace(getenv("VNPAY_TMN_CODE", "")),
			HashSecret:    getenv("VNPAY_HASH_SECRET", ""),
			PayURL:        getenv("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			ReturnURL:     getenv("VNPAY_RETURN_URL", "http://localhost:8080/api/v1/payments/vnpay/return"),
			Version:       getenv("VNPAY_VERSION", "2.1.0"),
			Command:       getenv("VNPAY_COMMAND", "pay"),
			CurrCode:      getenv("VNPAY_CURR_CODE", "VND"),
			Locale:        getenv("VNPAY_LOCALE", "vn"),
			OrderType:     getenv("VNPAY_ORDER_TYPE", "other"),
			Timezone:      getenv("VNPAY_TIMEZONE", "Asia/Ho_Chi_Minh"),
			ExpireAfter:   getdur("VNPAY_EXPIRE_AFTER", 15*time.Minute),
			RawPayloadMax: getint("PAYMENT_RAW_PAYLOAD_MAX", 2048),
		},

		// Embedding provider
		Embedding: EmbeddingConfig{
			URL:            getenv("EMBEDDING_API_URL", "https://api.voyageai.com/v1/embeddings"),
			APIKey:         getenv("EMBEDDING_API_KEY", ""),
			Model:          getenv("EMBEDDING_MODEL", "voyage-3"),
			Dimensions:     getint("EMBEDDING_DIMENSIONS", 1024),
			MaxAttempts:    getint("EMBEDDING_MAX_ATTEMPTS", 3),
			RetryDelay:     getdur("EMBEDDING_RETRY_DELAY", time.Second),
			AttemptTimeout: getdur("EMBEDDING_ATTEMPT_TIMEOUT", 10*time.Second),
			CallBudget:     getdur("EMBEDDING_CALL_BUDGET", 45*time.Second),
			BreakerEnabled: getbool("EMBEDDING_BREAKER_ENABLED", true),
		},

		// Query-vector cache
		Cache: CacheConfig{
			QueryCacheBytes: getint("QUERY_CACHE_BYTES", 16<<20),
			QueryCacheTTL:   getdur("QUERY_CACHE_TTL", time.Hour),
			RedisAddr:       strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword:   getenv("REDIS_PASSWORD", ""),
			RedisDB:         getint("REDIS_DB", 0),
		},

		// Workers
		Worker: WorkerConfig{
			BackfillConcurrency:      getint("BACKFILL_CONCURRENCY", 4),
			BackfillOnStartup:        getbool("BACKFILL_ON_STARTUP", false),
			SearchComputeConcurrency: getint("SEARCH_COMPUTE_CONCURRENCY", 4),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-bookstore-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if err := validateVNPay(cfg.VNPay); err != nil {
		return cfg, err
	}
	if err := validateEmbedding(cfg.Embedding); err != nil {
		return cfg, err
	}
	if cfg.Cache.QueryCacheBytes < 0 || cfg.Cache.QueryCacheTTL <= 0 {
		return cfg, errors.New("QUERY_CACHE_BYTES must be >= 0 and QUERY_CACHE_TTL > 0")
	}
	if cfg.Cache.RedisDB < 0 {
		return cfg, errors.New("REDIS_DB must be >= 0")
	}
	if cfg.Worker.BackfillConcurrency < 1 || cfg.Worker.SearchComputeConcurrency < 1 {
		return cfg, errors.New("BACKFILL_CONCURRENCY and SEARCH_COMPUTE_CONCURRENCY must be >= 1")
	}

	return cfg, nil
}

func validateVNPay(v VNPayConfig) error {
	if (v.TmnCode == "") != (v.HashSecret == "") {
		return errors.New("VNPAY_TMN_CODE and VNPAY_HASH_SECRET must be set together")
	}
	if v.Enabled() {
		if u, err := url.Parse(v.PayURL); err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("VNPAY_PAY_URL must be an absolute URL")
		}
		if strings.TrimSpace(v.ReturnURL) == "" {
			return errors.New("VNPAY_RETURN_URL must not be empty")
		}
	}
	if _, err := time.LoadLocation(v.Timezone); err != nil {
		return fmt.Errorf("VNPAY_TIMEZONE: %w", err)
	}
	if v.ExpireAfter <= 0 {
		return errors.New("VNPAY_EXPIRE_AFTER must be > 0")
	}
	if v.RawPayloadMax < 64 {
		return errors.New("PAYMENT_RAW_PAYLOAD_MAX must be >= 64")
	}
	return nil
}

func validateEmbedding(e EmbeddingConfig) error {
	if u, err := url.Parse(e.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("EMBEDDING_API_URL must be an absolute URL")
	}
	if strings.TrimSpace(e.Model) == "" {
		return errors.New("EMBEDDING_MODEL must not be empty")
	}
	if e.MaxAttempts < 1 {
		return errors.New("EMBEDDING_MAX_ATTEMPTS must be >= 1")
	}
	if e.RetryDelay < 0 {
		return errors.New("EMBEDDING_RETRY_DELAY must be >= 0")
	}
	if e.AttemptTimeout <= 0 || e.AttemptTimeout >= e.CallBudget {
		return errors.New("EMBEDDING_ATTEMPT_TIMEOUT must be > 0 and shorter than EMBEDDING_CALL_BUDGET")
	}
	return nil
}

// Location resolves the gateway timezone. Load has already validated it.
func (v VNPayConfig) Location() *time.Location {
	loc, err := time.LoadLocation(v.Timezone)
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
