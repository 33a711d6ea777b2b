// Command server runs the bookstore backend: payments through the VNPay
// gateway, embedding-backed search and collaborative recommendations.
//
// @title        Bookstore API
// @version      1.0
// @description  Payments, semantic search and recommendations for the bookstore.
// @BasePath     /api/v1
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	_ "github.com/tbourn/go-bookstore-backend/docs"
	"github.com/tbourn/go-bookstore-backend/internal/config"
	"github.com/tbourn/go-bookstore-backend/internal/embedding"
	httpapi "github.com/tbourn/go-bookstore-backend/internal/http"
	"github.com/tbourn/go-bookstore-backend/internal/http/handlers"
	"github.com/tbourn/go-bookstore-backend/internal/observability"
	"github.com/tbourn/go-bookstore-backend/internal/repo"
	"github.com/tbourn/go-bookstore-backend/internal/services"
	"github.com/tbourn/go-bookstore-backend/internal/supervisor"
	"github.com/tbourn/go-bookstore-backend/internal/sysutil"
	"github.com/tbourn/go-bookstore-backend/internal/vnpay"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	logger := sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName, nil)
	logger.Info().Str("version", appVersion).Str("port", cfg.Port).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}

	// Payments
	payments := &services.PaymentService{
		DB:            db,
		RawPayloadMax: cfg.VNPay.RawPayloadMax,
		Logger:        &logger,
	}
	if cfg.VNPay.Enabled() {
		gw, err := vnpay.NewClient(vnpay.Config{
			TmnCode:     cfg.VNPay.TmnCode,
			HashSecret:  cfg.VNPay.HashSecret,
			PayURL:      cfg.VNPay.PayURL,
			ReturnURL:   cfg.VNPay.ReturnURL,
			Version:     cfg.VNPay.Version,
			Command:     cfg.VNPay.Command,
			CurrCode:    cfg.VNPay.CurrCode,
			Locale:      cfg.VNPay.Locale,
			OrderType:   cfg.VNPay.OrderType,
			Location:    cfg.VNPay.Location(),
			ExpireAfter: cfg.VNPay.ExpireAfter,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("vnpay client")
		}
		payments.Gateway = gw
	} else {
		logger.Warn().Msg("VNPAY_TMN_CODE/VNPAY_HASH_SECRET not set: gateway payments disabled")
	}

	// Embeddings
	provider := embedding.NewClient(embedding.Config{
		URL:            cfg.Embedding.URL,
		APIKey:         cfg.Embedding.APIKey,
		Model:          cfg.Embedding.Model,
		MaxAttempts:    cfg.Embedding.MaxAttempts,
		RetryDelay:     cfg.Embedding.RetryDelay,
		AttemptTimeout: cfg.Embedding.AttemptTimeout,
		CallBudget:     cfg.Embedding.CallBudget,
		Dimensions:     cfg.Embedding.Dimensions,
		Breaker:        cfg.Embedding.BreakerEnabled,
	}, nil)
	if cfg.Embedding.APIKey == "" {
		logger.Warn().Msg("EMBEDDING_API_KEY not set: search and backfill will degrade")
	}
	queryCache, closeCache := buildQueryCache(ctx, cfg.Cache, logger)
	defer closeCache()

	store := &services.EmbeddingStore{
		DB:             db,
		Embedder:       provider,
		ComputeTimeout: cfg.Embedding.CallBudget,
		Logger:         &logger,
	}
	search := &services.SearchService{
		DB:          db,
		Store:       store,
		Queries:     &embedding.CachedClient{Next: provider, Cache: queryCache},
		Concurrency: cfg.Worker.SearchComputeConcurrency,
		Logger:      &logger,
	}
	recs := &services.RecommendationService{DB: db}
	backfill := services.NewBackfillWorker(store, services.BackfillWorkerConfig{
		Concurrency: cfg.Worker.BackfillConcurrency,
		RunOnStart:  cfg.Worker.BackfillOnStartup,
	}, &logger)

	// HTTP
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, handlers.Deps{
		Payments:        payments,
		Search:          search,
		Recommendations: recs,
		Embeddings:      store,
		Backfill:        backfill,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	tree := supervisor.NewTree(logger, supervisor.TreeConfig{ShutdownTimeout: cfg.ShutdownTimeout})
	tree.AddWorker(backfill)
	tree.AddAPI(supervisor.NewHTTPService(srv, cfg.ShutdownTimeout))

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("supervisor stopped")
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logger.Warn().Int("count", len(report)).Msg("services did not stop in time")
	}
	logger.Info().Msg("stopped")
}

// buildQueryCache assembles the query-vector cache tiers: in-process
// freecache first, then Redis when REDIS_ADDR is set.
func buildQueryCache(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (embedding.QueryCache, func()) {
	var tiers embedding.Tiered
	if cfg.QueryCacheBytes > 0 {
		tiers = append(tiers, embedding.NewMemoryCache(cfg.QueryCacheBytes, cfg.QueryCacheTTL))
	}
	closeFn := func() {}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := client.Ping(pctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; query cache will retry per request")
		}
		cancel()
		tiers = append(tiers, embedding.NewRedisCache(client, cfg.QueryCacheTTL))
		closeFn = func() { _ = client.Close() }
	}
	if len(tiers) == 0 {
		return nil, closeFn
	}
	return tiers, closeFn
}
