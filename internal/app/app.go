package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	"github.com/betforge/coupon-engine/external/apifootball"
	"github.com/betforge/coupon-engine/external/gemini"
	"github.com/betforge/coupon-engine/external/oddsapi"
	"github.com/betforge/coupon-engine/internal/config"
	"github.com/betforge/coupon-engine/internal/domain/stats"
	"github.com/betforge/coupon-engine/internal/infrastructure/repository/csvstats"
	"github.com/betforge/coupon-engine/internal/infrastructure/repository/filestore"
	"github.com/betforge/coupon-engine/internal/infrastructure/repository/postgres"
	"github.com/betforge/coupon-engine/internal/interfaces/httpapi"
	"github.com/betforge/coupon-engine/internal/platform/filecache"
	"github.com/betforge/coupon-engine/internal/platform/logging"
	"github.com/betforge/coupon-engine/internal/platform/resilience"
	"github.com/betforge/coupon-engine/internal/usecase"
)

// NewHTTPServer wires repositories, providers, and services into the
// public HTTP server. Team statistics come from Postgres when DB_URL is
// set and from the bundled CSV otherwise.
func NewHTTPServer(ctx context.Context, cfg config.Config, logger *slog.Logger, zlog *logging.Logger) (*http.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if zlog == nil {
		zlog = logging.Default()
	}

	statsRepo, err := buildStatsRepository(ctx, cfg, zlog)
	if err != nil {
		return nil, fmt.Errorf("build stats repository: %w", err)
	}

	oddsCache := filecache.NewStore(cfg.CacheDir, cfg.OddsCacheTTL, zlog)
	oddsClient := oddsapi.NewClient(oddsapi.ClientConfig{
		BaseURL:    cfg.OddsAPIBaseURL,
		APIKey:     cfg.OddsAPIKey,
		Regions:    cfg.DefaultRegions,
		Markets:    cfg.DefaultMarkets,
		Bookmakers: cfg.DefaultBookies,
		Timeout:    cfg.OddsAPITimeout,
		MaxRetries: cfg.OddsAPIMaxRetries,
		Logger:     zlog,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.OddsAPICircuitEnabled,
			FailureThreshold: cfg.OddsAPICircuitFailureCount,
			OpenTimeout:      cfg.OddsAPICircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.OddsAPICircuitHalfOpenMax,
		},
		Cache: oddsCache,
	})
	catalog := oddsapi.NewCatalog(zlog)

	footballClient := apifootball.NewClient(apifootball.ClientConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.FootballAPITimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		BaseURL:    cfg.FootballAPIBaseURL,
		APIKey:     cfg.FootballAPIKey,
		Timeout:    cfg.FootballAPITimeout,
		MaxRetries: cfg.FootballAPIMaxRetries,
		Logger:     zlog,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FootballAPICircuitEnabled,
			FailureThreshold: cfg.FootballAPICircuitFailureCount,
			OpenTimeout:      cfg.FootballAPICircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FootballAPICircuitHalfOpenMax,
		},
	})

	identityStore := filestore.NewIdentityStore(filepath.Join(cfg.CacheDir, "team_ids.json"), zlog)
	formStore := filestore.NewFormStore(filepath.Join(cfg.CacheDir, "team_form.json"), cfg.FormCacheTTL, zlog)

	predictionSvc := usecase.NewPredictionService(statsRepo)
	fixtureSvc := usecase.NewFixtureService(oddsClient, catalog, cfg.FixtureMemoTTL, logger)
	couponSvc := usecase.NewCouponService(predictionSvc, logger)
	analysisSvc := usecase.NewAnalysisService(predictionSvc, logger)
	formSvc := usecase.NewFormService(footballClient, identityStore, formStore, logger)

	var chatSvc *usecase.ChatService
	if cfg.GeminiEnabled {
		geminiClient := gemini.NewClient(gemini.ClientConfig{
			BaseURL: cfg.GeminiBaseURL,
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.GeminiTimeout,
			Logger:  zlog,
		})
		chatSvc = usecase.NewChatService(geminiClient, fixtureSvc, analysisSvc, logger)
	}

	handler := httpapi.NewHandler(fixtureSvc, couponSvc, analysisSvc, formSvc, chatSvc, cfg.SportKeys, cfg.FormPrefetchWorkers, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}

func buildStatsRepository(ctx context.Context, cfg config.Config, zlog *logging.Logger) (stats.Repository, error) {
	if cfg.DBURL == "" {
		return csvstats.NewRepository(cfg.StatsCSVPath, zlog), nil
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return postgres.NewTeamStatsRepository(ctx, db)
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := otelsqlx.Open("postgres", cfg.DBURL,
		otelsql.WithAttributes(semconv.DBSystemNamePostgreSQL),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
