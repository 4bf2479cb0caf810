package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"logimatch/internal/api"
	"logimatch/internal/api/middleware"
	"logimatch/internal/event"
	"logimatch/internal/repository"
	"logimatch/internal/repository/memory"
	"logimatch/internal/repository/postgres"
	"logimatch/internal/scheduler"
	schedulerjobs "logimatch/internal/scheduler/jobs"
	"logimatch/internal/service"
	"logimatch/internal/sse"
	jwtutil "logimatch/pkg/jwt"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "healthcheck":
			os.Exit(runHealthcheck())
		case "migrate":
			if err := runMigrateCommand(); err != nil {
				// #nosec G705 -- CLI output only; control characters are stripped.
				fmt.Fprintln(os.Stderr, sanitizeCLIError(err))
				os.Exit(1)
			}
			return
		case "issue-token":
			if err := runIssueTokenCommand(os.Args[2:]); err != nil {
				// #nosec G705 -- CLI output only; control characters are stripped.
				fmt.Fprintln(os.Stderr, sanitizeCLIError(err))
				os.Exit(1)
			}
			return
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer logger.Sync() //nolint:errcheck

	if !strings.EqualFold(cfg.App.Env, "development") {
		gin.SetMode(gin.ReleaseMode)
	}

	store, ready, closeStore, err := newStore(context.Background(), cfg)
	if err != nil {
		logger.Fatal("init storage failed", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer closeStore()

	jwtPublicKey, err := jwtutil.LoadPublicKey(cfg.Auth.JWTPublicKey, cfg.Auth.JWTPublicKeyFile)
	if err != nil {
		logger.Warn("jwt public key unavailable, every request is anonymous", zap.Error(err))
		jwtPublicKey = nil
	}

	sseHub := sse.NewHub(logger)
	defer sseHub.Close()

	eventBus := event.NewBus()
	passSvc := service.NewViewingPassService(store, eventBus, logger)
	catalog := service.NewListingCatalog(store, logger)
	premiumSvc := service.NewPremiumService(store, catalog, eventBus, logger)
	rankingSvc := service.NewRankingService(premiumSvc, logger)
	revealPolicy := service.NewRevealPolicy(passSvc, logger)
	favoriteSvc := service.NewFavoriteService(store, catalog, logger)
	notificationSvc := service.NewNotificationService(store, sseHub, logger)
	notificationSvc.Subscribe(eventBus)

	cronRunner := scheduler.NewScheduler(scheduler.Deps{
		PremiumJob: schedulerjobs.NewPremiumJob(premiumSvc, logger),
		PassJob:    schedulerjobs.NewPassJob(passSvc, logger),
	}, scheduler.Specs{
		PremiumSweep: cfg.Scheduler.PremiumSweep,
		PassWarning:  cfg.Scheduler.PassExpiryWarning,
	}, logger)
	cronRunner.Start()
	defer func() {
		stopCtx := cronRunner.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(2 * time.Second):
		}
	}()

	revealLimiter := middleware.NewRateLimiter(cfg.RateLimit.RevealPerSecond, cfg.RateLimit.RevealBurst)
	stopLimiterCleanup := startLimiterCleanup(revealLimiter)
	defer stopLimiterCleanup()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(buildCORSMiddleware(cfg))
	router.Use(middleware.RequestLogger(logger))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	readyHandler := func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Database.PingTimeout)
		defer cancel()

		if err := ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"error":  "storage unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}

	router.GET("/health", healthHandler)
	router.GET("/health/ready", readyHandler)
	router.GET("/api/v1/health", healthHandler)
	router.GET("/api/v1/health/ready", readyHandler)

	internalMetrics := router.Group("/internal")
	internalMetrics.Use(middleware.InternalTokenAuth(cfg.Security.InternalToken))
	internalMetrics.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.RegisterV1Routes(router, api.Deps{
		PublicKey:       jwtPublicKey,
		Passes:          passSvc,
		Catalog:         catalog,
		Ranking:         rankingSvc,
		Premium:         premiumSvc,
		Reveal:          revealPolicy,
		Notifications:   notificationSvc,
		Favorites:       favoriteSvc,
		SSEHub:          sseHub,
		RevealLimiter:   revealLimiter,
		PaymentTestMode: cfg.Payment.TestMode,
		PageSize:        cfg.Listing.PageSize,
		Logger:          logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	logger.Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("payment_test_mode", cfg.Payment.TestMode),
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("build_time", BuildTime),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			logger.Fatal("server exited unexpectedly", zap.Error(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server failed", zap.Error(err))
	}
}

func newLogger(cfg Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.App.Env, "development") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return nil, fmt.Errorf("invalid log.level: %w", err)
		}
	}

	if cfg.Log.Encoding != "" {
		zapCfg.Encoding = cfg.Log.Encoding
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger failed: %w", err)
	}
	return logger, nil
}

// newStore returns the configured store, a readiness check and a close func.
func newStore(ctx context.Context, cfg Config) (repository.Store, func(context.Context) error, func(), error) {
	if !strings.EqualFold(cfg.Storage.Driver, storageDriverPostgres) {
		return memory.NewStore(), func(context.Context) error { return nil }, func() {}, nil
	}

	pool, err := newDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return postgres.NewStore(pool), pool.Ping, pool.Close, nil
}

func newDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database.url failed: %w", err)
	}

	const maxInt32 = int(^uint32(0) >> 1)
	if cfg.Database.MaxConns > maxInt32 {
		return nil, fmt.Errorf("database.max_conns must be <= %d", maxInt32)
	}

	poolCfg.MaxConns = int32(cfg.Database.MaxConns) // #nosec G115 -- validated upper bound above.

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.PingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	return pool, nil
}

func buildCORSMiddleware(cfg Config) gin.HandlerFunc {
	origins := make([]string, 0, len(cfg.CORS.AllowOrigins))
	for _, origin := range cfg.CORS.AllowOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		origins = append(origins, trimmed)
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Last-Event-ID"},
		ExposeHeaders:    []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func startLimiterCleanup(limiter *middleware.RateLimiter) func() {
	stopCh := make(chan struct{})
	ticker := time.NewTicker(time.Minute)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()

	return func() { close(stopCh) }
}

func loadPrivateKey(cfg Config) (*rsa.PrivateKey, error) {
	return jwtutil.LoadPrivateKey(cfg.Auth.JWTPrivateKey, cfg.Auth.JWTPrivateKeyFile)
}
