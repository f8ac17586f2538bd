// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acquisitions/api/internal/admission"
	"github.com/acquisitions/api/internal/auth"
	"github.com/acquisitions/api/internal/config"
	"github.com/acquisitions/api/internal/core"
	"github.com/acquisitions/api/internal/health"
	"github.com/acquisitions/api/internal/metrics"
	"github.com/acquisitions/api/internal/middleware"
	"github.com/acquisitions/api/internal/server"
	"github.com/acquisitions/api/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.RunMigrations {
		if err := db.Migrate(ctx, logger); err != nil {
			return err
		}
	}

	if err := metrics.RegisterDBStats(db.DB.DB, "postgres"); err != nil {
		logger.Warn("failed to register db stats collector", "error", err)
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	if cfg.JWT.GenerateKeys {
		generated, keyErr := auth.EnsureKeyPair(
			cfg.JWT.PrivateKeyPath,
			cfg.JWT.PublicKeyPath,
		)
		if keyErr != nil {
			return keyErr
		}
		if generated {
			logger.Warn("generated development signing key pair",
				"private_key", cfg.JWT.PrivateKeyPath,
			)
		}
	}

	revocations := auth.NewRedisRevocationStore(redis.Client)

	jwtManager, err := auth.NewJWTManager(cfg.JWT, revocations)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	hasher, err := core.NewHasher(cfg.Password)
	if err != nil {
		return err
	}

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, hasher)
	userHandler := user.NewHandler(userSvc, user.NewAccessController(), logger)

	authSvc := auth.NewService(userSvc, hasher, jwtManager, revocations, logger)
	authHandler := auth.NewHandler(
		authSvc,
		auth.NewCookieOptions(cfg.Cookie, cfg.IsProduction()),
		logger,
	)

	var fallback *admission.LocalLimiter
	if cfg.Admission.LocalFallback {
		fallback = admission.NewLocalLimiter()
		defer fallback.Close()
	}

	guard := admission.NewCompositeGuard(
		admission.NewShield(),
		admission.NewBotDetector(),
		admission.NewRedisLimiter(redis.Client, fallback),
	)
	adm := admission.New(guard, admission.Options{
		Tiers:  admission.TiersFromConfig(cfg.Admission.Tiers),
		Policy: admission.FailurePolicy(cfg.Admission.FailurePolicy),
		Mode:   admission.Mode(cfg.Admission.Mode),
		Logger: logger,
	})
	logger.Info("admission configured",
		"mode", cfg.Admission.Mode,
		"failure_policy", cfg.Admission.FailurePolicy,
		"local_fallback", cfg.Admission.LocalFallback,
	)

	healthHandler := health.NewHandler(db, redis)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP(trustedProxies))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	router.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // best-effort response write
		_, _ = w.Write([]byte("Hello from acquisitions server!"))
	})

	healthHandler.RegisterRoutes(router)
	router.Handle("/metrics", metrics.Handler())
	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	cookieName := cfg.Cookie.Name
	authenticator := middleware.Authenticator(jwtManager, cookieName)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(jwtManager, cookieName))
		r.Use(middleware.Admission(adm))

		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			core.OK(w, map[string]string{
				"message": "Welcome to the Acquisitions API",
				"version": cfg.App.Version,
			})
		})

		authHandler.RegisterRoutes(r)
		userHandler.RegisterRoutes(r, authenticator)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
