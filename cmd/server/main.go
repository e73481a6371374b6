package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	_ "github.com/quintet/api/docs" // Swagger docs
	"github.com/quintet/api/internal/config"
	"github.com/quintet/api/internal/database"
	"github.com/quintet/api/internal/eventbus"
	"github.com/quintet/api/internal/generation"
	"github.com/quintet/api/internal/handlers"
	"github.com/quintet/api/internal/llm"
	"github.com/quintet/api/internal/metrics"
	"github.com/quintet/api/internal/middleware"
	"github.com/quintet/api/internal/ratelimit"
	"github.com/quintet/api/internal/resilience"
	"github.com/quintet/api/internal/router"
	"github.com/quintet/api/internal/telemetry"
)

// @title Quintet API
// @version 0.1.0
// @description Generates five independently styled single-file web applications from one prompt.
// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapConfig := zap.NewProductionConfig()
	if !cfg.IsProduction() {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Quintet API starting...",
		zap.String("version", "0.1.0"),
		zap.String("environment", cfg.Environment),
	)

	shutdownTelemetry, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.TracingEndpoint)
	if err != nil {
		logger.Error("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTelemetry(ctx); err != nil {
				logger.Error("failed to shutdown telemetry", zap.Error(err))
			}
		}()
	}

	healthDeps := map[string]handlers.Pinger{
		"database": nil,
		"redis":    nil,
		"nats":     nil,
	}
	var genOpts []generation.Option

	// Run log (optional)
	if cfg.DatabaseURL != "" {
		if err := database.RunMigrations(cfg.DatabaseURL, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		healthDeps["database"] = db
		genOpts = append(genOpts, generation.WithRunRecorder(db))
	}

	// Redis (optional, required by the redis rate limit backend)
	var rdb *database.Redis
	if cfg.RedisURL != "" {
		rdb, err = database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		healthDeps["redis"] = rdb
	}

	// Event bus (optional)
	if cfg.NATS.URL != "" {
		nc, err := eventbus.Connect(cfg.NATS.URL, logger)
		if err != nil {
			logger.Error("failed to connect to NATS, generation events disabled", zap.Error(err))
		} else {
			defer nc.Drain()
			healthDeps["nats"] = handlers.PingFunc(func(ctx context.Context) error {
				if !nc.IsConnected() {
					return errors.New("not connected")
				}
				return nc.FlushWithContext(ctx)
			})

			var publisher eventbus.Publisher = eventbus.NewNATSPublisher(nc, cfg.NATS.Subject)
			if cfg.NATS.JetStream {
				js, err := eventbus.NewJetStreamPublisher(nc, cfg.NATS.Stream, cfg.NATS.Subject)
				if err != nil {
					logger.Error("failed to init JetStream, falling back to core NATS", zap.Error(err))
				} else {
					publisher = js
				}
			}
			genOpts = append(genOpts, generation.WithPublisher(publisher))
			logger.Info("connected to NATS", zap.String("subject", cfg.NATS.Subject))
		}
	}

	// Upstream provider
	breaker := resilience.NewBreaker(
		cfg.Breaker.FailureThreshold,
		cfg.Breaker.SuccessThreshold,
		cfg.Breaker.Timeout,
		resilience.WithStateChange(func(from, to resilience.State) {
			metrics.CircuitState.Set(float64(to))
			logger.Warn("upstream circuit state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}),
	)

	var provider llm.Provider
	if cfg.HasCredential() {
		p, err := llm.NewOpenAIProvider(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		})
		if err != nil {
			logger.Fatal("failed to create LLM provider", zap.Error(err))
		}
		provider = p
	} else {
		logger.Warn("GROQ_API_KEY not configured, generation requests will fail")
	}

	genOpts = append(genOpts,
		generation.WithBreaker(breaker),
		generation.WithModel(cfg.LLM.Model),
		generation.WithLogger(logger),
	)
	svc := generation.NewService(provider, genOpts...)

	// Rate limiting
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		switch cfg.RateLimit.Backend {
		case "redis":
			limiter = ratelimit.NewRedis(rdb.Client(), "quintet:ratelimit", cfg.RateLimit.Window)
		default:
			limiter = ratelimit.NewMemory(cfg.RateLimit.Window)
		}
		logger.Info("rate limiting enabled",
			zap.String("backend", cfg.RateLimit.Backend),
			zap.Int("requests", cfg.RateLimit.Requests),
			zap.Duration("window", cfg.RateLimit.Window),
		)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsPath := ""
	if cfg.MetricsEnabled {
		metricsPath = cfg.MetricsPath
	}

	engine := router.New(router.Deps{
		Logger:      logger,
		ServiceName: cfg.ServiceName,
		Generation:  handlers.NewGenerationHandler(svc, logger),
		Health: handlers.NewHealthHandler(healthDeps, svc.Configured(), func() string {
			return breaker.State().String()
		}),
		Limiter:            limiter,
		RateLimit:          middleware.RateLimitConfig{Limit: cfg.RateLimit.Requests},
		Breaker:            breaker,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsPath:        metricsPath,
		EnableDocs:         !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}
