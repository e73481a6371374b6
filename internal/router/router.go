package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/quintet/api/internal/handlers"
	"github.com/quintet/api/internal/middleware"
	"github.com/quintet/api/internal/ratelimit"
	"github.com/quintet/api/internal/resilience"
)

// Deps is everything the HTTP surface is wired from
type Deps struct {
	Logger      *zap.Logger
	ServiceName string

	Generation *handlers.GenerationHandler
	Health     *handlers.HealthHandler

	Limiter   ratelimit.Limiter // nil disables rate limiting
	RateLimit middleware.RateLimitConfig
	Breaker   *resilience.Breaker

	CORSAllowedOrigins []string
	MetricsPath        string // empty disables /metrics
	EnableDocs         bool
}

// New builds the gin engine with middleware and routes
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.CORS(d.CORSAllowedOrigins))
	if d.MetricsPath != "" {
		r.Use(middleware.Metrics())
		r.GET(d.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	if d.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/health", d.Health.Health)
	r.GET("/health/deep", d.Health.DeepHealth)

	api := r.Group("/api")
	api.GET("/variants", d.Generation.ListVariants)

	generate := api.Group("/generate")
	if d.Limiter != nil {
		generate.Use(middleware.RateLimit(d.Limiter, d.RateLimit, d.Logger))
	}
	if d.Breaker != nil {
		generate.Use(middleware.CircuitBreaker(d.Breaker))
	}
	{
		generate.POST("", d.Generation.Generate)
		generate.POST("/variant", d.Generation.GenerateVariant)
	}

	return r
}
