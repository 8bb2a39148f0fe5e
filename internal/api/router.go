package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/birthday-payments/internal/cache"
	"github.com/steemit/birthday-payments/internal/payments"
	"github.com/steemit/birthday-payments/pkg/config"
	"github.com/steemit/birthday-payments/pkg/logging"
)

// Router sets up API routes
type Router struct {
	payments *PaymentHandler
	service  *payments.Service
	cache    *cache.Cache
	cfg      config.ServerConfig
	logger   *zap.Logger
}

// NewRouter creates a new API router. redisCache may be nil.
func NewRouter(service *payments.Service, redisCache *cache.Cache, cfg config.ServerConfig) *Router {
	logger := logging.WithComponent("api-router")
	return &Router{
		payments: NewPaymentHandler(service, cfg.IsDevelopment(), logger),
		service:  service,
		cache:    redisCache,
		cfg:      cfg,
		logger:   logger,
	}
}

// Engine builds a gin engine with the middleware chain and all routes
func (r *Router) Engine() *gin.Engine {
	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.Use(
		Recovery(r.cfg.IsDevelopment(), r.logger),
		RequestID(),
		Telemetry(),
		AccessLog(r.logger),
		SecureHeaders(),
		CORS(r.cfg),
		BodyLimit(r.cfg.BodyLimitBytes),
	)
	r.SetupRoutes(engine)
	return engine
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	api := engine.Group("/api")
	api.Use(RateLimit(r.cache, r.cfg.RateLimitMax, r.cfg.RateLimitWindow, r.cfg.IsDevelopment(), r.logger))

	group := api.Group("/payments")
	group.GET("", r.payments.List)
	group.GET("/", r.payments.List)
	group.POST("", r.payments.Create)
	group.POST("/", r.payments.Create)
	group.GET("/stats/summary", r.payments.Summary)
	group.GET("/:id", r.payments.Get)
	group.PUT("/:id", r.payments.Update)
	group.DELETE("/:id", r.payments.Delete)

	// Health check endpoints
	api.GET("/health", r.healthHandler)
	api.GET("/health/ready", r.readyHandler)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, Response{Success: false, Message: msgRouteNotFound})
	})
}

// healthHandler reports that the process is serving
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"message": "Birthday App Backend is running",
	})
}

// readyHandler checks the store and cache connections
func (r *Router) readyHandler(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}
	for name, err := range r.service.Health(c.Request.Context()) {
		if err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			r.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			continue
		}
		checks[name] = "ok"
	}

	state := "OK"
	if status != http.StatusOK {
		state = "UNAVAILABLE"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
	})
}
