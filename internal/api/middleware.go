package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/steemit/birthday-payments/internal/cache"
	"github.com/steemit/birthday-payments/pkg/config"
	"github.com/steemit/birthday-payments/pkg/logging"
	"github.com/steemit/birthday-payments/pkg/telemetry"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestLogger returns logger annotated with the request and trace IDs
func requestLogger(c *gin.Context, logger *zap.Logger) *zap.Logger {
	logger = logging.WithRequestID(logger, c.GetString(requestIDKey))
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		logger = logging.WithTraceID(logger, sc.TraceID().String())
	}
	return logger
}

// RequestID propagates or assigns the X-Request-ID of each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// Recovery turns a panic into the generic 500 envelope
func Recovery(development bool, logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		err := fmt.Errorf("%v", recovered)
		requestLogger(c, logger).Error("Panic recovered",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"))
		sendError(c, &Error{Code: http.StatusInternalServerError, Message: msgPanic, Err: err}, development)
	})
}

// Telemetry starts a server span for each request and records its duration
func Telemetry() gin.HandlerFunc {
	duration, _ := telemetry.Meter().Float64Histogram("http.server.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("ms"))

	return func(c *gin.Context) {
		start := time.Now()

		ctx, span := telemetry.StartSpan(c.Request.Context(), c.Request.Method+" "+c.Request.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.target", c.Request.URL.Path),
				attribute.String("http.request_id", c.GetString(requestIDKey)),
			))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		span.SetName(c.Request.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		duration.Record(ctx, float64(time.Since(start).Microseconds())/1000,
			metric.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.Int("http.status_code", status),
			))
	}
}

// AccessLog writes one structured line per request
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
		}

		log := requestLogger(c, logger)
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("Request failed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("Request rejected", fields...)
		default:
			log.Info("Request handled", fields...)
		}
	}
}

// SecureHeaders sets the standard browser hardening headers
func SecureHeaders() gin.HandlerFunc {
	return secure.New(secure.Config{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "no-referrer",
		IENoOpen:              true,
	})
}

// CORS allows the configured frontend origin with credentials
func CORS(cfg config.ServerConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// BodyLimit caps the size of request bodies
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// RateLimit allows max requests per client IP in each fixed window. It is a
// no-op without a cache and lets requests through when the cache fails.
func RateLimit(redisCache *cache.Cache, max int, window time.Duration, development bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !redisCache.Enabled() || max <= 0 {
			c.Next()
			return
		}

		res, err := redisCache.HitWindow(c.Request.Context(), "ratelimit:"+cache.HashKey(c.ClientIP()), window)
		if err != nil {
			requestLogger(c, logger).Warn("Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(max) - res.Count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(res.ResetIn.Round(time.Second)/time.Second), 10))

		if res.Count > int64(max) {
			c.Header("Retry-After", strconv.FormatInt(int64(res.ResetIn.Round(time.Second)/time.Second), 10))
			sendError(c, NewError(http.StatusTooManyRequests, msgTooManyRequests), development)
			return
		}
		c.Next()
	}
}
