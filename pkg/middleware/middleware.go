package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/vas-service/pkg/metrics"
)

// Config holds middleware configuration
type Config struct {
	Logger         *slog.Logger
	ServiceName    string
	EnableCORS     bool
	EnableTracing  bool
	Metrics        *metrics.Metrics
	TrustedProxies []string
}

// DefaultConfig enables CORS and tracing; metrics stay off until Metrics is set
func DefaultConfig(serviceName string, logger *slog.Logger) *Config {
	return &Config{
		Logger:        logger,
		ServiceName:   serviceName,
		EnableCORS:    true,
		EnableTracing: true,
	}
}

// Setup installs the middleware chain. ErrorHandler runs innermost so the
// request log, the span and the metrics all see the rendered status.
func Setup(router *gin.Engine, config *Config) {
	InitValidator()

	if len(config.TrustedProxies) > 0 {
		_ = router.SetTrustedProxies(config.TrustedProxies)
	}

	router.Use(Recovery(config.Logger), RequestID(), CorrelationID())
	if config.EnableTracing {
		router.Use(Tracing(config.ServiceName))
	}
	if config.Metrics != nil {
		router.Use(Metrics(config.Metrics))
	}
	router.Use(Logger(config.Logger))
	if config.EnableCORS {
		router.Use(CORS())
	}
	router.Use(ContentType(), ErrorHandler(config.Logger))

	router.NoRoute(routeError(http.StatusNotFound, "ROUTE_NOT_FOUND", "The requested resource was not found"))
	router.NoMethod(routeError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "The request method is not supported for this resource"))
	router.HandleMethodNotAllowed = true
}

// CORS lets browser terminals served from another origin call the API
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+HeaderRequestID+", "+HeaderCorrelationID)
		h.Set("Access-Control-Expose-Headers", HeaderRequestID+", "+HeaderCorrelationID)
		h.Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ReadinessCheck is one dependency probed by /ready
type ReadinessCheck func(ctx context.Context) error

// RegisterProbes mounts /health, /ready and, when m is set, /metrics.
// /ready answers 503 naming every failing check.
func RegisterProbes(router *gin.Engine, serviceName string, m *metrics.Metrics, checks map[string]ReadinessCheck) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		failed := gin.H{}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "service": serviceName, "checks": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": serviceName})
	})

	if m != nil {
		router.GET("/metrics", MetricsEndpoint(m))
	}
}

func routeError(status int, code, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(status, APIErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: GetRequestID(c),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Path:      c.Request.URL.Path,
		})
	}
}
