package api

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RouterConfig tunes the router middleware
type RouterConfig struct {
	// RateLimitRPS of zero disables rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
	Debug          bool
}

// NewRouter builds the gin engine serving h
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(customRecoveryMiddleware(h.logger))
	router.Use(securityHeadersMiddleware())
	if cfg.RateLimitRPS > 0 {
		router.Use(rateLimitingMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}
	router.Use(loggingMiddleware())
	router.Use(metricsMiddleware(h))

	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/version", h.Version)

	router.POST("/e2/indication", h.HandleIndication)
	router.GET("/decisions", h.GetDecisions)
	router.GET("/stats", h.GetStats)

	api := router.Group("/api/v1")
	{
		api.POST("/e2/indication", h.HandleSimulationIndication)
		api.GET("/decisions/stream", h.hub.Serve)

		api.GET("/flightplans", h.ListFlightPlans)
		api.GET("/flightplans/:uav_id", h.GetFlightPlan)
		api.PUT("/flightplans/:uav_id", h.PutFlightPlan)
		api.DELETE("/flightplans/:uav_id", h.DeleteFlightPlan)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Endpoint not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
	})

	return router
}

func customRecoveryMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(os.Stderr, func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"error":     recovered,
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
			"client_ip": c.ClientIP(),
		}).Error("Panic recovered in UAV policy xApp")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
			Error: "Internal server error",
			Code:  "INTERNAL_ERROR",
		})
	})
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

func rateLimitingMiddleware(rps float64, burst int) gin.HandlerFunc {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": "1s",
			})
			return
		}
		c.Next()
	}
}

func loggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health", "/ready"},
	})
}

// metricsMiddleware labels requests by route template to bound cardinality
func metricsMiddleware(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		h.metrics.ObserveRequest(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
