package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/bizdoc-services-backend/internal/metrics"
	"github.com/onegreenvn/bizdoc-services-backend/internal/tracing"
)

// quietPaths are polled by health checks and scrapers
var quietPaths = []string{"/health", "/metrics", "/activity/stream"}

func isQuiet(path string) bool {
	for _, p := range quietPaths {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

// Logger returns a middleware that logs requests using logrus
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if isQuiet(path) {
			return
		}

		statusCode := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		fields := logrus.Fields{
			"status":    statusCode,
			"latency":   time.Since(start),
			"client_ip": c.ClientIP(),
			"method":    c.Request.Method,
			"path":      path,
		}
		if userID := UserID(c); userID != "" {
			fields["user_id"] = userID
		}
		if traceID := tracing.TraceID(c.Request.Context()); traceID != "" {
			fields["trace_id"] = traceID
		}
		entry := logrus.WithFields(fields)

		// Only log errors (status >= 400)
		if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		}
	}
}

// Metrics records request counts and latency by route template
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
