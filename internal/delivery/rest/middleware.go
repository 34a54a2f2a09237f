package rest

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestObserver records served requests.
type RequestObserver interface {
	ObserveRequest(method, endpoint string, status int, elapsed time.Duration)
}

// RequestID propagates the caller's X-Request-ID or assigns a new one.
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

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logger writes one structured entry per request.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := zapcore.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case status >= http.StatusBadRequest:
			level = zapcore.WarnLevel
		}

		fields := []zap.Field{
			zap.String("request_id", requestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if userID := currentUser(c); userID != 0 {
			fields = append(fields, zap.Int64("user_id", userID))
		}

		logger.Log(level, "http request", fields...)
	}
}

// Recovery turns panics into 500 responses and logs them.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.String("request_id", requestID(c)),
			zap.Any("panic", recovered),
			zap.Stack("stack"),
		)
		abortWithError(c, http.StatusInternalServerError, "internal", "internal error")
	})
}

// Metrics reports every request to observer, labelled by route template.
func Metrics(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		observer.ObserveRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows maxRequests per window for each authenticated user,
// falling back to the client IP. Idle entries are swept once per window.
func RateLimiter(maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var (
		mu        sync.Mutex
		visitors  = make(map[string]*visitor)
		lastSweep = time.Now()
	)
	every := rate.Every(window / time.Duration(maxRequests))

	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID := currentUser(c); userID != 0 {
			key = "user:" + strconv.FormatInt(userID, 10)
		}

		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > window {
			for k, v := range visitors {
				if now.Sub(v.lastSeen) > 3*window {
					delete(visitors, k)
				}
			}
			lastSweep = now
		}

		v, ok := visitors[key]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(every, maxRequests)}
			visitors[key] = v
		}
		v.lastSeen = now
		mu.Unlock()

		if !v.limiter.Allow() {
			abortWithError(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		c.Next()
	}
}
