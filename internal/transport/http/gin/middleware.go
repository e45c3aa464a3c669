package httpgin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kirinyoku/hallbook/internal/auth"
	redisx "github.com/kirinyoku/hallbook/internal/redis"
	redisrepo "github.com/kirinyoku/hallbook/internal/repository/redis"
	"github.com/kirinyoku/hallbook/internal/service/booking"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set("request_id", reqID)

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Idempotency-Key",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"ETag",
			"Cache-Control",
			"Retry-After",
			"Idempotency-Key",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(cfg)
}

func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		c.Next()

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		status := c.Writer.Status()
		reqID, _ := c.Get("request_id")

		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("ip", c.ClientIP()),
			slog.String("ua", c.Request.UserAgent()),
			slog.Any("request_id", reqID),
			slog.Duration("latency", latency),
			slog.Int("bytes_out", c.Writer.Size()),
		}

		// convert []slog.Attr to []any for slog.Group variadic parameter
		anyAttrs := make([]any, len(attrs))
		for i := range attrs {
			anyAttrs[i] = attrs[i]
		}

		if len(c.Errors) > 0 {
			logger.Error("http", slog.Group("http", anyAttrs...))
		} else {
			logger.Info("http", slog.Group("http", anyAttrs...))
		}
	}
}

// TokenVerifier resolves a bearer token to an actor id.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// AuthMiddleware requires a valid bearer token and stores the actor on the
// request context.
func AuthMiddleware(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")

		actorID, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrMissingToken) {
				msg = "missing bearer token"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: msg,
				Kind:  booking.KindUnauthorized,
			})
			return
		}

		c.Set("actor_id", actorID)
		c.Request = c.Request.WithContext(auth.WithActor(c.Request.Context(), actorID))

		c.Next()
	}
}

// Limiter is satisfied by redisrepo.SlidingWindowLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string) (redisrepo.Decision, error)
}

// RateLimitMiddleware caps requests per actor, or per client IP when the
// request is anonymous. Limiter failures let the request through.
func RateLimitMiddleware(l Limiter, scope string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := "ip:" + c.ClientIP()
		if actorID, ok := auth.ActorFromContext(c.Request.Context()); ok {
			id = "actor:" + strconv.FormatInt(actorID, 10)
		}

		d, err := l.Allow(c.Request.Context(), redisx.KeyRateLimit(scope, id))
		if err != nil {
			logger.Warn("rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		if !d.Allowed {
			secs := int(d.RetryAfter.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
			return
		}

		c.Next()
	}
}
