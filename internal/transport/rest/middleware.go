package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clinic/backend/internal/auth"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(headerRequestID))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ctxRequestID, rid)
		c.Header(headerRequestID, rid)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", c.GetString(ctxRequestID)),
		}
		if p := auth.FromContext(c.Request.Context()); p.Authenticated() {
			attrs = append(attrs, slog.String("role", string(p.Role)))
		}

		switch {
		case status >= http.StatusInternalServerError:
			s.log.Error("request handled", attrs...)
		case status >= http.StatusBadRequest:
			s.log.Warn("request handled", attrs...)
		default:
			s.log.Info("request handled", attrs...)
		}
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.metrics.RequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		s.metrics.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, ok := ctx.Deadline(); ok {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authenticate attaches the bearer token's principal to the request context.
// Requests without a token continue as anonymous; a bad token is rejected.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid authorization format"))
			return
		}

		p, err := s.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			s.log.Info("token rejected", slog.Any("err", err), slog.String("request_id", c.GetString(ctxRequestID)))
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid or expired token. Log in again."))
			return
		}

		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func principal(c *gin.Context) auth.Principal {
	return auth.FromContext(c.Request.Context())
}
