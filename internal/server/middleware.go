package server

import (
	"strconv"
	"strings"

	"github.com/brikx/coach/internal/auditcontext"
	"github.com/brikx/coach/internal/observability/logger"
	"github.com/brikx/coach/internal/usercontext"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	contextUserIDKey = "user_id"
	actorTypeAPIKey  = "api_key"
)

// APIKeyRequired resolves the calling user from an "Authorization: Bearer <key>" header.
// Every route behind it is scoped to that user.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := s.apiKeySvc.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := usercontext.WithUserID(c.Request.Context(), userID)
		ctx = auditcontext.WithActor(ctx, actorTypeAPIKey, userID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserIDKey, userID.String())
		c.Next()
	}
}

// RateLimit throttles requests per user when the limiter is enabled.
func (s *Server) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		userID, ok := usercontext.UserIDFromContext(ctx)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		result, err := s.limiter.AllowUser(ctx, userID.String())
		if err != nil {
			logger.FromContext(ctx).Warn("rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			c.Header("Retry-After", result.RetryAfterHeader())
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
