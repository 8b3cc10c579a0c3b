package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gsainfoteam/chatbot-be/engine/session"
	"github.com/gsainfoteam/chatbot-be/pkg/logger"
)

const sessionContextKey = "widget_session"

// SessionVerifier resolves bearer tokens to widget sessions.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*session.Session, error)
}

// LoggerMiddleware attaches the logger to the request context and logs
// request completion.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), log))
		c.Next()
		log.Info("Request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// CORSMiddleware allows the configured widget origins. With no origins
// configured, cross-origin requests are denied.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		allowed := false
		for _, candidate := range allowedOrigins {
			if candidate == "*" || candidate == origin {
				allowed = true
				break
			}
		}
		if origin != "" && allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// AuthMiddleware requires a valid bearer session token and stores the
// resolved session on the gin context.
func AuthMiddleware(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}
		sess, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrInvalidToken) {
				respondError(c, http.StatusUnauthorized, "INVALID_SESSION", "invalid or expired session")
				return
			}
			logger.FromContext(c.Request.Context()).Error("Session verification failed", "error", err)
			respondError(c, http.StatusInternalServerError, "SESSION_STORE_ERROR", "session verification failed")
			return
		}
		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func sessionFrom(c *gin.Context) (*session.Session, bool) {
	value, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	sess, ok := value.(*session.Session)
	return sess, ok
}
