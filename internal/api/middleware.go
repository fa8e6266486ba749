package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nft-storefront/internal/domain"
	"nft-storefront/internal/session"
)

// SessionHeader carries the session id. WebSocket clients may use the
// "session" query parameter instead.
const SessionHeader = "X-Session-ID"

const sessionKey = "session"

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Error("request", fields...)
			return
		}
		s.logger.Debug("request", fields...)
	}
}

// loadSession attaches the caller's session, if any. Unknown or expired ids
// are treated as logged out and lose their board.
func (s *Server) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sessionID(c)
		if id == "" {
			c.Next()
			return
		}

		sess, err := s.sessions.Get(c.Request.Context(), id)
		switch {
		case errors.Is(err, session.ErrNotConnected):
			s.boards.Drop(id)
		case err != nil:
			respondError(c, http.StatusInternalServerError, "session_lookup_failed", err)
			c.Abort()
			return
		default:
			c.Set(sessionKey, sess)
		}
		c.Next()
	}
}

// requireSession rejects callers without a connected wallet.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentSession(c).Connected() {
			respondError(c, http.StatusUnauthorized, "not_connected", errors.New("connect a wallet first"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(SessionHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(c.Query("session"))
}

func currentSession(c *gin.Context) *domain.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*domain.Session)
	return sess
}
