package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nft-storefront/internal/domain"
	"nft-storefront/internal/session"
)

type connectRequest struct {
	Address string `json:"address" binding:"required"`
}

func (s *Server) handleConnect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	sess, err := s.sessions.Connect(c.Request.Context(), req.Address)
	if err != nil {
		if errors.Is(err, session.ErrInvalidAddress) {
			respondError(c, http.StatusBadRequest, "invalid_address", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "connect_failed", err)
		return
	}

	// Start loading the list so it is ready when the client asks.
	s.refreshInBackground(sess)

	c.JSON(http.StatusCreated, newSessionView(sess))
}

func (s *Server) handleCurrentSession(c *gin.Context) {
	sess := currentSession(c)
	if !sess.Connected() {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "session": newSessionView(sess)})
}

func (s *Server) handleDisconnect(c *gin.Context) {
	sess := currentSession(c)
	if err := s.sessions.Disconnect(c.Request.Context(), sess.ID); err != nil {
		respondError(c, http.StatusInternalServerError, "disconnect_failed", err)
		return
	}
	s.boards.Drop(sess.ID)
	c.Status(http.StatusNoContent)
}

// refreshInBackground issues a run before returning, so a request arriving
// right after joins it instead of starting another.
func (s *Server) refreshInBackground(sess *domain.Session) {
	board := s.boards.Board(sess.ID)
	seq, run := board.Launch(sess, false)
	if run == nil {
		return
	}
	go func() {
		ctx, cancel := s.backgroundContext()
		defer cancel()
		run(ctx)
		snap := board.Wait(ctx, seq)
		s.logger.Debug("background refresh settled",
			zap.String("session_id", sess.ID),
			zap.Uint64("seq", snap.Seq),
			zap.Int("collections", len(snap.Collections)),
		)
	}()
}

func (s *Server) backgroundContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.baseCtx, s.refreshTimeout)
}
