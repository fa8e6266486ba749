package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"nft-storefront/internal/catalog"
	"nft-storefront/internal/domain"
)

// handleCollections returns the caller's board. Logged-out callers get an
// empty list. A board that never loaded is refreshed before answering.
func (s *Server) handleCollections(c *gin.Context) {
	sess := currentSession(c)
	if !sess.Connected() {
		c.JSON(http.StatusOK, s.newCollectionsView(nil, catalog.Snapshot{
			Collections: []domain.EnrichedCollection{},
		}))
		return
	}

	board := s.boards.Board(sess.ID)
	snap := board.Snapshot()
	if snap.Loading {
		ctx, cancel := s.refreshContext(c)
		defer cancel()
		snap = board.Refresh(ctx, sess, false)
	}
	c.JSON(http.StatusOK, s.newCollectionsView(sess, snap))
}

// handleRefresh is the pull-to-refresh action.
func (s *Server) handleRefresh(c *gin.Context) {
	sess := currentSession(c)

	ctx, cancel := s.refreshContext(c)
	defer cancel()
	snap := s.boards.Board(sess.ID).Refresh(ctx, sess, true)

	c.JSON(http.StatusOK, s.newCollectionsView(sess, snap))
}

// refreshContext outlives a client hang-up so an abandoned request does not
// leave the board in an error state.
func (s *Server) refreshContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), s.refreshTimeout)
}
