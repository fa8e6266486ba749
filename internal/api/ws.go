package api

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// wsMessage is a client command on the collections feed.
type wsMessage struct {
	Type string `json:"type"`
}

// handleCollectionsWS streams board snapshots. The client may send
// {"type":"refresh"} to pull a new list.
func (s *Server) handleCollectionsWS(c *gin.Context) {
	sess := currentSession(c)
	if !sess.Connected() {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := s.logger.With(zap.String("session_id", sess.ID))
	board := s.boards.Board(sess.ID)
	updates, unsubscribe := board.Subscribe()
	defer unsubscribe()

	snap := board.Snapshot()
	if err := s.writeSnapshot(conn, s.newCollectionsView(sess, snap)); err != nil {
		return
	}
	if snap.Loading {
		s.refreshInBackground(sess)
	}

	// Reader: handles pongs and refresh commands, signals on close.
	var guard refreshGuard
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(4096)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("websocket read failed", zap.Error(err))
				}
				return
			}
			var msg wsMessage
			if json.Unmarshal(data, &msg) == nil && msg.Type == "refresh" {
				started := guard.Go(func() {
					ctx, cancel := s.backgroundContext()
					defer cancel()
					board.Refresh(ctx, sess, true)
				})
				if !started {
					logger.Debug("refresh already running, command ignored")
				}
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-s.baseCtx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteWait))
			return
		case snap, ok := <-updates:
			if !ok {
				// Board dropped, the session was disconnected.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "disconnected"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := s.writeSnapshot(conn, s.newCollectionsView(sess, snap)); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// refreshGuard runs at most one refresh at a time for a connection.
type refreshGuard struct {
	busy atomic.Bool
}

// Go starts fn unless a previous fn is still running.
func (g *refreshGuard) Go(fn func()) bool {
	if !g.busy.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer g.busy.Store(false)
		fn()
	}()
	return true
}

func (s *Server) writeSnapshot(conn *websocket.Conn, v collectionsView) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}
