package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/clipforge/clipforge/internal/httputil"
)

const pingInterval = 15 * time.Second

// handleProgressSocket streams progress events for one video over a
// websocket. Keepalive is a protocol-level ping, never a progress event,
// so clients only ever decode real pipeline updates.
func (s *Server) handleProgressSocket(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "video_id is required")
		return
	}
	claims, err := s.validateBearer(r)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("WS: accept failed for %s: %v", videoID, err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := s.broker.Subscribe(ctx, videoID)
	if err != nil {
		log.Printf("WS: subscribe failed for %s: %v", videoID, err)
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}

	log.Printf("WS: user %s watching %s", claims.UserID, videoID)

	// Drain client frames so pongs and close frames are processed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}
