package broadcast

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WSHandler upgrades HTTP requests to websocket connections and
// streams one job's deltas to each client in publish order.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewWSHandler creates a websocket handler backed by the given hub.
// checkOrigin decides which Origin headers are accepted; nil allows
// same-origin requests only (the gorilla default).
func NewWSHandler(hub *Hub, checkOrigin func(r *http.Request) bool) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Serve upgrades the request and streams the job's deltas until the
// client disconnects or ctx is cancelled.
func (h *WSHandler) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, jobID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sub := h.hub.Subscribe(jobID)
	defer sub.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// Reader pump: the client sends nothing meaningful, but reading is
	// required to process pong frames and detect disconnects.
	g.Go(func() error {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					return err
				}
				return nil
			}
		}
	})

	// Writer pump: deltas in publish order, pings on idle.
	g.Go(func() error {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		defer func() {
			_ = conn.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			case ev, ok := <-sub.Events():
				if !ok {
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
					return nil
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(ev); err != nil {
					return err
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return err
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Debug().Err(err).Str("job_id", jobID).Msg("Websocket observer disconnected")
		return err
	}
	return nil
}
