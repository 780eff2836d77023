package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// The API binds to localhost by default and serves local UIs only.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWS streams the state view as JSON: once on connect, then after
// every change. A slow client skips intermediate states.
func handleWS(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			deps.log().Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		updates, unsubscribe := deps.Store.Subscribe()
		defer unsubscribe()

		// The reader only handles control frames and notices disconnects.
		closed := make(chan struct{})
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func(v any) bool {
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(v); err != nil {
				deps.log().Debug("websocket write failed", "error", err)
				return false
			}
			return true
		}

		if !send(NewStateView(deps.Store.Snapshot(), deps.Store.Now())) {
			return
		}

		ping := time.NewTicker(wsPingPeriod)
		defer ping.Stop()
		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case st, ok := <-updates:
				if !ok {
					return
				}
				if !send(NewStateView(st, deps.Store.Now())) {
					return
				}
			case <-ping.C:
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
