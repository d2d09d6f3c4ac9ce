package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced at the gateway, together with authentication.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wire frames
type serverFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type clientFrame struct {
	Action string `json:"action"`
}

// wsConn adapts a websocket to the registry's Conn interface. The mutex
// serializes writers; the router and the greeting path may race otherwise.
type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) Send(ev Event) error {
	return w.writeFrame(ev.Type, ev.Payload)
}

func (w *wsConn) writeFrame(event string, data json.RawMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(writeWait))
	return w.c.WriteJSON(serverFrame{Event: event, Data: data})
}

// WSHandler upgrades HTTP connections into live-channel sessions. The read
// loop only accepts room-join frames; everything the client receives flows
// through the router.
type WSHandler struct {
	Registry *Registry
	Log      *zap.Logger
	Metrics  *metrics.Registry
}

// Serve runs the session until the connection drops. Every exit path goes
// through the deferred Unbind, so no membership outlives the socket.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request, userID, role string) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	conn := &wsConn{c: raw}
	h.Registry.Register(conn)
	h.Metrics.LiveConnections.Inc()
	defer func() {
		h.Registry.Unbind(conn)
		h.Metrics.LiveConnections.Dec()
		_ = raw.Close()
	}()

	_ = conn.writeFrame("connection_response", json.RawMessage(`{"status":"connected"}`))

	raw.SetReadLimit(1024)
	_ = raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go pingLoop(raw, done)

	for {
		var f clientFrame
		if err := raw.ReadJSON(&f); err != nil {
			// normal close, timeout and protocol errors all land here
			return
		}
		switch f.Action {
		case "join_user_room":
			h.Registry.BindUser(conn, userID)
		case "join_sellers_room":
			if role == "seller" || role == "admin" {
				h.Registry.BindSellerRole(conn)
			}
		}
	}
}

func pingLoop(c *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
