package handlers

import (
	"net/http"
	"time"

	"plant_monitor/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12
)

type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Access is gated by the API key middleware, not by origin.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// snapshotStream writes a frame only when the store holds a snapshot the
// client has not seen yet.
type snapshotStream struct {
	conn     *websocket.Conn
	sent     bool
	lastSeen time.Time
}

func (s *snapshotStream) send(snap models.Snapshot) (bool, error) {
	if s.sent && !snap.UpdatedAt.After(s.lastSeen) {
		return false, nil
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(wsEnvelope{Type: "snapshot", Data: snap}); err != nil {
		return false, err
	}
	s.sent = true
	s.lastSeen = snap.UpdatedAt
	return true, nil
}

// wsConnect streams the current snapshot on connect and then every newer one
// the monitor publishes. Idle clients only see pings.
func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// subscribe before the first frame so no publish falls in between
	updates, unsubscribe := h.services.Snapshots.Subscribe()
	defer unsubscribe()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	closed := make(chan struct{})
	go h.watchClient(conn, closed)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	stream := &snapshotStream{conn: conn}
	if _, err := stream.send(h.services.Snapshots.Current()); err != nil {
		if h.log != nil {
			h.log.Infow("ws_snapshot_write_failed", "err", err)
		}
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-updates:
			snap := h.services.Snapshots.Current()
			if _, err := stream.send(snap); err != nil {
				if h.log != nil {
					h.log.Infow("ws_snapshot_write_failed", "err", err, "status", string(snap.Status))
				}
				return
			}
		}
	}
}

// watchClient consumes client frames so pongs are processed, and closes
// closed once the peer goes away.
func (h *Handler) watchClient(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Debugw("ws_client_gone", "err", err)
			}
			return
		}
	}
}
