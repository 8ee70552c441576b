package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quell-mod/quell-go/internal/audit"
	"github.com/quell-mod/quell-go/internal/sse"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// Manager serves the live moderation feed over WebSocket.
type Manager struct {
	hub    *sse.Hub
	store  audit.Store
	logger *slog.Logger
}

// NewManager creates a WebSocket manager fed by the event hub.
func NewManager(hub *sse.Hub, store audit.Store, logger *slog.Logger) *Manager {
	return &Manager{hub: hub, store: store, logger: logger}
}

// HandleWS upgrades the connection, hydrates it with current stats, then
// streams moderation events until the client disconnects.
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	m.hydrate(r.Context(), conn)

	events, cancel := m.hub.Subscribe()
	defer cancel()

	// Reader goroutine: we ignore client messages but need the read loop to
	// detect disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(map[string]any{
				"type": ev.Type,
				"data": json.RawMessage(ev.Data),
			}); err != nil {
				return
			}
		}
	}
}

// hydrate sends the aggregate counters so a freshly connected dashboard has
// something to render before the first live event.
func (m *Manager) hydrate(ctx context.Context, conn *websocket.Conn) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("websocket hydrate failed", "err", err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	m.sendJSON(conn, map[string]any{
		"type":           "stats",
		"total_checked":  stats.TotalChecked,
		"spam_count":     stats.SpamCount,
		"blocked_count":  stats.BlockedCount,
		"fallback_count": stats.FallbackCount,
	})
}

func (m *Manager) sendJSON(conn *websocket.Conn, v any) {
	if err := conn.WriteJSON(v); err != nil {
		m.logger.Debug("websocket write failed", "err", err)
	}
}
