package controller

import (
	"context"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/osmcz/mapcampaign/pkg/hub"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: In production, restrict to specific origins
		return true
	},
}

// ClientMessage represents messages sent by WebSocket clients.
type ClientMessage struct {
	Type string `json:"type"` // only "chat_message" for now
	User string `json:"user"`
	Text string `json:"text"`
}

// HandleWebSocket upgrades the connection and attaches it to the hub.
//
// Protocol:
// Client sends: {"type": "chat_message", "user": "...", "text": "..."}
//
// Server sends hub events as {"type": ..., "payload": ...}:
// - {"type": "user_count", "payload": 3}
// - {"type": "chat_message", "payload": {"user": ..., "text": ..., "timestamp": ...}}
// - {"type": "vote_update", "payload": {"ideaId": ..., "votes": ...}}
// - {"type": "new_idea", "payload": {...}}
// - {"type": "stats_update", "payload": {...}}
//
// On connect the client receives the connected-user count and a chronological
// replay of the most recent chat messages; that replay is the only history a
// late subscriber gets.
func (c *Controller) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.App.Logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			c.App.Logger.Debug("Failed to close WebSocket connection", zap.Error(err))
		}
	}()

	c.App.Logger.Info("WebSocket client connected", zap.String("remote_addr", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := c.App.Hub.Subscribe()
	defer func() {
		c.App.Hub.Unsubscribe(sub)
		c.App.Hub.Broadcast(hub.Event{Type: hub.EventUserCount, Payload: c.App.Hub.Count()})
	}()

	// Connect-time catch-up goes straight to the connection before the writer
	// starts draining sub.C, so the replay lands ahead of live events and its
	// length is not bounded by the subscriber buffer.
	catchup := []hub.Event{{Type: hub.EventUserCount, Payload: c.App.Hub.Count()}}
	for _, msg := range c.App.Chat.Recent(c.App.Config.ChatReplay) {
		catchup = append(catchup, hub.Event{Type: hub.EventChatMessage, Payload: msg})
	}
	for _, ev := range catchup {
		if err := conn.WriteJSON(ev); err != nil {
			c.App.Logger.Debug("Failed to write catch-up message", zap.Error(err))
			return
		}
	}

	// Everyone else learns about the new connection.
	c.App.Hub.BroadcastExcept(sub.ID, hub.Event{Type: hub.EventUserCount, Payload: c.App.Hub.Count()})

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				c.App.Logger.Error("Panic in websocket writer",
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
					zap.String("remote_addr", r.RemoteAddr))
				cancel()
			}
		}()
		c.writeEvents(ctx, conn, sub)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				c.App.Logger.Error("Panic in websocket pinger",
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
					zap.String("remote_addr", r.RemoteAddr))
				cancel()
			}
		}()
		c.sendPings(ctx, conn)
	}()

	// Blocks until the connection closes.
	c.readClientMessages(ctx, conn, cancel, sub)

	cancel()
	wg.Wait()

	c.App.Logger.Info("WebSocket client disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// writeEvents forwards hub events to the WebSocket connection.
func (c *Controller) writeEvents(ctx context.Context, conn *websocket.Conn, sub *hub.Subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.C:
			if err := conn.WriteJSON(ev); err != nil {
				c.App.Logger.Debug("Failed to write WebSocket message", zap.Error(err))
				return
			}
		}
	}
}

// sendPings sends periodic WebSocket ping frames to keep the connection alive.
func (c *Controller) sendPings(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				c.App.Logger.Debug("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// readClientMessages relays chat messages and detects connection closure.
func (c *Controller) readClientMessages(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc, sub *hub.Subscriber) {
	if err := conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		c.App.Logger.Error("Failed to set read deadline", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.App.Logger.Error("WebSocket read error", zap.Error(err))
				}
				cancel()
				return
			}
			if err := conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
				c.App.Logger.Error("Failed to reset read deadline", zap.Error(err))
				return
			}

			if msg.Type != hub.EventChatMessage {
				continue
			}
			stored, ok := c.App.Chat.Append(msg.User, msg.Text)
			if !ok {
				continue
			}
			// Relay to everyone except the sender.
			c.App.Hub.BroadcastExcept(sub.ID, hub.Event{Type: hub.EventChatMessage, Payload: stored})
		}
	}
}
