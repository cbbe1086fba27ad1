package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Per-client symbol subscriptions.
	subMu sync.RWMutex
	subs  map[string]bool
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Write coalescing: batch queued messages into a single
			// frame with newline separators.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		c.hub.log.Info("ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var base struct {
			Type string `json:"type"`
			Ping int64  `json:"ping"`
		}
		if json.Unmarshal(msg, &base) != nil {
			continue
		}

		switch base.Type {
		case "SUBSCRIBE":
			var subMsg SubscribeMsg
			if err := json.Unmarshal(msg, &subMsg); err != nil {
				c.sendError("", "invalid SUBSCRIBE: "+err.Error())
				continue
			}
			c.handleSubscribe(subMsg)

		case "UNSUBSCRIBE":
			var unsubMsg UnsubscribeMsg
			if err := json.Unmarshal(msg, &unsubMsg); err != nil {
				continue
			}
			c.handleUnsubscribe(unsubMsg)

		default:
			if base.Ping > 0 {
				pong, _ := json.Marshal(map[string]any{
					"type":      "pong",
					"ping":      base.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
				c.enqueue(pong)
			}
		}
	}
}

// handleSubscribe attaches the client to a symbol and sends either the
// missed backlog (reconnect) or a full frame snapshot.
func (c *Client) handleSubscribe(msg SubscribeMsg) {
	if msg.Symbol == "" {
		c.sendError(msg.ReqID, "symbol is required")
		return
	}

	afterSeq := int64(-1)
	if msg.LastSeq > 0 {
		afterSeq = msg.LastSeq
	}
	backlog := c.hub.subscribe(c, msg.Symbol, afterSeq)
	c.hub.log.Info("ws client subscribed", "symbol", msg.Symbol, "replay", len(backlog))

	if len(backlog) > 0 {
		for _, env := range backlog {
			c.enqueue(env)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	frame, err := c.hub.frames.BuildFrame(ctx, msg.Symbol)
	if err != nil {
		c.sendError(msg.ReqID, "snapshot build failed: "+err.Error())
		return
	}

	snapshot, err := json.Marshal(map[string]any{
		"type":   "snapshot",
		"req_id": msg.ReqID,
		"symbol": msg.Symbol,
		"seq":    c.hub.SymbolSeq(msg.Symbol),
		"frame":  frame,
	})
	if err != nil {
		c.sendError(msg.ReqID, "snapshot encode failed")
		return
	}
	c.enqueue(snapshot)
}

func (c *Client) handleUnsubscribe(msg UnsubscribeMsg) {
	if msg.Symbol == "" {
		return
	}
	c.hub.unsubscribe(c, msg.Symbol)
	c.hub.log.Info("ws client unsubscribed", "symbol", msg.Symbol)
}

func (c *Client) sendError(reqID, text string) {
	data, _ := json.Marshal(ErrorMsg{Type: "error", ReqID: reqID, Error: text})
	c.enqueue(data)
}

// enqueue is a non-blocking send; drops when the client is backed up.
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}
