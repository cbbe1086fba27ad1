// Package gateway exposes the charting engine over WebSocket and REST:
// per-symbol chart subscriptions, frame push on persisted changes, and
// CRUD endpoints for candles, indicators, drawings, and settings.
package gateway

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"charting-systemv1/internal/chart"
	storeredis "charting-systemv1/internal/store/redis"

	"github.com/gorilla/websocket"
)

const backlogCapacity = 256

// FrameSource builds a render-ready chart frame for a symbol.
type FrameSource interface {
	BuildFrame(ctx context.Context, symbol string) (chart.Frame, error)
}

// UpdateFeed delivers per-symbol change notifications published by the
// cache layer. *storeredis.Cache satisfies it.
type UpdateFeed interface {
	Subscribe(ctx context.Context, symbol string) <-chan storeredis.UpdateEvent
}

// Hub manages WebSocket clients and fans out chart updates per symbol.
// It subscribes to the update feed lazily: a symbol's feed goroutine
// starts with its first subscriber and stops with its last.
type Hub struct {
	frames FrameSource
	feed   UpdateFeed
	log    *slog.Logger

	mu          sync.RWMutex
	clients     map[*Client]bool
	symbolSubs  map[string]map[*Client]bool
	seqs        map[string]int64
	backlogs    map[string]*Backlog
	feedCancels map[string]context.CancelFunc

	// OnClientCount is called with the connection count after every
	// register/unregister. Optional; used for the ws_clients gauge.
	OnClientCount func(n int)

	// OnBroadcast is called once per broadcast envelope. Optional.
	OnBroadcast func()
}

// NewHub creates a hub. feed may be nil when running without Redis;
// frame pushes then only happen on client request.
func NewHub(frames FrameSource, feed UpdateFeed) *Hub {
	return &Hub{
		frames:      frames,
		feed:        feed,
		log:         slog.Default().With("component", "gateway"),
		clients:     make(map[*Client]bool),
		symbolSubs:  make(map[string]map[*Client]bool),
		seqs:        make(map[string]int64),
		backlogs:    make(map[string]*Backlog),
		feedCancels: make(map[string]context.CancelFunc),
	}
}

// HandleConn registers an upgraded WebSocket connection and starts its
// read/write pumps.
func (h *Hub) HandleConn(conn *websocket.Conn) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
		subs: make(map[string]bool),
	}

	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("ws client connected", "total", count)
	if h.OnClientCount != nil {
		h.OnClientCount(count)
	}

	go client.writePump()
	go client.readPump()
}

// RemoveClient unregisters a client and releases its subscriptions.
func (h *Hub) RemoveClient(c *Client) {
	c.subMu.Lock()
	symbols := make([]string, 0, len(c.subs))
	for s := range c.subs {
		symbols = append(symbols, s)
	}
	c.subs = map[string]bool{}
	c.subMu.Unlock()

	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	for _, s := range symbols {
		h.dropSubLocked(c, s)
	}
	h.mu.Unlock()
	close(c.send)

	if h.OnClientCount != nil {
		h.OnClientCount(count)
	}
}

// subscribe attaches a client to a symbol, starting the symbol's feed
// goroutine if it is the first subscriber. Returns backlog envelopes
// newer than afterSeq for replay. Both sides of the subscription state
// (c.subs and symbolSubs) are maintained here so RemoveClient always
// sees every symbol the hub attached.
func (h *Hub) subscribe(c *Client, symbol string, afterSeq int64) [][]byte {
	c.subMu.Lock()
	c.subs[symbol] = true
	c.subMu.Unlock()

	h.mu.Lock()
	set, ok := h.symbolSubs[symbol]
	if !ok {
		set = make(map[*Client]bool)
		h.symbolSubs[symbol] = set
		if h.feed != nil {
			ctx, cancel := context.WithCancel(context.Background())
			h.feedCancels[symbol] = cancel
			go h.runFeed(ctx, symbol)
		}
	}
	set[c] = true
	backlog := h.backlogs[symbol]
	h.mu.Unlock()

	if backlog == nil || afterSeq < 0 {
		return nil
	}
	return backlog.After(afterSeq)
}

// unsubscribe detaches a client from a symbol.
func (h *Hub) unsubscribe(c *Client, symbol string) {
	c.subMu.Lock()
	delete(c.subs, symbol)
	c.subMu.Unlock()

	h.mu.Lock()
	h.dropSubLocked(c, symbol)
	h.mu.Unlock()
}

func (h *Hub) dropSubLocked(c *Client, symbol string) {
	set, ok := h.symbolSubs[symbol]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.symbolSubs, symbol)
		if cancel, ok := h.feedCancels[symbol]; ok {
			cancel()
			delete(h.feedCancels, symbol)
		}
	}
}

// runFeed consumes a symbol's update feed and pushes a rebuilt frame to
// its subscribers on every persisted change.
func (h *Hub) runFeed(ctx context.Context, symbol string) {
	ch := h.feed.Subscribe(ctx, symbol)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			h.pushFrame(ctx, symbol, ev.Kind)
		}
	}
}

// pushFrame rebuilds the symbol's frame and broadcasts it.
func (h *Hub) pushFrame(ctx context.Context, symbol, reason string) {
	frame, err := h.frames.BuildFrame(ctx, symbol)
	if err != nil {
		h.log.Warn("frame build failed", "symbol", symbol, "err", err)
		return
	}
	data := frame.JSON()
	if data == nil {
		return
	}
	h.Broadcast(symbol, reason, data)
}

// Broadcast sends a payload to all of a symbol's subscribers inside a
// hand-crafted envelope carrying a per-symbol sequence number, and
// records it in the symbol's backlog for reconnect replay.
func (h *Hub) Broadcast(symbol, kind string, data []byte) {
	now := time.Now().UTC()

	h.mu.Lock()
	h.seqs[symbol]++
	seq := h.seqs[symbol]
	backlog, ok := h.backlogs[symbol]
	if !ok {
		backlog = NewBacklog(backlogCapacity)
		h.backlogs[symbol] = backlog
	}
	h.mu.Unlock()

	buf := make([]byte, 0, len(symbol)+len(kind)+len(data)+96)
	buf = append(buf, `{"symbol":"`...)
	buf = append(buf, symbol...)
	buf = append(buf, `","kind":"`...)
	buf = append(buf, kind...)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, '}')

	backlog.Push(seq, buf)
	if h.OnBroadcast != nil {
		h.OnBroadcast()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.symbolSubs[symbol] {
		select {
		case client.send <- buf:
		default:
			// Slow consumer: drop, the backlog covers the gap.
		}
	}
}

// SymbolSeq returns the current broadcast sequence for a symbol.
func (h *Hub) SymbolSeq(symbol string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seqs[symbol]
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients following a symbol.
func (h *Hub) SubscriberCount(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.symbolSubs[symbol])
}
