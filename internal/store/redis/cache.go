// Package redis provides a read-through cache in front of the durable
// chart store, plus pub/sub fan-out of per-symbol change notifications.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"charting-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	drawingsKeyPrefix = "chart:drawings:"
	settingsKeyPrefix = "chart:settings:"
	updatesChPrefix   = "chart:updates:"

	defaultCacheTTL = 30 * time.Minute
)

// Config configures the Redis cache layer.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // cache entry TTL; zero means defaultCacheTTL
}

// UpdateEvent is the envelope published on chart:updates:{symbol} after a
// successful save, so other panes and processes can refresh.
type UpdateEvent struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"` // "drawings" | "settings"
	TS     int64  `json:"ts"`
}

// Cache is a read-through chart store: loads hit Redis first and fall
// back to the wrapped store on miss, saves write through and invalidate.
// Cache failures degrade to the durable store rather than erroring.
type Cache struct {
	client *goredis.Client
	next   model.ChartStore
	ttl    time.Duration
	log    *slog.Logger
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// New connects to Redis and wraps next with a read-through cache.
func New(cfg Config, next model.ChartStore) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	logger := slog.Default().With("component", "rediscache")
	logger.Info("connected", "addr", cfg.Addr)
	return &Cache{client: client, next: next, ttl: ttl, log: logger}, nil
}

// LoadDrawings serves from cache when possible, otherwise loads from the
// durable store and backfills the cache entry.
func (c *Cache) LoadDrawings(ctx context.Context, symbol string) ([]model.Drawing, error) {
	key := drawingsKeyPrefix + symbol
	data, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var drawings []model.Drawing
		if jsonErr := json.Unmarshal([]byte(data), &drawings); jsonErr == nil {
			return drawings, nil
		}
		// Poisoned entry: drop it and fall through to the store.
		c.client.Del(ctx, key)
	} else if err != goredis.Nil {
		c.log.Warn("cache read failed", "key", key, "err", err)
	}

	drawings, err := c.next.LoadDrawings(ctx, symbol)
	if err != nil {
		return nil, err
	}
	c.backfill(ctx, key, drawings)
	return drawings, nil
}

// SaveDrawings writes through to the durable store, refreshes the cache
// entry, and publishes an update event for the symbol.
func (c *Cache) SaveDrawings(ctx context.Context, symbol string, drawings []model.Drawing) error {
	if err := c.next.SaveDrawings(ctx, symbol, drawings); err != nil {
		return err
	}
	c.backfill(ctx, drawingsKeyPrefix+symbol, drawings)
	c.publishUpdate(ctx, symbol, "drawings")
	return nil
}

// LoadSettings serves from cache when possible, falling back to the
// durable store (which itself defaults on absence).
func (c *Cache) LoadSettings(ctx context.Context, symbol string) (model.ChartSettings, error) {
	key := settingsKeyPrefix + symbol
	data, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var settings model.ChartSettings
		if jsonErr := json.Unmarshal([]byte(data), &settings); jsonErr == nil {
			return settings, nil
		}
		c.client.Del(ctx, key)
	} else if err != goredis.Nil {
		c.log.Warn("cache read failed", "key", key, "err", err)
	}

	settings, err := c.next.LoadSettings(ctx, symbol)
	if err != nil {
		return model.ChartSettings{}, err
	}
	c.backfill(ctx, key, settings)
	return settings, nil
}

// SaveSettings writes through and publishes an update event.
func (c *Cache) SaveSettings(ctx context.Context, symbol string, settings model.ChartSettings) error {
	if err := c.next.SaveSettings(ctx, symbol, settings); err != nil {
		return err
	}
	c.backfill(ctx, settingsKeyPrefix+symbol, settings)
	c.publishUpdate(ctx, symbol, "settings")
	return nil
}

// Subscribe returns a channel of update events for a symbol. The channel
// closes when ctx is cancelled.
func (c *Cache) Subscribe(ctx context.Context, symbol string) <-chan UpdateEvent {
	sub := c.client.Subscribe(ctx, updatesChPrefix+symbol)
	out := make(chan UpdateEvent, 8)

	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev UpdateEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					c.log.Warn("malformed update event", "payload", msg.Payload, "err", err)
					continue
				}
				select {
				case out <- ev:
				default:
					// Slow consumer: drop rather than block the pubsub reader.
				}
			}
		}
	}()
	return out
}

func (c *Cache) backfill(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", "key", key, "err", err)
	}
}

func (c *Cache) publishUpdate(ctx context.Context, symbol, kind string) {
	ev := UpdateEvent{Symbol: symbol, Kind: kind, TS: time.Now().Unix()}
	data, _ := json.Marshal(ev)
	if err := c.client.Publish(ctx, updatesChPrefix+symbol, string(data)).Err(); err != nil {
		c.log.Warn("publish update failed", "symbol", symbol, "err", err)
	}
}

// Close closes the Redis client and the wrapped store.
func (c *Cache) Close() error {
	if err := c.client.Close(); err != nil {
		c.next.Close()
		return err
	}
	return c.next.Close()
}
