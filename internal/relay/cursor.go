package relay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// MemoryCursor держит курсор только в памяти процесса
type MemoryCursor struct {
	mu     sync.Mutex
	cursor uint64
	set    bool
}

func (c *MemoryCursor) Load(_ context.Context) (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor, c.set, nil
}

func (c *MemoryCursor) Save(_ context.Context, cursor uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor, c.set = cursor, true
	return nil
}

// RedisCursor хранит курсор ретранслятора в ключе Redis
type RedisCursor struct {
	client *redis.Client
	key    string
}

func NewRedisCursor(client *redis.Client, relayName string) *RedisCursor {
	return &RedisCursor{client: client, key: "relay:" + relayName + ":cursor"}
}

func (c *RedisCursor) Load(ctx context.Context) (uint64, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load relay cursor: %w", err)
	}
	cursor, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupted relay cursor %q: %w", raw, err)
	}
	return cursor, true, nil
}

func (c *RedisCursor) Save(ctx context.Context, cursor uint64) error {
	if err := c.client.Set(ctx, c.key, cursor, 0).Err(); err != nil {
		return fmt.Errorf("failed to save relay cursor: %w", err)
	}
	return nil
}
