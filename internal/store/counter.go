package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisCounter hands out invoice sequence numbers with INCR, so every
// instance sees a single sequence per year
type RedisCounter struct {
	client redis.UniversalClient
}

// NewRedisCounter creates a counter stored under INVOICE:COUNTER:<year>
func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client}
}

// Next returns the next number for year, starting at 1
func (c *RedisCounter) Next(ctx context.Context, year int) (int64, error) {
	n, err := c.client.Incr(ctx, fmt.Sprintf("INVOICE:COUNTER:%d", year)).Result()
	if err != nil {
		return 0, fmt.Errorf("increment invoice counter: %w", err)
	}
	return n, nil
}

// FileCounter keeps one counter file per year in dir. It serializes callers
// within this process only; separate processes sharing dir can still collide.
type FileCounter struct {
	dir string
	mu  sync.Mutex
}

// NewFileCounter creates a counter writing counter-<year>.txt files in dir
func NewFileCounter(dir string) *FileCounter {
	return &FileCounter{dir: dir}
}

// Next reads, increments and persists the counter for year
func (c *FileCounter) Next(_ context.Context, year int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return 0, fmt.Errorf("create counter directory: %w", err)
	}
	path := filepath.Join(c.dir, fmt.Sprintf("counter-%d.txt", year))

	var current int64
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		current, err = strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse invoice counter %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return 0, fmt.Errorf("read invoice counter: %w", err)
	}

	next := current + 1
	if err := os.WriteFile(path, []byte(strconv.FormatInt(next, 10)), 0o644); err != nil {
		return 0, fmt.Errorf("write invoice counter: %w", err)
	}
	return next, nil
}
