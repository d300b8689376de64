// Package ratelimit bounds how often a single client may hit an endpoint.
//
// Two backends share the Limiter interface and the same fixed-window
// semantics. Memory keeps the counters inside the process and only bounds
// abuse against a single instance. Redis keeps them in a shared store so every
// instance sees the same budget.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether the client identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Backend names accepted by New
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// New builds a limiter of max requests per window for the given backend.
// The redis backend requires a client; name namespaces its keys.
func New(backend, name string, max int, window time.Duration, client redis.UniversalClient) (Limiter, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemory(max, window), nil
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("rate limit backend %q requires a redis client", backend)
		}
		return NewRedis(client, name, max, window), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", backend)
	}
}

// Memory is an in-process per-client fixed-window counter
type Memory struct {
	max     int
	window  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	clients map[string]*clientWindow
}

// clientWindow counts one client's requests since start
type clientWindow struct {
	count int
	start time.Time
}

// NewMemory allows max requests per client in each window, counted from the
// client's first request
func NewMemory(max int, w time.Duration) *Memory {
	if max < 1 {
		max = 1
	}
	return &Memory{
		max:     max,
		window:  w,
		now:     time.Now,
		clients: make(map[string]*clientWindow),
	}
}

// WithClock replaces the time source, for tests
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Allow counts one request for key. Rejected requests do not extend the window.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.clients[key]
	if !ok || now.Sub(entry.start) >= m.window {
		if !ok {
			m.cleanupLocked(now)
		}
		entry = &clientWindow{start: now}
		m.clients[key] = entry
	}
	if entry.count >= m.max {
		return false, nil
	}
	entry.count++
	return true, nil
}

// Len reports how many clients are tracked
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *Memory) cleanupLocked(now time.Time) {
	for key, entry := range m.clients {
		if now.Sub(entry.start) >= m.window {
			delete(m.clients, key)
		}
	}
}

// Redis is a fixed-window counter shared by all instances
type Redis struct {
	client redis.UniversalClient
	name   string
	max    int64
	window time.Duration
}

// NewRedis creates a shared limiter storing counters under RATELIMIT:<name>:<key>
func NewRedis(client redis.UniversalClient, name string, max int, window time.Duration) *Redis {
	return &Redis{client: client, name: name, max: int64(max), window: window}
}

// Allow increments the client's counter and starts the window on first hit
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("RATELIMIT:%s:%s", r.name, key)

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return false, fmt.Errorf("set rate limit window: %w", err)
		}
	}
	return count <= r.max, nil
}

// Disabled admits every request
type Disabled struct{}

// Allow always returns true
func (Disabled) Allow(context.Context, string) (bool, error) { return true, nil }
