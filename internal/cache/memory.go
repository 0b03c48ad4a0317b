package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryClient implementa Client sobre patrickmn/go-cache.
// Útil para desarrollo y testing; no compartido entre procesos.
type memoryClient struct {
	prefix string
	inner  *gocache.Cache
	mu     sync.Mutex // serializa Incr (read-modify-write)
}

// NewMemory crea un cliente de cache en memoria.
func NewMemory(prefix string) *memoryClient {
	return &memoryClient{
		prefix: prefix,
		inner:  gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (c *memoryClient) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *memoryClient) Get(ctx context.Context, key string) (string, error) {
	v, ok := c.inner.Get(c.key(key))
	if !ok {
		return "", ErrNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", ErrNotFound
	}
	return s, nil
}

func (c *memoryClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.inner.Set(c.key(key), value, ttl)
	return nil
}

func (c *memoryClient) Delete(ctx context.Context, key string) error {
	c.inner.Delete(c.key(key))
	return nil
}

func (c *memoryClient) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := c.key(key)
	v, exp, ok := c.inner.GetWithExpiration(k)
	if !ok {
		if ttl <= 0 {
			ttl = gocache.NoExpiration
		}
		c.inner.Set(k, "1", ttl)
		return 1, nil
	}

	n, _ := strconv.ParseInt(v.(string), 10, 64)
	n++
	// Conservar la expiración original: la ventana no se renueva. Una key
	// que quedó sin expiración recibe el TTL ahora, igual que el backend
	// Redis.
	remaining := gocache.NoExpiration
	switch {
	case !exp.IsZero():
		remaining = time.Until(exp)
	case ttl > 0:
		remaining = ttl
	}
	c.inner.Set(k, strconv.FormatInt(n, 10), remaining)
	return n, nil
}

func (c *memoryClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	_, exp, ok := c.inner.GetWithExpiration(c.key(key))
	if !ok {
		return 0, ErrNotFound
	}
	if exp.IsZero() {
		return 0, nil
	}
	return time.Until(exp), nil
}

func (c *memoryClient) Ping(ctx context.Context) error { return nil }

func (c *memoryClient) Close() error {
	c.inner.Flush()
	return nil
}
