package crm

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache guarda el access token del CRM con expiración. El cliente lo usa
// como caché de un solo escritor: quien encuentra el token vencido lo renueva.
type TokenCache interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
}

type memoryTokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewMemoryTokenCache() TokenCache {
	return &memoryTokenCache{}
}

func (c *memoryTokenCache) Get(_ context.Context) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || time.Now().UTC().After(c.expiresAt) {
		return "", false, nil
	}
	return c.token, true, nil
}

func (c *memoryTokenCache) Set(_ context.Context, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = time.Now().UTC().Add(ttl)
	return nil
}

type redisTokenCache struct {
	client *redis.Client
	key    string
}

// NewRedisTokenCache comparte el access token entre procesos vía redis.
func NewRedisTokenCache(client *redis.Client) TokenCache {
	if client == nil {
		return nil
	}
	return &redisTokenCache{
		client: client,
		key:    "crm:access_token",
	}
}

func (c *redisTokenCache) Get(ctx context.Context) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	token, err := c.client.Get(ctx, c.key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, token != "", nil
}

func (c *redisTokenCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return c.client.Set(ctx, c.key, token, ttl).Err()
}
