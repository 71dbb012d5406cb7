package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// ErrCacheMiss - ключа нет в кеше или он протух.
var ErrCacheMiss = errors.New("ключ не найден в кеше")

type CacheRepositoryInterface interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key ...string) error
}

// MemoryCacheRepository - кеш в памяти процесса, когда Redis не настроен.
// Срок жизни не продлевается при чтении, как и в Redis.
type MemoryCacheRepository struct {
	items *ttlcache.Cache[string, string]
}

func NewMemoryCacheRepository() *MemoryCacheRepository {
	return &MemoryCacheRepository{
		items: ttlcache.New[string, string](
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
	}
}

func (c *MemoryCacheRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}

	ttl := ttlcache.NoTTL
	if expiration > 0 {
		ttl = expiration
	}
	c.items.Set(key, s, ttl)
	return nil
}

func (c *MemoryCacheRepository) Get(ctx context.Context, key string) (string, error) {
	item := c.items.Get(key)
	if item == nil || item.IsExpired() {
		return "", ErrCacheMiss
	}
	return item.Value(), nil
}

func (c *MemoryCacheRepository) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		c.items.Delete(key)
	}
	return nil
}
