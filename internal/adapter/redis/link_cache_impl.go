package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/headline-scraper/internal/entity"
	"github.com/user/headline-scraper/pkg/utils"
)

const linkStatusPrefix = "linkstatus:"

// LinkCacheImpl provides a concrete implementation for the LinkStatusCache interface using Redis.
type LinkCacheImpl struct {
	client *redis.Client
}

// NewLinkCache creates a new instance of LinkCacheImpl.
func NewLinkCache(client *redis.Client) *LinkCacheImpl {
	return &LinkCacheImpl{client: client}
}

// Connect creates a client and verifies the server answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// generateKey creates a consistent Redis key for a given URL by hashing it.
func (r *LinkCacheImpl) generateKey(url string) string {
	return linkStatusPrefix + utils.HashURL(url)
}

func (r *LinkCacheImpl) Get(ctx context.Context, url string) (entity.LinkStatus, bool, error) {
	val, err := r.client.Get(ctx, r.generateKey(url)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entity.LinkStatus(val), true, nil
}

// Set stores the status with an expiry; SETEX is atomic.
func (r *LinkCacheImpl) Set(ctx context.Context, url string, status entity.LinkStatus, expiry time.Duration) error {
	return r.client.SetEx(ctx, r.generateKey(url), string(status), expiry).Err()
}
