package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"storefront/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const (
	catalogKey     = "catalog:in-stock"
	idempotencyTTL = 24 * time.Hour
)

// CatalogCache keeps the in-stock product listing as one JSON value.
type CatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCatalogCache(rdb *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{rdb: rdb, ttl: ttl}
}

// GetInStock reports false when nothing is cached.
func (c *CatalogCache) GetInStock(ctx context.Context) ([]*entity.Product, bool, error) {
	val, err := c.rdb.Get(ctx, catalogKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logger.Debug().Msg("Catalog not found in cache")
			return nil, false, nil
		}
		return nil, false, err
	}

	var products []*entity.Product
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		return nil, false, fmt.Errorf("decode cached catalog: %w", err)
	}
	return products, true, nil
}

func (c *CatalogCache) SetInStock(ctx context.Context, products []*entity.Product) error {
	if products == nil {
		products = []*entity.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, catalogKey, data, c.ttl).Err()
}

func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, catalogKey).Err()
}

// IdempotencyStore claims submission keys for 24 hours.
type IdempotencyStore struct {
	rdb *redis.Client
}

func NewIdempotencyStore(rdb *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotent-key:%s", key)
}

// Claim returns false when the key was already claimed.
func (s *IdempotencyStore) Claim(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, idempotencyKey(key), "exists", idempotencyTTL).Result()
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, idempotencyKey(key)).Err()
}

// SessionStore keeps one token per user under session:<uid>.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func sessionKey(userID int) string {
	return fmt.Sprintf("session:%d", userID)
}

func (s *SessionStore) Save(ctx context.Context, userID int, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, sessionKey(userID), token, ttl).Err()
}

// Get returns an empty token when the user has no session.
func (s *SessionStore) Get(ctx context.Context, userID int) (string, error) {
	token, err := s.rdb.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

func (s *SessionStore) Delete(ctx context.Context, userID int) error {
	return s.rdb.Del(ctx, sessionKey(userID)).Err()
}
