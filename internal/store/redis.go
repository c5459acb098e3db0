package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the symbol list as a JSON array under a single key with no
// expiry.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (r *RedisStore) LoadSymbols(ctx context.Context) ([]string, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get watchlist from redis: %w", err)
	}
	var symbols []string
	if err := json.Unmarshal(data, &symbols); err != nil {
		return nil, fmt.Errorf("failed to unmarshal watchlist: %w", err)
	}
	return clean(symbols), nil
}

func (r *RedisStore) SaveSymbols(ctx context.Context, symbols []string) error {
	data, err := json.Marshal(clean(symbols))
	if err != nil {
		return fmt.Errorf("failed to marshal watchlist: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save watchlist to redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
