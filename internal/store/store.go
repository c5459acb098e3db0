// Package store persists the watchlist's symbol list. Quotes are never
// stored; they are refetched on startup.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	KindNone   = "none"
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindRedis  = "redis"

	DefaultRedisKey = "quotedash:watchlist"
)

// Backend is a symbol-list store that owns a resource.
type Backend interface {
	LoadSymbols(ctx context.Context) ([]string, error)
	SaveSymbols(ctx context.Context, symbols []string) error
	Close() error
}

type Options struct {
	Kind      string
	Path      string
	RedisAddr string
	RedisKey  string
}

// Open returns the configured backend, or nil for kind "none".
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(opts.Kind) {
	case "", KindNone:
		return nil, nil
	case KindFile:
		if opts.Path == "" {
			opts.Path = "data/watchlist.json"
		}
		return NewFileStore(opts.Path), nil
	case KindSQLite:
		s, err := OpenSQLite(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindRedis:
		addr := opts.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", addr, err)
		}
		return NewRedisStore(client, opts.RedisKey), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", opts.Kind)
	}
}

// clean normalizes and de-duplicates symbols, keeping first occurrence order.
func clean(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
