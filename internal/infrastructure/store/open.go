package store

import (
	"context"
	"fmt"
	"io"
)

// Options selects and configures a backend for Open
type Options struct {
	Backend       string // memory, redis or postgres
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open connects the configured backend. The returned closer releases the
// underlying connection.
func Open(ctx context.Context, opts Options) (KeyValueStore, io.Closer, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(), nopCloser{}, nil
	case "redis":
		client, err := ConnectRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client, opts.RedisPrefix), client, nil
	case "postgres":
		db, err := ConnectPostgres(opts.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		ps := NewPostgresStore(db)
		if err := ps.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return ps, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
