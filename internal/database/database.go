package database

import (
	"context"
	"fmt"
)

// KV is the key-value persistence port the meal store writes through
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context, key string) error
	Close() error
}

// Config selects and configures a KV backend
type Config struct {
	Type string // "sqlite", "redis" or "memory"
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open creates the backend named by cfg.Type
func Open(ctx context.Context, cfg Config) (KV, error) {
	switch cfg.Type {
	case "", "sqlite":
		return NewSQLiteKV(cfg.Path)
	case "redis":
		return NewRedisKV(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case "memory":
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
