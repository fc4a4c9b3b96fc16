// Package store persists the credential, the project list and auxiliary
// settings in a key-value backend.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/songsmith-api/internal/config"
)

// KV is a string key-value backend
type KV interface {
	// Get returns the stored value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes a key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds and connects the backend named by cfg.StoreDriver
func Open(ctx context.Context, cfg *config.Config) (KV, error) {
	driver := strings.ToLower(cfg.StoreDriver)
	switch driver {
	case "", "memory":
		return NewMemoryKV(), nil
	case "redis":
		kv := NewRedisKV(cfg.RedisAddr, cfg.RedisPassword)
		if err := kv.Start(ctx); err != nil {
			return nil, err
		}
		return kv, nil
	case "sqlite", "postgres", "mysql":
		kv, err := NewGormKV(driver, cfg.StoreDSN, !cfg.IsProduction())
		if err != nil {
			return nil, err
		}
		if err := kv.Start(ctx); err != nil {
			return nil, err
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("store: unknown driver: %s", cfg.StoreDriver)
	}
}
