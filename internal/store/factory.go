package store

import (
	"fmt"
	"strings"

	"github.com/HueCodes/shipagent/internal/config"
)

// Open builds the history store named by the server config.
func Open(cfg config.Server) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreDriver)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewGormStore("sqlite", cfg.StoreDSN)
	case "postgres":
		return NewGormStore("postgres", cfg.StoreDSN)
	case "redis":
		return NewRedisStore(cfg.RedisAddr)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
