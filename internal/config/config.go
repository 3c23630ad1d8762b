// Package config resolves settings for both binaries: defaults, then an
// optional YAML config file, then environment variables, strongest last.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

const (
	EnvConfigFile = "SHIPAGENT_CONFIG_FILE"

	EnvServerURL    = "SHIPAGENT_SERVER_URL"
	EnvSessionFile  = "SHIPAGENT_SESSION_FILE"
	EnvHistoryLimit = "SHIPAGENT_HISTORY_LIMIT"
	EnvArchiveDB    = "SHIPAGENT_ARCHIVE_DB"

	EnvListenAddr  = "SHIPAGENT_LISTEN_ADDR"
	EnvStoreDriver = "SHIPAGENT_STORE_DRIVER"
	EnvStoreDSN    = "SHIPAGENT_STORE_DSN"
	EnvRedisAddr   = "SHIPAGENT_REDIS_ADDR"
	EnvMockSeed    = "SHIPAGENT_MOCK_SEED"
)

const (
	DefaultServerURL    = "http://127.0.0.1:8080"
	DefaultHistoryLimit = 50
	DefaultListenAddr   = ":8080"
	DefaultStoreDriver  = "memory"
)

// Client configures the shipagent CLI.
type Client struct {
	ServerURL    string
	SessionFile  string
	HistoryLimit int
	ArchiveDB    string
}

// Server configures shipagentd.
type Server struct {
	ListenAddr  string
	StoreDriver string
	StoreDSN    string
	RedisAddr   string
	MockSeed    int64
}

// ClientFromEnv builds the CLI config from defaults, config file, then env.
func ClientFromEnv() (Client, error) {
	cfg := Client{
		ServerURL:    DefaultServerURL,
		HistoryLimit: DefaultHistoryLimit,
	}

	file, err := loadFileConfig()
	if err != nil {
		return Client{}, err
	}
	applyString(&cfg.ServerURL, file.Client.ServerURL)
	applyString(&cfg.SessionFile, file.Client.SessionFile)
	if file.Client.HistoryLimit > 0 {
		cfg.HistoryLimit = file.Client.HistoryLimit
	}
	applyString(&cfg.ArchiveDB, file.Client.ArchiveDB)

	applyString(&cfg.ServerURL, os.Getenv(EnvServerURL))
	applyString(&cfg.SessionFile, os.Getenv(EnvSessionFile))
	if raw := strings.TrimSpace(os.Getenv(EnvHistoryLimit)); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return Client{}, fmt.Errorf("%s must be a non-negative integer, got %q", EnvHistoryLimit, raw)
		}
		cfg.HistoryLimit = limit
	}
	applyString(&cfg.ArchiveDB, os.Getenv(EnvArchiveDB))

	return cfg, nil
}

func (c Client) Validate() error {
	parsed, err := url.Parse(strings.TrimSpace(c.ServerURL))
	if err != nil {
		return fmt.Errorf("server url is invalid: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("server url %q must include scheme and host", c.ServerURL)
	}
	return nil
}

// ServerFromEnv builds the daemon config from defaults, config file, then env.
func ServerFromEnv() (Server, error) {
	cfg := Server{
		ListenAddr:  DefaultListenAddr,
		StoreDriver: DefaultStoreDriver,
	}

	file, err := loadFileConfig()
	if err != nil {
		return Server{}, err
	}
	applyString(&cfg.ListenAddr, file.Server.ListenAddr)
	applyString(&cfg.StoreDriver, file.Server.StoreDriver)
	applyString(&cfg.StoreDSN, file.Server.StoreDSN)
	applyString(&cfg.RedisAddr, file.Server.RedisAddr)

	applyString(&cfg.ListenAddr, os.Getenv(EnvListenAddr))
	applyString(&cfg.StoreDriver, os.Getenv(EnvStoreDriver))
	applyString(&cfg.StoreDSN, os.Getenv(EnvStoreDSN))
	applyString(&cfg.RedisAddr, os.Getenv(EnvRedisAddr))
	if raw := strings.TrimSpace(os.Getenv(EnvMockSeed)); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Server{}, fmt.Errorf("%s must be an integer, got %q", EnvMockSeed, raw)
		}
		cfg.MockSeed = seed
	}

	return cfg, nil
}

func (s Server) Validate() error {
	if strings.TrimSpace(s.ListenAddr) == "" {
		return fmt.Errorf("listen addr must not be empty")
	}
	switch strings.ToLower(strings.TrimSpace(s.StoreDriver)) {
	case "memory", "sqlite", "postgres":
	case "redis":
		if strings.TrimSpace(s.RedisAddr) == "" {
			return fmt.Errorf("%s is required for the redis store driver", EnvRedisAddr)
		}
	default:
		return fmt.Errorf("unsupported store driver %q", s.StoreDriver)
	}
	if strings.EqualFold(strings.TrimSpace(s.StoreDriver), "postgres") && strings.TrimSpace(s.StoreDSN) == "" {
		return fmt.Errorf("%s is required for the postgres store driver", EnvStoreDSN)
	}
	return nil
}

func applyString(dst *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*dst = trimmed
	}
}
