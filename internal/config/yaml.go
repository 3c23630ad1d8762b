package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	shipagentDirName        = ".shipagent"
	defaultConfigFileName   = "config.yaml"
	alternateConfigFileName = "config.yml"
)

type fileConfig struct {
	Version int              `yaml:"version"`
	Client  fileClientConfig `yaml:"client"`
	Server  fileServerConfig `yaml:"server"`
}

type fileClientConfig struct {
	ServerURL    string `yaml:"server_url"`
	SessionFile  string `yaml:"session_file"`
	HistoryLimit int    `yaml:"history_limit"`
	ArchiveDB    string `yaml:"archive_db"`
}

type fileServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	StoreDriver string `yaml:"store_driver"`
	StoreDSN    string `yaml:"store_dsn"`
	RedisAddr   string `yaml:"redis_addr"`
}

func loadFileConfig() (fileConfig, error) {
	path, ok, err := resolveConfigFilePath()
	if err != nil {
		return fileConfig{}, err
	}
	if !ok {
		return fileConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return cfg, nil
}

// resolveConfigFilePath checks the explicit env override, then a local
// .shipagent directory, then the home one.
func resolveConfigFilePath() (string, bool, error) {
	if explicit := strings.TrimSpace(os.Getenv(EnvConfigFile)); explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", false, fmt.Errorf("config file %s: %w", explicit, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config file %s is a directory", explicit)
		}
		return explicit, true, nil
	}

	candidates := []string{
		filepath.Join(shipagentDirName, defaultConfigFileName),
		filepath.Join(shipagentDirName, alternateConfigFileName),
	}
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		candidates = append(candidates,
			filepath.Join(home, shipagentDirName, defaultConfigFileName),
			filepath.Join(home, shipagentDirName, alternateConfigFileName),
		)
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", false, fmt.Errorf("config path %s is a directory", candidate)
			}
			return candidate, true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat config file %s: %w", candidate, err)
		}
	}
	return "", false, nil
}
