package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// UserConfig is the user-level configuration: a bearer auth token and the
// review host's app server URL (used to build the AuthExpired activation
// link).
type UserConfig struct {
	AuthToken    string `json:"authToken,omitempty"`
	AppServerURL string `json:"appServerUrl,omitempty"`
}

func userConfigPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "stacker", "config.json"), nil
}

// LoadUserConfig reads the user config, returning a zero-value config if it
// does not exist yet.
func LoadUserConfig() (*UserConfig, error) {
	path, err := userConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &UserConfig{}, nil
		}
		return nil, fmt.Errorf("read user config: %w", err)
	}
	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse user config: %w", err)
	}
	return &cfg, nil
}

// SaveUserConfig persists the user config.
func SaveUserConfig(cfg *UserConfig) error {
	path, err := userConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal user config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
