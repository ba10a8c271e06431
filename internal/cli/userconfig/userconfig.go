package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName  = "tradekit"
	configFileName = "config.json"

	// DefaultAPIURL is used until the user points the CLI elsewhere
	DefaultAPIURL = "http://localhost:8080"
)

// UserConfig is the CLI's local configuration stored in ~/.config/tradekit/config.json
type UserConfig struct {
	APIURL string `json:"api_url"`
	// ProviderURL points at the external auth provider; empty disables the
	// provider-session bootstrap and refresh-token persistence
	ProviderURL string `json:"provider_url,omitempty"`
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", configDirName)
	return filepath.Join(configDir, configFileName), nil
}

// Load reads the user configuration file
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	// If config doesn't exist, return empty config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &UserConfig{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the user configuration to a file
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetAPIURL updates the stored API URL and saves the config
func SetAPIURL(apiURL string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.APIURL = apiURL
	return Save(cfg)
}

// SetProviderURL updates the stored auth provider URL and saves the config
func SetProviderURL(providerURL string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.ProviderURL = providerURL
	return Save(cfg)
}

// ResolveAPIURL returns the API base URL: the TRADEKIT_API_URL environment
// variable wins, then the saved config, then the default.
func ResolveAPIURL() (string, error) {
	if url := os.Getenv("TRADEKIT_API_URL"); url != "" {
		return url, nil
	}

	cfg, err := Load()
	if err != nil {
		return "", err
	}
	if cfg.APIURL != "" {
		return cfg.APIURL, nil
	}
	return DefaultAPIURL, nil
}

// ResolveProviderURL returns the auth provider base URL: the
// TRADEKIT_PROVIDER_URL environment variable wins, then the saved config.
// Empty means no provider is configured.
func ResolveProviderURL() (string, error) {
	if url := os.Getenv("TRADEKIT_PROVIDER_URL"); url != "" {
		return url, nil
	}

	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return cfg.ProviderURL, nil
}
