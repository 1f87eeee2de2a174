// Package config handles configuration and cookie management for geminiflow.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the user configuration
type Config struct {
	DefaultModel string `json:"default_model"`
	Language     string `json:"language"`
	// CookieDir is the directory of exported browser cookie JSON files.
	CookieDir string `json:"cookie_dir,omitempty"`
	// ImageDir is where generated images are saved. Modeled as explicit
	// configuration rather than an environment read so the save path is
	// testable.
	ImageDir string `json:"image_dir,omitempty"`
	Proxy    string `json:"proxy,omitempty"`
	// AutoRefresh enables the one-shot browser cookie refresh when a chat
	// cycle fails with an auth-class error.
	AutoRefresh bool `json:"auto_refresh"`
	// SaveImages persists generated images to ImageDir; when disabled the
	// remote URL is emitted instead.
	SaveImages bool   `json:"save_images"`
	Verbose    bool   `json:"verbose"`
	Browser    string `json:"browser,omitempty"` // auto, chrome, firefox, ...
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	configDir, _ := GetConfigDir()
	return Config{
		DefaultModel: "gemini-3-pro",
		Language:     "zh-TW",
		CookieDir:    filepath.Join(configDir, "cookies"),
		ImageDir:     filepath.Join(configDir, "images"),
		AutoRefresh:  true,
		SaveImages:   true,
		Browser:      "auto",
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".geminiflow"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds session cookies
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration from disk, falling back to defaults
// when no config file exists.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// EnsureImageDir resolves and creates the image output directory.
func EnsureImageDir(cfg Config) (string, error) {
	dir := cfg.ImageDir
	if dir == "" {
		configDir, err := GetConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(configDir, "images")
	}
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(cwd, dir)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	return dir, nil
}
