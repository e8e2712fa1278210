package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - COURIER_CONFIG_PATH: config file location (default: ~/.config/courier.toml)
//   - COURIER_HOME: base directory for courier data (default: ~/.local/share/courier)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking COURIER_CONFIG_PATH
// first, then falling back to ~/.config/courier.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("COURIER_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "courier.toml"), nil
}

// getBaseDir returns the base directory for courier data, checking
// COURIER_HOME first, then falling back to the XDG default
// ~/.local/share/courier.
func getBaseDir() (string, error) {
	if path := os.Getenv("COURIER_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "courier"), nil
}
