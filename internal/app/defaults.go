package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - RELAYBOT_CONFIG_PATH: config file location (default: ~/.config/relaybot.toml)
//   - RELAYBOT_HOME: base directory for relaybot data (default: ~/.local/share/relaybot)
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

// getConfigPath returns the config file path, checking RELAYBOT_CONFIG_PATH
// first, then falling back to the default ~/.config/relaybot.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("RELAYBOT_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "relaybot.toml"), nil
}

// getBaseDir returns the base directory for relaybot data, checking
// RELAYBOT_HOME first, then falling back to the XDG default
// ~/.local/share/relaybot.
func getBaseDir() (string, error) {
	if path := os.Getenv("RELAYBOT_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "relaybot"), nil
}
