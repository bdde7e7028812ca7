package config

import (
	"encoding/hex"
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Env holds settings and secrets read from the environment. Key material
// and tokens are environment-only so the config file can be checked in.
type Env struct {
	EncryptionKeyHex string `env:"BACKUP_ENCRYPTION_KEY"`
	RetentionDays    int    `env:"BACKUP_RETENTION_DAYS" envDefault:"0"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	ConfigPath       string `env:"RELAYBOT_CONFIG_PATH"`
	Home             string `env:"RELAYBOT_HOME"`
}

// ReadEnv parses the environment into an Env.
func ReadEnv() (*Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &e, nil
}

// EncryptionKey decodes BACKUP_ENCRYPTION_KEY into the 32-byte AES key.
// Returns nil, nil when the variable is unset.
func (e *Env) EncryptionKey() ([]byte, error) {
	if e.EncryptionKeyHex == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(e.EncryptionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("BACKUP_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("BACKUP_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Apply overlays environment settings onto a file-based config.
func (e *Env) Apply(cfg *Config) {
	if e.RetentionDays > 0 {
		cfg.Backup.RetentionDays = e.RetentionDays
	}
}
