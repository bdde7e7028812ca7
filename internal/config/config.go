package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for relaybot.
type Config struct {
	InstanceID  string            `toml:"instance_id"`
	BaseDir     string            `toml:"base_dir"`
	LogDir      string            `toml:"log_dir"`
	RecordStore RecordStoreConfig `toml:"record_store"`
	ObjectStore ObjectStoreConfig `toml:"object_store"`
	Notifier    NotifierConfig    `toml:"notifier"`
	Backup      BackupConfig      `toml:"backup"`
	Server      ServerConfig      `toml:"server"`
	Schedule    ScheduleConfig    `toml:"schedule"`
	Moderation  ModerationConfig  `toml:"moderation"`
}

// RecordStoreConfig represents configuration for the record store backend.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type RecordStoreConfig struct {
	Type string `toml:"type"` // "memory", "sqlite", or "dynamodb"

	// SQLite-specific fields (only used when Type == "sqlite")
	DataDir string `toml:"data_dir,omitempty"`

	// DynamoDB-specific fields (only used when Type == "dynamodb")
	Region            string `toml:"region,omitempty"`
	Endpoint          string `toml:"endpoint,omitempty"` // local DynamoDB, empty for AWS
	InteractionsTable string `toml:"interactions_table,omitempty"`
	BackupsTable      string `toml:"backups_table,omitempty"`
}

// ObjectStoreConfig represents configuration for the object store backend.
// Tagged union on Type, like RecordStoreConfig.
type ObjectStoreConfig struct {
	Type   string `toml:"type"` // "memory", "filesystem", or "s3"
	Bucket string `toml:"bucket"`

	// S3-specific fields (only used when Type == "s3")
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// NotifierConfig represents configuration for the notification sink.
// Tagged union on Type.
type NotifierConfig struct {
	Type string `toml:"type"` // "nop", "telegram", or "webhook"

	// Telegram-specific fields. The bot token comes from the environment
	// (TELEGRAM_BOT_TOKEN), never from the config file.
	TelegramChatID int64 `toml:"telegram_chat_id,omitempty"`

	// Webhook-specific fields (Discord-compatible JSON POST target).
	WebhookURL string `toml:"webhook_url,omitempty"`
}

// BackupConfig holds backup engine settings. The encryption key itself
// comes from the environment (BACKUP_ENCRYPTION_KEY), never from the file.
type BackupConfig struct {
	RetentionDays int    `toml:"retention_days"`
	PathPrefix    string `toml:"path_prefix"`
	SignedURLTTL  string `toml:"signed_url_ttl"` // Go duration string, e.g. "1h"
}

// ServerConfig holds webhook server settings.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	MetaVerifyToken string `toml:"meta_verify_token"`
}

// ScheduleConfig holds cron specs for the periodic jobs.
type ScheduleConfig struct {
	Backup string `toml:"backup"` // default: daily at 03:00 UTC
	Report string `toml:"report"` // default: Sundays at 21:00 UTC
}

// ModerationConfig holds the profanity deny-list. Empty means built-in.
type ModerationConfig struct {
	DenyList []string `toml:"deny_list"`
}

// NewConfig creates a new Config with the provided values and sensible
// defaults for a local deployment.
func NewConfig(instanceID, baseDir string) *Config {
	return &Config{
		InstanceID: instanceID,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		RecordStore: RecordStoreConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		ObjectStore: ObjectStoreConfig{
			Type:   "filesystem",
			Bucket: "relaybot-backups",
			FSRoot: filepath.Join(baseDir, "objects"),
		},
		Notifier: NotifierConfig{Type: "nop"},
		Backup: BackupConfig{
			RetentionDays: 30,
			PathPrefix:    "backups",
			SignedURLTTL:  "1h",
		},
		Server: ServerConfig{Addr: ":8080"},
		Schedule: ScheduleConfig{
			Backup: "0 3 * * *",
			Report: "0 21 * * 0",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
