package config

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		InstanceID: "test-instance-abc",
		BaseDir:    "/home/user/.local/share/relaybot",
		LogDir:     "/home/user/.local/share/relaybot/log",
		RecordStore: RecordStoreConfig{
			Type:              "dynamodb",
			Region:            "eu-west-1",
			InteractionsTable: "interactions",
			BackupsTable:      "backups",
		},
		ObjectStore: ObjectStoreConfig{
			Type:     "s3",
			Bucket:   "relaybot-backups",
			S3Prefix: "prod",
			S3Region: "eu-west-1",
		},
		Notifier: NotifierConfig{Type: "webhook", WebhookURL: "https://example.test/hook"},
		Backup: BackupConfig{
			RetentionDays: 14,
			PathPrefix:    "backups",
			SignedURLTTL:  "2h",
		},
		Server:   ServerConfig{Addr: ":9090", MetaVerifyToken: "secret"},
		Schedule: ScheduleConfig{Backup: "0 4 * * *", Report: "0 20 * * 0"},
		Moderation: ModerationConfig{
			DenyList: []string{"badword"},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.InstanceID != original.InstanceID {
		t.Errorf("InstanceID = %q, want %q", got.InstanceID, original.InstanceID)
	}
	if got.RecordStore.Type != "dynamodb" {
		t.Errorf("RecordStore.Type = %q, want %q", got.RecordStore.Type, "dynamodb")
	}
	if got.RecordStore.InteractionsTable != "interactions" {
		t.Errorf("RecordStore.InteractionsTable = %q, want %q", got.RecordStore.InteractionsTable, "interactions")
	}
	if got.ObjectStore.Type != "s3" || got.ObjectStore.Bucket != "relaybot-backups" {
		t.Errorf("ObjectStore = %+v, want s3/relaybot-backups", got.ObjectStore)
	}
	if got.Notifier.WebhookURL != original.Notifier.WebhookURL {
		t.Errorf("Notifier.WebhookURL = %q, want %q", got.Notifier.WebhookURL, original.Notifier.WebhookURL)
	}
	if got.Backup.RetentionDays != 14 {
		t.Errorf("Backup.RetentionDays = %d, want 14", got.Backup.RetentionDays)
	}
	if got.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want %q", got.Server.Addr, ":9090")
	}
	if got.Schedule.Backup != "0 4 * * *" {
		t.Errorf("Schedule.Backup = %q, want %q", got.Schedule.Backup, "0 4 * * *")
	}
	if len(got.Moderation.DenyList) != 1 {
		t.Fatalf("len(Moderation.DenyList) = %d, want 1", len(got.Moderation.DenyList))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("instance-1", "/data/relaybot")

	if cfg.InstanceID != "instance-1" {
		t.Errorf("InstanceID = %q, want %q", cfg.InstanceID, "instance-1")
	}
	if cfg.BaseDir != "/data/relaybot" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/relaybot")
	}
	if cfg.LogDir != filepath.Join("/data/relaybot", "log") {
		t.Errorf("LogDir = %q, want under base dir", cfg.LogDir)
	}
	if cfg.RecordStore.Type != "sqlite" {
		t.Errorf("RecordStore.Type = %q, want sqlite", cfg.RecordStore.Type)
	}
	if cfg.ObjectStore.Type != "filesystem" {
		t.Errorf("ObjectStore.Type = %q, want filesystem", cfg.ObjectStore.Type)
	}
	if cfg.Backup.RetentionDays != 30 {
		t.Errorf("Backup.RetentionDays = %d, want 30", cfg.Backup.RetentionDays)
	}
	if cfg.Schedule.Backup != "0 3 * * *" {
		t.Errorf("Schedule.Backup = %q, want daily 03:00", cfg.Schedule.Backup)
	}
	if cfg.Schedule.Report != "0 21 * * 0" {
		t.Errorf("Schedule.Report = %q, want Sundays 21:00", cfg.Schedule.Report)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates a new config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", "relaybot.toml")
		cfg := NewConfig("instance-1", "/data/relaybot")

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.InstanceID != "instance-1" {
			t.Errorf("InstanceID = %q, want instance-1", got.InstanceID)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "relaybot.toml")
		if err := os.WriteFile(path, []byte("instance_id = \"x\"\n"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := Init(path, NewConfig("y", "/tmp")); err == nil {
			t.Error("Init() over existing file: error = nil, want error")
		}
	})
}

func TestEnv_EncryptionKey(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	t.Run("valid hex key", func(t *testing.T) {
		e := &Env{EncryptionKeyHex: hex.EncodeToString(key)}
		got, err := e.EncryptionKey()
		if err != nil {
			t.Fatalf("EncryptionKey() error = %v", err)
		}
		if !bytes.Equal(got, key) {
			t.Error("EncryptionKey() did not decode to the original key")
		}
	})

	t.Run("unset returns nil", func(t *testing.T) {
		e := &Env{}
		got, err := e.EncryptionKey()
		if err != nil || got != nil {
			t.Errorf("EncryptionKey() = %v, %v, want nil, nil", got, err)
		}
	})

	t.Run("invalid hex is rejected", func(t *testing.T) {
		e := &Env{EncryptionKeyHex: "not-hex"}
		if _, err := e.EncryptionKey(); err == nil {
			t.Error("EncryptionKey() with invalid hex: error = nil, want error")
		}
	})

	t.Run("wrong length is rejected", func(t *testing.T) {
		e := &Env{EncryptionKeyHex: hex.EncodeToString(key[:16])}
		if _, err := e.EncryptionKey(); err == nil {
			t.Error("EncryptionKey() with 16-byte key: error = nil, want error")
		}
	})
}

func TestReadEnv(t *testing.T) {
	t.Setenv("BACKUP_ENCRYPTION_KEY", "abcd")
	t.Setenv("BACKUP_RETENTION_DAYS", "7")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token-x")

	e, err := ReadEnv()
	if err != nil {
		t.Fatalf("ReadEnv() error = %v", err)
	}
	if e.EncryptionKeyHex != "abcd" {
		t.Errorf("EncryptionKeyHex = %q, want abcd", e.EncryptionKeyHex)
	}
	if e.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want 7", e.RetentionDays)
	}
	if e.TelegramBotToken != "token-x" {
		t.Errorf("TelegramBotToken = %q, want token-x", e.TelegramBotToken)
	}
}

func TestEnv_Apply(t *testing.T) {
	cfg := NewConfig("i", "/data")

	(&Env{RetentionDays: 7}).Apply(cfg)
	if cfg.Backup.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want 7", cfg.Backup.RetentionDays)
	}

	(&Env{}).Apply(cfg)
	if cfg.Backup.RetentionDays != 7 {
		t.Errorf("RetentionDays after empty overlay = %d, want 7", cfg.Backup.RetentionDays)
	}
}
