package recordstore

import (
	"context"
	"fmt"
	"path/filepath"

	"relaybot/internal/config"
	"relaybot/internal/engine"
)

// NewFromConfig creates a RecordStore implementation based on the record
// store config type.
func NewFromConfig(ctx context.Context, cfg config.RecordStoreConfig, instanceID string) (engine.RecordStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite record store")
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, instanceID+".db"))
	case "dynamodb":
		if cfg.InteractionsTable == "" || cfg.BackupsTable == "" {
			return nil, fmt.Errorf("interactions_table and backups_table required for dynamodb record store")
		}
		return NewDynamoStore(ctx, cfg.Region, cfg.Endpoint, cfg.InteractionsTable, cfg.BackupsTable)
	default:
		return nil, fmt.Errorf("unknown record store type: %s", cfg.Type)
	}
}
