package objectstore

import (
	"context"
	"fmt"

	"relaybot/internal/config"
	"relaybot/internal/engine"
)

// NewFromConfig creates an ObjectStore implementation based on the object
// store config type.
func NewFromConfig(ctx context.Context, cfg config.ObjectStoreConfig) (engine.ObjectStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(cfg.Bucket), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem object store requires fs_root to be set")
		}
		return NewFileSystemStore(cfg.Bucket, cfg.FSRoot)
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("s3 object store requires bucket to be set")
		}
		return NewS3Store(ctx, cfg.Bucket, cfg.S3Prefix, cfg.S3Region)
	default:
		return nil, fmt.Errorf("unknown object store type: %s", cfg.Type)
	}
}
