package engine

import (
	"context"
	"time"

	"relaybot/internal/model"
)

// RecordStore provides an interface for interaction and backup metadata
// persistence against a document-style store. Implementations surface
// failures as *StoreError so callers can distinguish throttling from
// missing data.
type RecordStore interface {
	// Interaction operations

	// PutInteraction persists a new interaction record. Records are
	// immutable; writing the same (id, timestamp) twice replaces the item.
	PutInteraction(ctx context.Context, rec *model.InteractionRecord) error

	// GetInteraction returns a record by its composite key.
	// Returns a StoreError with kind StoreNotFound if no such record exists.
	GetInteraction(ctx context.Context, id, timestamp string) (*model.InteractionRecord, error)

	// ScanInteractions returns the entire record set, paginating internally
	// with no size cap other than store-imposed page limits.
	ScanInteractions(ctx context.Context) ([]model.InteractionRecord, error)

	// QueryInteractionsSince returns records with a timestamp at or after
	// the given instant, using the timestamp secondary index.
	QueryInteractionsSince(ctx context.Context, since time.Time) ([]model.InteractionRecord, error)

	// QueryInteractionsByUser returns all records for one user, using the
	// user secondary index.
	QueryInteractionsByUser(ctx context.Context, userID string) ([]model.InteractionRecord, error)

	// Backup metadata operations

	// PutBackupMetadata records the outcome of one backup run.
	PutBackupMetadata(ctx context.Context, meta *model.BackupMetadata) error

	// GetBackupMetadata returns metadata by backup ID.
	// Returns a StoreError with kind StoreNotFound if no such backup exists.
	GetBackupMetadata(ctx context.Context, backupID string) (*model.BackupMetadata, error)

	// ListBackupMetadata returns all backup metadata rows.
	ListBackupMetadata(ctx context.Context) ([]model.BackupMetadata, error)

	// DeleteBackupMetadata removes the given backup metadata rows. Batched
	// where the backend supports it; no ordering guarantee between deletes.
	DeleteBackupMetadata(ctx context.Context, backupIDs []string) error

	// Close releases the underlying connection.
	Close() error
}
