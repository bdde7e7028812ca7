package engine

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"relaybot/internal/codec"
	"relaybot/internal/model"
)

// BackupService produces durable, encrypted, restorable point-in-time
// snapshots of the interaction record set, and reclaims storage for backups
// older than the retention window.
type BackupService struct {
	records       RecordStore
	objects       ObjectStore
	notifier      Notifier
	key           []byte
	bucket        string
	pathPrefix    string
	signedURLTTL  time.Duration
	retentionDays int
	logger        Logger
	clock         Clock
}

// DefaultRetentionDays is the retention window applied when none is
// configured.
const DefaultRetentionDays = 30

// NewBackupService creates a BackupService. key must be the 32-byte AES
// encryption key; a wrong-sized key is a configuration error caught here,
// at startup, rather than mid-run.
func NewBackupService(records RecordStore, objects ObjectStore, notifier Notifier, key []byte,
	bucket, pathPrefix string, signedURLTTL time.Duration, retentionDays int,
	logger Logger, clock Clock) (*BackupService, error) {

	if len(key) != codec.KeySize {
		return nil, NewConfigError("encryption key must be %d bytes, got %d", codec.KeySize, len(key))
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if pathPrefix == "" {
		pathPrefix = "backups"
	}

	return &BackupService{
		records:       records,
		objects:       objects,
		notifier:      notifier,
		key:           key,
		bucket:        bucket,
		pathPrefix:    pathPrefix,
		signedURLTTL:  signedURLTTL,
		retentionDays: retentionDays,
		logger:        logger,
		clock:         clock,
	}, nil
}

// PerformBackup snapshots the entire record set, compresses and encrypts
// it, uploads the artifact, and records success metadata.
//
// The operation is atomic from the caller's perspective: either metadata
// with status success is recorded and the artifact exists at its path, or
// an error propagates and no metadata is written. Any failure emits a
// best-effort failure notification before propagating; no retry is
// attempted here. Each invocation creates a new artifact; callers wanting
// idempotence must dedupe by time window themselves.
func (s *BackupService) PerformBackup(ctx context.Context) (*model.BackupMetadata, error) {
	now := s.clock.Now().UTC()
	backupID := "backup-" + now.Format("20060102T150405Z")
	s.logger.Info("backup started", "backupId", backupID)

	meta, err := s.performBackup(ctx, backupID, now)
	if err != nil {
		s.notifier.SendBackupResult(ctx, BackupResult{Success: false, Err: err.Error()})
		return nil, err
	}

	s.notifier.SendBackupResult(ctx, BackupResult{
		Success: true,
		Size:    meta.Size,
		Records: meta.RecordCount,
	})
	s.logger.Info("backup complete", "backupId", backupID, "records", meta.RecordCount, "size", meta.Size)
	return meta, nil
}

func (s *BackupService) performBackup(ctx context.Context, backupID string, now time.Time) (*model.BackupMetadata, error) {
	records, err := s.records.ScanInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning records: %w", err)
	}
	if records == nil {
		records = []model.InteractionRecord{}
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("serializing snapshot: %w", err)
	}

	artifact, err := codec.Encode(payload, s.key)
	if err != nil {
		return nil, fmt.Errorf("encoding artifact: %w", err)
	}

	path := s.pathPrefix + "/" + backupID + ".bak"
	if err := s.objects.Upload(ctx, path, bytes.NewReader(artifact), int64(len(artifact))); err != nil {
		return nil, fmt.Errorf("uploading artifact: %w", err)
	}

	// The signed URL is a convenience for operators; its absence never
	// fails the run.
	var url string
	if s.signedURLTTL > 0 {
		if u, err := s.objects.SignedURL(ctx, path, s.signedURLTTL); err == nil {
			url = u
		} else {
			s.logger.Warn("signed URL unavailable", "backupId", backupID, "error", err)
		}
	}

	meta := &model.BackupMetadata{
		BackupID:    backupID,
		Timestamp:   now.Format(time.RFC3339),
		Status:      model.BackupSuccess,
		RecordCount: len(records),
		Size:        int64(len(artifact)),
		BucketName:  s.bucket,
		Path:        path,
		URL:         url,
	}
	if err := s.records.PutBackupMetadata(ctx, meta); err != nil {
		return nil, fmt.Errorf("recording backup metadata: %w", err)
	}

	return meta, nil
}

// Restore downloads the artifact for backupID, decrypts it verifying the
// authentication tag, decompresses, and deserializes the record set.
//
// A missing backup or artifact surfaces as a not-found error, distinct
// from codec.ErrTagMismatch (corrupted or tampered artifact) so operators
// can decide whether to try an earlier backup.
func (s *BackupService) Restore(ctx context.Context, backupID string) ([]model.InteractionRecord, error) {
	meta, err := s.records.GetBackupMetadata(ctx, backupID)
	if err != nil {
		return nil, fmt.Errorf("looking up backup: %w", err)
	}
	if meta.Status != model.BackupSuccess {
		return nil, fmt.Errorf("backup %s did not complete successfully", backupID)
	}

	var buf bytes.Buffer
	if err := s.objects.Download(ctx, meta.Path, &buf); err != nil {
		return nil, fmt.Errorf("downloading artifact: %w", err)
	}

	payload, err := codec.Decode(buf.Bytes(), s.key)
	if err != nil {
		return nil, fmt.Errorf("decoding artifact: %w", err)
	}

	var records []model.InteractionRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("deserializing snapshot: %w", err)
	}

	s.logger.Info("restore complete", "backupId", backupID, "records", len(records))
	return records, nil
}

// CleanupResult reports the outcome of a retention pass.
type CleanupResult struct {
	DeletedCount int
}

// CleanupOldBackups deletes backup metadata and artifacts older than
// retentionDays. retentionDays <= 0 falls back to the configured default.
// Artifact deletions run concurrently and are best-effort: an artifact
// already missing for a deleted metadata row is not an error.
func (s *BackupService) CleanupOldBackups(ctx context.Context, retentionDays int) (CleanupResult, error) {
	if retentionDays <= 0 {
		retentionDays = s.retentionDays
	}
	cutoff := s.clock.Now().UTC().AddDate(0, 0, -retentionDays)

	metas, err := s.records.ListBackupMetadata(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("listing backup metadata: %w", err)
	}

	var expired []model.BackupMetadata
	for _, meta := range metas {
		if meta.Time().Before(cutoff) {
			expired = append(expired, meta)
		}
	}
	if len(expired) == 0 {
		return CleanupResult{}, nil
	}

	ids := make([]string, len(expired))
	for i, meta := range expired {
		ids[i] = meta.BackupID
	}
	if err := s.records.DeleteBackupMetadata(ctx, ids); err != nil {
		return CleanupResult{}, fmt.Errorf("deleting backup metadata: %w", err)
	}

	var wg sync.WaitGroup
	for _, meta := range expired {
		wg.Add(1)
		go func(path, id string) {
			defer wg.Done()
			if err := s.objects.Delete(ctx, path); err != nil {
				s.logger.Warn("artifact cleanup failed", "backupId", id, "error", err)
			}
		}(meta.Path, meta.BackupID)
	}
	wg.Wait()

	s.logger.Info("retention cleanup complete", "deleted", len(expired), "retentionDays", retentionDays)
	return CleanupResult{DeletedCount: len(expired)}, nil
}
