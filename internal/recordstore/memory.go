package recordstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"relaybot/internal/engine"
	"relaybot/internal/model"
)

// MemoryStore is an in-memory implementation of the RecordStore interface,
// useful for testing and local development. Safe for concurrent use.
type MemoryStore struct {
	mu           sync.RWMutex
	interactions map[string]model.InteractionRecord // "id|timestamp" -> record
	backups      map[string]model.BackupMetadata    // backupId -> metadata
}

var _ engine.RecordStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		interactions: make(map[string]model.InteractionRecord),
		backups:      make(map[string]model.BackupMetadata),
	}
}

func interactionKey(id, timestamp string) string {
	return id + "|" + timestamp
}

func (m *MemoryStore) PutInteraction(_ context.Context, rec *model.InteractionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions[interactionKey(rec.ID, rec.Timestamp)] = *rec
	return nil
}

func (m *MemoryStore) GetInteraction(_ context.Context, id, timestamp string) (*model.InteractionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.interactions[interactionKey(id, timestamp)]
	if !ok {
		return nil, engine.NewStoreError(engine.StoreNotFound, fmt.Errorf("interaction %s@%s", id, timestamp))
	}
	return &rec, nil
}

func (m *MemoryStore) ScanInteractions(_ context.Context) ([]model.InteractionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.InteractionRecord, 0, len(m.interactions))
	for _, rec := range m.interactions {
		out = append(out, rec)
	}
	sortByTimestamp(out)
	return out, nil
}

func (m *MemoryStore) QueryInteractionsSince(_ context.Context, since time.Time) ([]model.InteractionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.InteractionRecord
	for _, rec := range m.interactions {
		if !rec.Time().Before(since) {
			out = append(out, rec)
		}
	}
	sortByTimestamp(out)
	return out, nil
}

func (m *MemoryStore) QueryInteractionsByUser(_ context.Context, userID string) ([]model.InteractionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.InteractionRecord
	for _, rec := range m.interactions {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sortByTimestamp(out)
	return out, nil
}

func (m *MemoryStore) PutBackupMetadata(_ context.Context, meta *model.BackupMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backups[meta.BackupID] = *meta
	return nil
}

func (m *MemoryStore) GetBackupMetadata(_ context.Context, backupID string) (*model.BackupMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.backups[backupID]
	if !ok {
		return nil, engine.NewStoreError(engine.StoreNotFound, fmt.Errorf("backup %s", backupID))
	}
	return &meta, nil
}

func (m *MemoryStore) ListBackupMetadata(_ context.Context) ([]model.BackupMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.BackupMetadata, 0, len(m.backups))
	for _, meta := range m.backups {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (m *MemoryStore) DeleteBackupMetadata(_ context.Context, backupIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range backupIDs {
		delete(m.backups, id)
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// sortByTimestamp orders records by their timestamp string. RFC 3339
// timestamps sort lexicographically in chronological order.
func sortByTimestamp(recs []model.InteractionRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Timestamp == recs[j].Timestamp {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].Timestamp < recs[j].Timestamp
	})
}
