package testutil

import (
	"relaybot/internal/engine"
	"relaybot/internal/objectstore"
	"relaybot/internal/recordstore"
)

// NewTestRecordStore creates a new in-memory record store for testing.
func NewTestRecordStore() engine.RecordStore {
	return recordstore.NewMemoryStore()
}

// NewTestObjectStore creates a new in-memory object store for testing.
func NewTestObjectStore() engine.ObjectStore {
	return objectstore.NewMemoryStore("test-bucket")
}

// TestKey returns a deterministic 32-byte encryption key.
func TestKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 7)
	}
	return key
}
