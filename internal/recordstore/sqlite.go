package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"relaybot/internal/engine"
	"relaybot/internal/model"
	"relaybot/internal/recordstore/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the RecordStore interface on a local SQLite file.
// Structured payloads (content, metadata) are stored as JSON text columns.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ engine.RecordStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens a SQLite record store, migrating the schema when it
// is behind. A database that is dirty (a migration failed previously) or
// ahead of this binary refuses to open rather than being migrated blindly.
// path can be a file path or ":memory:".
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.Check(db); err != nil {
		if !errors.Is(err, migrations.ErrSchemaBehind) {
			db.Close()
			return nil, fmt.Errorf("checking database schema: %w", err)
		}
		if err := migrations.Up(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the store relies on. Exported for tools and tests.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite defaults foreign keys to OFF for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return db, nil
}

func (s *SQLiteStore) PutInteraction(ctx context.Context, rec *model.InteractionRecord) error {
	content, err := json.Marshal(rec.Content)
	if err != nil {
		return fmt.Errorf("encoding content: %w", err)
	}
	var metadata []byte
	if rec.Metadata != nil {
		if metadata, err = json.Marshal(rec.Metadata); err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO interactions (id, timestamp, user_id, platform, type, content, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp, rec.UserID, string(rec.Platform), string(rec.Type),
		string(content), nullableText(metadata))
	if err != nil {
		return storeErr("inserting interaction", err)
	}
	return nil
}

func (s *SQLiteStore) GetInteraction(ctx context.Context, id, timestamp string) (*model.InteractionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, user_id, platform, type, content, metadata
		FROM interactions WHERE id = ? AND timestamp = ?`, id, timestamp)

	rec, err := scanInteraction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, engine.NewStoreError(engine.StoreNotFound, fmt.Errorf("interaction %s@%s", id, timestamp))
		}
		return nil, storeErr("reading interaction", err)
	}
	return rec, nil
}

func (s *SQLiteStore) ScanInteractions(ctx context.Context) ([]model.InteractionRecord, error) {
	return s.queryInteractions(ctx, `
		SELECT id, timestamp, user_id, platform, type, content, metadata
		FROM interactions ORDER BY timestamp, id`)
}

func (s *SQLiteStore) QueryInteractionsSince(ctx context.Context, since time.Time) ([]model.InteractionRecord, error) {
	return s.queryInteractions(ctx, `
		SELECT id, timestamp, user_id, platform, type, content, metadata
		FROM interactions WHERE timestamp >= ? ORDER BY timestamp, id`,
		since.UTC().Format(time.RFC3339))
}

func (s *SQLiteStore) QueryInteractionsByUser(ctx context.Context, userID string) ([]model.InteractionRecord, error) {
	return s.queryInteractions(ctx, `
		SELECT id, timestamp, user_id, platform, type, content, metadata
		FROM interactions WHERE user_id = ? ORDER BY timestamp, id`, userID)
}

func (s *SQLiteStore) queryInteractions(ctx context.Context, query string, args ...any) ([]model.InteractionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("querying interactions", err)
	}
	defer rows.Close()

	var out []model.InteractionRecord
	for rows.Next() {
		rec, err := scanInteraction(rows)
		if err != nil {
			return nil, storeErr("scanning interaction row", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating interactions", err)
	}
	return out, nil
}

func (s *SQLiteStore) PutBackupMetadata(ctx context.Context, meta *model.BackupMetadata) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backups (backup_id, timestamp, status, record_count, size, bucket_name, path, url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.BackupID, meta.Timestamp, string(meta.Status), meta.RecordCount,
		meta.Size, meta.BucketName, meta.Path, meta.URL)
	if err != nil {
		return storeErr("inserting backup metadata", err)
	}
	return nil
}

func (s *SQLiteStore) GetBackupMetadata(ctx context.Context, backupID string) (*model.BackupMetadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT backup_id, timestamp, status, record_count, size, bucket_name, path, url
		FROM backups WHERE backup_id = ?`, backupID)

	var meta model.BackupMetadata
	var status string
	err := row.Scan(&meta.BackupID, &meta.Timestamp, &status, &meta.RecordCount,
		&meta.Size, &meta.BucketName, &meta.Path, &meta.URL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, engine.NewStoreError(engine.StoreNotFound, fmt.Errorf("backup %s", backupID))
		}
		return nil, storeErr("reading backup metadata", err)
	}
	meta.Status = model.BackupStatus(status)
	return &meta, nil
}

func (s *SQLiteStore) ListBackupMetadata(ctx context.Context) ([]model.BackupMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT backup_id, timestamp, status, record_count, size, bucket_name, path, url
		FROM backups ORDER BY timestamp`)
	if err != nil {
		return nil, storeErr("querying backup metadata", err)
	}
	defer rows.Close()

	var out []model.BackupMetadata
	for rows.Next() {
		var meta model.BackupMetadata
		var status string
		if err := rows.Scan(&meta.BackupID, &meta.Timestamp, &status, &meta.RecordCount,
			&meta.Size, &meta.BucketName, &meta.Path, &meta.URL); err != nil {
			return nil, storeErr("scanning backup row", err)
		}
		meta.Status = model.BackupStatus(status)
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating backup metadata", err)
	}
	return out, nil
}

func (s *SQLiteStore) DeleteBackupMetadata(ctx context.Context, backupIDs []string) error {
	if len(backupIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(backupIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(backupIDs))
	for i, id := range backupIDs {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM backups WHERE backup_id IN ("+placeholders+")", args...)
	if err != nil {
		return storeErr("deleting backup metadata", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInteraction(row scanner) (*model.InteractionRecord, error) {
	var rec model.InteractionRecord
	var platform, typ, content string
	var metadata sql.NullString

	if err := row.Scan(&rec.ID, &rec.Timestamp, &rec.UserID, &platform, &typ, &content, &metadata); err != nil {
		return nil, err
	}
	rec.Platform = model.Platform(platform)
	rec.Type = model.InteractionType(typ)

	if err := json.Unmarshal([]byte(content), &rec.Content); err != nil {
		return nil, fmt.Errorf("decoding content: %w", err)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	return &rec, nil
}

func nullableText(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

// storeErr wraps a low-level database error into the store taxonomy.
// SQLite has no throttling concept, so everything lands in StoreUnknown.
func storeErr(msg string, err error) error {
	return engine.NewStoreError(engine.StoreUnknown, fmt.Errorf("%s: %w", msg, err))
}
