package respcache

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS responses (
    signature TEXT PRIMARY KEY,
    status INTEGER NOT NULL,
    body BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);
`

// SqliteStore keeps entries in a sqlite database, one row per request
// signature.
type SqliteStore struct {
	db *sql.DB
}

func NewSqliteStore(db *sql.DB) (SqliteStore, error) {
	_, err := db.Exec(sqliteSchema)
	if err != nil {
		return SqliteStore{}, err
	}
	return SqliteStore{db: db}, nil
}

// OpenSqliteStore opens (or creates) the database at path. `:memory:`
// works as expected.
func OpenSqliteStore(path string) (SqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return SqliteStore{}, err
	}
	return NewSqliteStore(db)
}

func (s SqliteStore) Get(ctx context.Context, key string) (Entry, error) {
	ctx, span := tracer.Start(ctx, "sqlite:get")
	defer span.End()
	span.SetAttributes(attribute.KeyValue{
		Key:   "cache_key",
		Value: attribute.StringValue(key),
	})

	row := s.db.QueryRowContext(
		ctx,
		"SELECT status, body, created_at, expires_at FROM responses WHERE signature = ?",
		key,
	)
	var cached Entry
	err := row.Scan(&cached.StatusCode, &cached.Body, &cached.CreatedAt, &cached.ExpiresAt)
	if err == sql.ErrNoRows {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read cached response")
		return Entry{}, err
	}

	if cached.ExpiresAt > 0 && time.Now().Unix() >= cached.ExpiresAt {
		span.AddEvent("delete expired cache key")
		_, err = s.db.ExecContext(ctx, "DELETE FROM responses WHERE signature = ?", key)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete expired row")
		}
		return Entry{}, ErrNotFound
	}

	return cached, nil
}

func (s SqliteStore) Put(ctx context.Context, key string, entry Entry) error {
	ctx, span := tracer.Start(ctx, "sqlite:put")
	defer span.End()
	span.SetAttributes(attribute.KeyValue{
		Key:   "cache_key",
		Value: attribute.StringValue(key),
	})

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO responses (signature, status, body, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(signature) DO UPDATE SET
		 status = excluded.status,
		 body = excluded.body,
		 created_at = excluded.created_at,
		 expires_at = excluded.expires_at`,
		key,
		entry.StatusCode,
		entry.Body,
		entry.CreatedAt,
		entry.ExpiresAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upsert cached response")
		return err
	}
	return nil
}
