package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Open connects with the lib/pq driver and applies the bookmark table DDL.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createBookmarks); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure bookmark table: %w", err)
	}
	return db, nil
}

const createBookmarks = `
	CREATE TABLE IF NOT EXISTS tap_bookmarks (
		stream_id    TEXT        NOT NULL,
		bookmark_key TEXT        NOT NULL,
		value        TEXT        NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (stream_id, bookmark_key)
	)`
