package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tap_amazon_ads/internal/domain"
)

// StateStore keeps bookmarks in tap_bookmarks, one row per stream and key.
type StateStore struct {
	db  *sqlx.DB
	tm  *TransactionManager
	now func() time.Time
}

func NewStateStore(db *sqlx.DB) *StateStore {
	return &StateStore{
		db:  db,
		tm:  NewTransactionManager(db),
		now: time.Now,
	}
}

func (s *StateStore) Load(ctx context.Context) (*domain.State, error) {
	var rows []domain.Bookmark
	query := `
		SELECT stream_id, bookmark_key, value, updated_at
		FROM tap_bookmarks
		ORDER BY stream_id, bookmark_key`

	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query); err != nil {
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}

	state := domain.NewState()
	for _, row := range rows {
		state.SetBookmark(row.StreamID, row.Key, row.Value)
	}
	return state, nil
}

// Save upserts every bookmark in state inside one transaction. Rows for
// streams absent from state are left alone.
func (s *StateStore) Save(ctx context.Context, state *domain.State) error {
	rows := state.Rows()
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO tap_bookmarks (stream_id, bookmark_key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (stream_id, bookmark_key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
		WHERE tap_bookmarks.value IS DISTINCT FROM EXCLUDED.value`

	updatedAt := s.now().UTC()
	return s.tm.WithTransaction(ctx, func(ctx context.Context) error {
		exec := GetExecutor(ctx, s.db)
		for _, row := range rows {
			if _, err := exec.ExecContext(ctx, query, row.StreamID, row.Key, row.Value, updatedAt); err != nil {
				return fmt.Errorf("save bookmark %s/%s: %w", row.StreamID, row.Key, err)
			}
		}
		return nil
	})
}
