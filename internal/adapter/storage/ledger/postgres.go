package ledgerstorage

import (
	"context"
	"database/sql"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage/pgutil"
	"github.com/burenotti/go_coach_backend/internal/domain/ledger"
	"github.com/leporo/sqlf"
	"time"
)

// PostgresStorage keeps ledger entries in ledger_entries. Expired rows are
// never deleted here; readers pass a cutoff instead.
type PostgresStorage struct {
	db storage.DBContext
}

func NewPostgresStorage(db storage.DBContext) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// Put records the entry, moving its timestamp forward if it already exists.
func (s *PostgresStorage) Put(ctx context.Context, e ledger.Entry) error {
	q := sqlf.InsertInto("ledger_entries").
		Set("coach_id", e.CoachID).
		Set("item_id", e.ItemID).
		Set("kind", e.Kind).
		Set("at", e.At).
		Clause("ON CONFLICT (coach_id, item_id, kind) DO UPDATE SET at = EXCLUDED.at")

	if _, err := q.ExecAndClose(ctx, s.db); err != nil {
		return storage.InternalError(err)
	}
	return nil
}

// Remove deletes the entry. Removing an absent entry is not an error.
func (s *PostgresStorage) Remove(ctx context.Context, coachID, itemID string, kind ledger.Kind) error {
	q := sqlf.DeleteFrom("ledger_entries").
		Where("coach_id = ? AND item_id = ? AND kind = ?", coachID, itemID, kind)

	if _, err := q.ExecAndClose(ctx, s.db); err != nil {
		return storage.InternalError(err)
	}
	return nil
}

func (s *PostgresStorage) ListSince(ctx context.Context, coachID string, since time.Time) ([]ledger.Entry, error) {
	var tmp struct {
		ItemID string
		Kind   string
		At     time.Time
	}

	q := sqlf.From("ledger_entries l").
		Select("l.item_id").To(&tmp.ItemID).
		Select("l.kind").To(&tmp.Kind).
		Select("l.at").To(&tmp.At).
		Where("l.coach_id = ? AND l.at > ?", coachID, since)

	var entries []ledger.Entry
	err := q.QueryAndClose(ctx, s.db, func(rows *sql.Rows) {
		entries = append(entries, ledger.Entry{
			CoachID: coachID,
			ItemID:  tmp.ItemID,
			Kind:    ledger.Kind(tmp.Kind),
			At:      tmp.At,
		})
	})

	if err != nil && !pgutil.NoRows(err) {
		return nil, storage.InternalError(err)
	}
	return entries, nil
}
