package invitestorage

import (
	"context"
	"database/sql"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage/pgutil"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"github.com/burenotti/go_coach_backend/internal/domain/invite"
	"github.com/leporo/sqlf"
	"time"
)

type PostgresStorage struct {
	base *pgutil.BasePostgresStorage
}

func NewPostgresStorage(db storage.DBContext) *PostgresStorage {
	return &PostgresStorage{
		base: pgutil.NewBasePostgresStorage(db),
	}
}

// Add stores a new code. A clash on the code itself is ErrCodeExists so the
// caller can draw again. A clash on the coach means another request created
// the coach's code first.
func (s *PostgresStorage) Add(ctx context.Context, c *invite.Code) error {
	q := sqlf.InsertInto("invite_codes").
		Set("code", c.Code).
		Set("coach_id", c.CoachID).
		Set("created_at", c.CreatedAt)

	if _, err := q.ExecAndClose(ctx, s.base.DB); err != nil {
		switch {
		case pgutil.ViolatesConstraint(err, "invite_codes_pkey"):
			return invite.ErrCodeExists
		case pgutil.ViolatesConstraint(err, "invite_codes_coach_id_key"):
			return invite.ErrCoachHasCode
		}
		return storage.InternalError(err)
	}

	s.base.MarkSeen(c.Code, c)
	return nil
}

// Replace swaps the coach's current code for c.
func (s *PostgresStorage) Replace(ctx context.Context, c *invite.Code) error {
	q := sqlf.Update("invite_codes").
		Set("code", c.Code).
		Set("created_at", c.CreatedAt).
		Where("coach_id = ?", c.CoachID)

	res, err := q.ExecAndClose(ctx, s.base.DB)
	if err != nil && pgutil.ViolatesConstraint(err, "invite_codes_pkey") {
		return invite.ErrCodeExists
	}
	if err := pgutil.AssertUpdated(res, err, invite.ErrCodeNotFound); err != nil {
		return err
	}

	s.base.MarkSeen(c.Code, c)
	return nil
}

func (s *PostgresStorage) get(
	ctx context.Context,
	modify func(stmt *sqlf.Stmt) *sqlf.Stmt,
) (map[string]*invite.Code, error) {
	var tmp struct {
		Code      string
		CoachID   string
		CreatedAt time.Time
	}

	q := sqlf.From("invite_codes i").
		Select("i.code").To(&tmp.Code).
		Select("i.coach_id").To(&tmp.CoachID).
		Select("i.created_at").To(&tmp.CreatedAt)

	q = modify(q)

	codes := make(map[string]*invite.Code)
	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		codes[tmp.Code] = &invite.Code{
			Code:      tmp.Code,
			CoachID:   invite.CoachID(tmp.CoachID),
			CreatedAt: tmp.CreatedAt,
		}
	})

	if err != nil && !pgutil.NoRows(err) {
		return nil, storage.InternalError(err)
	}

	return codes, nil
}

func (s *PostgresStorage) GetByCoach(ctx context.Context, coachID invite.CoachID) (*invite.Code, error) {
	codes, err := s.get(ctx, func(stmt *sqlf.Stmt) *sqlf.Stmt {
		return stmt.Where("i.coach_id = ?", coachID)
	})
	return pgutil.PeekOrErr(codes, err, invite.ErrCodeNotFound)
}

// GetByCode expects an already normalized code.
func (s *PostgresStorage) GetByCode(ctx context.Context, code string) (*invite.Code, error) {
	codes, err := s.get(ctx, func(stmt *sqlf.Stmt) *sqlf.Stmt {
		return stmt.Where("i.code = ?", code)
	})
	return pgutil.PeekOrErr(codes, err, invite.ErrCodeNotFound)
}

func (s *PostgresStorage) Exists(ctx context.Context, code string) (bool, error) {
	codes, err := s.get(ctx, func(stmt *sqlf.Stmt) *sqlf.Stmt {
		return stmt.Where("i.code = ?", code)
	})
	if err != nil {
		return false, err
	}
	return len(codes) != 0, nil
}

func (s *PostgresStorage) Close() error {
	s.base.Close()
	return nil
}

func (s *PostgresStorage) CollectEvents() []domain.Event {
	return s.base.CollectEvents()
}
