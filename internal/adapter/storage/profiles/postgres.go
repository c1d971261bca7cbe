package profilestorage

import (
	"context"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage/pgutil"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"github.com/burenotti/go_coach_backend/internal/domain/profile"
	"github.com/leporo/sqlf"
	"github.com/r3labs/diff"
	"github.com/samber/lo"
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

func (s *PostgresStorage) Add(ctx context.Context, p profile.Profile) error {
	switch v := p.(type) {
	case *profile.Coach:
		return s.AddCoach(ctx, v)
	case *profile.Client:
		return s.AddClient(ctx, v)
	default:
		panic("unknown profile type")
	}
}

func (s *PostgresStorage) AddClient(ctx context.Context, c *profile.Client) error {
	q := sqlf.InsertInto("clients_profiles").
		Set("user_id", c.UserID).
		Set("first_name", c.FirstName).
		Set("last_name", c.LastName).
		Set("birth_date", c.BirthDate).
		Set("avatar_url", c.AvatarURL)

	if _, err := q.ExecAndClose(ctx, s.base.DB); err != nil {
		if pgutil.ViolatesConstraint(err, "clients_profiles_pkey") {
			return profile.ErrProfileExists
		}
		return storage.InternalError(err)
	}

	s.base.MarkSeen(c.UserID, c)
	return nil
}

func (s *PostgresStorage) AddCoach(ctx context.Context, c *profile.Coach) error {
	q := sqlf.InsertInto("coaches_profiles").
		Set("user_id", c.UserID).
		Set("first_name", c.FirstName).
		Set("last_name", c.LastName).
		Set("birth_date", c.BirthDate).
		Set("years_experience", c.YearsExperience).
		Set("bio", c.Bio).
		Set("avatar_url", c.AvatarURL)

	if _, err := q.ExecAndClose(ctx, s.base.DB); err != nil {
		if pgutil.ViolatesConstraint(err, "coaches_profiles_pkey") {
			return profile.ErrProfileExists
		}
		return storage.InternalError(err)
	}

	s.base.MarkSeen(c.UserID, c)
	return nil
}

func (s *PostgresStorage) GetByID(ctx context.Context, userID string) (profile.Profile, error) {
	if !pgutil.IsID(userID) {
		return nil, profile.ErrProfileNotFound
	}
	var r getByIDRow
	q := sqlf.PostgreSQL.From("users u").
		LeftJoin("coaches_profiles c", "u.user_id = c.user_id").
		LeftJoin("clients_profiles t", "u.user_id = t.user_id").
		Where("u.user_id = ?", userID).
		Select("t.user_id AS client_id").To(&r.ClientID).
		Select("t.first_name").To(&r.ClientFirstName).
		Select("t.last_name").To(&r.ClientLastName).
		Select("t.birth_date").To(&r.ClientBirthDate).
		Select("t.avatar_url").To(&r.ClientAvatarURL).
		Select("c.user_id AS coach_id").To(&r.CoachID).
		Select("c.first_name").To(&r.CoachFirstName).
		Select("c.last_name").To(&r.CoachLastName).
		Select("c.birth_date").To(&r.CoachBirthDate).
		Select("c.years_experience").To(&r.CoachYearsExperience).
		Select("c.bio").To(&r.CoachBio).
		Select("c.avatar_url").To(&r.CoachAvatarURL)

	if err := q.QueryRowAndClose(ctx, s.base.DB); err != nil {
		if pgutil.NoRows(err) {
			return nil, profile.ErrProfileNotFound
		}
		return nil, storage.InternalError(err)
	}

	var p profile.Profile
	switch {
	case r.CoachID != nil:
		p = &profile.Coach{
			UserID:          *r.CoachID,
			FirstName:       lo.FromPtr(r.CoachFirstName),
			LastName:        lo.FromPtr(r.CoachLastName),
			BirthDate:       r.CoachBirthDate,
			YearsExperience: lo.FromPtr(r.CoachYearsExperience),
			Bio:             lo.FromPtr(r.CoachBio),
			AvatarURL:       lo.FromPtr(r.CoachAvatarURL),
		}
	case r.ClientID != nil:
		p = &profile.Client{
			UserID:    *r.ClientID,
			FirstName: lo.FromPtr(r.ClientFirstName),
			LastName:  lo.FromPtr(r.ClientLastName),
			BirthDate: r.ClientBirthDate,
			AvatarURL: lo.FromPtr(r.ClientAvatarURL),
		}
	default:
		return nil, profile.ErrProfileNotFound
	}

	return p, nil
}

// GetCoach is GetByID narrowed to coaches. Clients are reported as missing.
func (s *PostgresStorage) GetCoach(ctx context.Context, userID string) (*profile.Coach, error) {
	p, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, ok := p.(*profile.Coach)
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return c, nil
}

func (s *PostgresStorage) Persist(ctx context.Context, p profile.Profile) error {
	dbState, err := s.GetByID(ctx, p.ID())
	if err != nil {
		return err
	}

	if dbState.Type() != p.Type() {
		return profile.ErrProfileNotFound
	}

	var table string
	switch p.(type) {
	case *profile.Coach:
		table = "coaches_profiles"
	case *profile.Client:
		table = "clients_profiles"
	default:
		panic("unknown profile type")
	}

	changes, err := diff.Diff(dbState, p)
	if err != nil {
		return storage.InternalError(err)
	}
	if len(changes) == 0 {
		return nil
	}

	q := sqlf.Update(table).Where("user_id = ?", p.ID())
	q = pgutil.MakeUpdateQuery(q, changes)

	res, err := q.ExecAndClose(ctx, s.base.DB)
	return pgutil.AssertUpdated(res, err, profile.ErrProfileNotFound)
}

func (s *PostgresStorage) CollectEvents() []domain.Event {
	return s.base.CollectEvents()
}

func (s *PostgresStorage) Close() error {
	s.base.Close()
	return nil
}

type getByIDRow struct {
	CoachID              *string
	CoachFirstName       *string
	CoachLastName        *string
	CoachBirthDate       *time.Time
	CoachYearsExperience *int
	CoachBio             *string
	CoachAvatarURL       *string

	ClientID        *string
	ClientFirstName *string
	ClientLastName  *string
	ClientBirthDate *time.Time
	ClientAvatarURL *string
}
