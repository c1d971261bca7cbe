package accountstorage

import (
	"context"
	"database/sql"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage/pgutil"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"github.com/burenotti/go_coach_backend/internal/domain/auth"
	"github.com/leporo/sqlf"
	"github.com/r3labs/diff"
	"github.com/samber/lo"
	"time"
)

type PostgresStorage struct {
	base *pgutil.BasePostgresStorage

	// loaded holds the state each account had when it was read, so Persist
	// can write only what changed since.
	loaded map[string]*auth.Account
}

func NewPostgresStorage(db storage.DBContext) *PostgresStorage {
	return &PostgresStorage{
		base:   pgutil.NewBasePostgresStorage(db),
		loaded: make(map[string]*auth.Account),
	}
}

func (s *PostgresStorage) Add(ctx context.Context, a *auth.Account) error {
	q := sqlf.InsertInto("users").
		Set("user_id", a.AccountID).
		Set("email", a.Email).
		Set("password_hash", a.PasswordHash).
		Set("created_at", a.CreatedAt).
		Set("updated_at", a.UpdatedAt)

	if _, err := q.ExecAndClose(ctx, s.base.DB); err != nil {
		switch {
		case pgutil.ViolatesConstraint(err, "users_email_key"):
			return auth.ErrEmailTaken
		case pgutil.ViolatesConstraint(err, "users_pkey"):
			return auth.ErrAccountExists
		}
		return storage.InternalError(err)
	}

	for _, session := range a.Sessions {
		if err := s.addSession(ctx, a.AccountID, session); err != nil {
			return err
		}
	}

	s.base.MarkSeen(a.AccountID, a)
	s.loaded[a.AccountID] = snapshot(a)
	return nil
}

func (s *PostgresStorage) GetByID(ctx context.Context, accountID string) (*auth.Account, error) {
	if !pgutil.IsID(accountID) {
		return nil, auth.ErrAccountNotFound
	}
	return s.getOne(ctx, "u.user_id = ?", accountID)
}

func (s *PostgresStorage) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return s.getOne(ctx, "u.email = ?", email)
}

func (s *PostgresStorage) GetBySessionSecret(ctx context.Context, secret string) (*auth.Account, error) {
	return s.getOne(ctx, "u.user_id = (SELECT user_id FROM sessions WHERE secret = ?)", secret)
}

// Persist writes account and session changes made since the account was
// loaded. Sessions unknown to the database are inserted.
func (s *PostgresStorage) Persist(ctx context.Context, a *auth.Account) error {
	dbState, ok := s.loaded[a.AccountID]
	if !ok {
		if _, err := s.GetByID(ctx, a.AccountID); err != nil {
			return err
		}
		dbState = s.loaded[a.AccountID]
	}
	s.base.MarkSeen(a.AccountID, a)

	changes, err := diff.Diff(dbState, a)
	if err != nil {
		return storage.InternalError(err)
	}
	if len(changes) != 0 {
		q := sqlf.Update("users").Where("user_id = ?", a.AccountID)
		q = pgutil.MakeUpdateQuery(q, changes)

		res, err := q.ExecAndClose(ctx, s.base.DB)
		if err := pgutil.AssertUpdated(res, err, auth.ErrAccountNotFound); err != nil {
			return err
		}
	}

	known := lo.SliceToMap(dbState.Sessions, func(session *auth.Session) (string, *auth.Session) {
		return session.SessionID, session
	})

	for _, session := range a.Sessions {
		prev, ok := known[session.SessionID]
		if !ok {
			err = s.addSession(ctx, a.AccountID, session)
		} else {
			err = s.persistSession(ctx, prev, session)
		}
		if err != nil {
			return err
		}
	}

	s.loaded[a.AccountID] = snapshot(a)
	return nil
}

func (s *PostgresStorage) CollectEvents() []domain.Event {
	return s.base.CollectEvents()
}

func (s *PostgresStorage) Close() error {
	s.base.Close()
	s.loaded = make(map[string]*auth.Account)
	return nil
}

func (s *PostgresStorage) addSession(ctx context.Context, accountID string, session *auth.Session) error {
	q := sqlf.InsertInto("sessions").
		Set("session_id", session.SessionID).
		Set("user_id", accountID).
		Set("secret", session.Secret).
		Set("app", session.Client.App).
		Set("platform", session.Client.Platform).
		Set("device_model", session.Client.Model).
		Set("ip_address", session.Client.IP).
		Set("opened_at", session.OpenedAt).
		Set("expires_at", session.ExpiresAt).
		Set("ended_at", session.EndedAt)

	if _, err := q.ExecAndClose(ctx, s.base.DB); err != nil {
		if pgutil.ViolatesConstraint(err, "sessions_pkey") || pgutil.ViolatesConstraint(err, "sessions_secret_key") {
			return auth.ErrSessionExists
		}
		return storage.InternalError(err)
	}
	return nil
}

func (s *PostgresStorage) persistSession(ctx context.Context, prev, session *auth.Session) error {
	changes, err := diff.Diff(prev, session)
	if err != nil {
		return storage.InternalError(err)
	}
	if len(changes) == 0 {
		return nil
	}

	q := sqlf.Update("sessions").Where("session_id = ?", session.SessionID)
	q = pgutil.MakeUpdateQuery(q, changes)

	res, err := q.ExecAndClose(ctx, s.base.DB)
	return pgutil.AssertUpdated(res, err, auth.ErrUnauthorized)
}

func (s *PostgresStorage) getOne(ctx context.Context, where string, args ...any) (*auth.Account, error) {
	var (
		row     accountRow
		account *auth.Account
	)

	q := sqlf.From("users u").
		LeftJoin("sessions s", "s.user_id = u.user_id").
		Where(where, args...).
		OrderBy("s.opened_at").
		Select("u.user_id").To(&row.AccountID).
		Select("u.email").To(&row.Email).
		Select("u.password_hash").To(&row.PasswordHash).
		Select("u.created_at").To(&row.CreatedAt).
		Select("u.updated_at").To(&row.UpdatedAt).
		Select("s.session_id").To(&row.SessionID).
		Select("s.secret").To(&row.Secret).
		Select("s.app").To(&row.App).
		Select("s.platform").To(&row.Platform).
		Select("s.device_model").To(&row.Model).
		Select("s.ip_address").To(&row.IP).
		Select("s.opened_at").To(&row.OpenedAt).
		Select("s.expires_at").To(&row.ExpiresAt).
		Select("s.ended_at").To(&row.EndedAt)

	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		if account == nil {
			account = &auth.Account{
				AccountID:    row.AccountID,
				Email:        row.Email,
				PasswordHash: row.PasswordHash,
				CreatedAt:    row.CreatedAt,
				UpdatedAt:    row.UpdatedAt,
			}
		}
		if row.SessionID != nil {
			account.Sessions = append(account.Sessions, row.session())
		}
	})

	if err != nil && !pgutil.NoRows(err) {
		return nil, storage.InternalError(err)
	}
	if account == nil {
		return nil, auth.ErrAccountNotFound
	}

	s.base.MarkSeen(account.AccountID, account)
	s.loaded[account.AccountID] = snapshot(account)
	return account, nil
}

type accountRow struct {
	AccountID    string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	SessionID *string
	Secret    *string
	App       *string
	Platform  *string
	Model     *string
	IP        *string
	OpenedAt  *time.Time
	ExpiresAt *time.Time
	EndedAt   *time.Time
}

func (r accountRow) session() *auth.Session {
	return &auth.Session{
		SessionID: *r.SessionID,
		Secret:    lo.FromPtr(r.Secret),
		Client: auth.Client{
			App:      lo.FromPtr(r.App),
			Platform: lo.FromPtr(r.Platform),
			Model:    lo.FromPtr(r.Model),
			IP:       lo.FromPtr(r.IP),
		},
		OpenedAt:  lo.FromPtr(r.OpenedAt),
		ExpiresAt: lo.FromPtr(r.ExpiresAt),
		EndedAt:   r.EndedAt,
	}
}

// snapshot copies the fields Persist compares, sessions included.
func snapshot(a *auth.Account) *auth.Account {
	cp := &auth.Account{
		AccountID:    a.AccountID,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
		Sessions:     make([]*auth.Session, 0, len(a.Sessions)),
	}
	for _, session := range a.Sessions {
		sessionCopy := *session
		cp.Sessions = append(cp.Sessions, &sessionCopy)
	}
	return cp
}
