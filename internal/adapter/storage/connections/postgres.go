package connectionstorage

import (
	"context"
	"database/sql"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage/pgutil"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"github.com/burenotti/go_coach_backend/internal/domain/connection"
	"github.com/burenotti/go_coach_backend/internal/domain/profile"
	"github.com/leporo/sqlf"
	"github.com/r3labs/diff"
	"time"
)

type PostgresStorage struct {
	base *pgutil.BasePostgresStorage
	// loaded keeps each connection as it was first read in this unit of
	// work. Persist compares against it, not against a fresh read.
	loaded map[connection.ConnectionID]*connection.Connection
}

func NewPostgresStorage(db storage.DBContext) *PostgresStorage {
	return &PostgresStorage{
		base:   pgutil.NewBasePostgresStorage(db),
		loaded: make(map[connection.ConnectionID]*connection.Connection),
	}
}

// Add inserts a pending connection. When a concurrent request already holds
// the pair, the row that won decides the error: ALREADY_CONNECTED if it has
// been accepted since, REQUEST_PENDING otherwise. The conflict is absorbed
// by ON CONFLICT so the transaction stays usable for that read.
func (s *PostgresStorage) Add(ctx context.Context, c *connection.Connection) error {
	q := sqlf.InsertInto("connections").
		Set("connection_id", c.ConnectionID).
		Set("coach_id", c.CoachID).
		Set("client_id", c.ClientID).
		Set("status", c.Status).
		Set("requested_at", c.RequestedAt).
		Set("responded_at", c.RespondedAt).
		Clause("ON CONFLICT (coach_id, client_id) WHERE status <> 'declined' DO NOTHING")

	res, err := q.ExecAndClose(ctx, s.base.DB)
	if err != nil {
		if pgutil.ViolatesConstraint(err, "connections_pkey") {
			return connection.ErrConnectionExists
		}
		return storage.InternalError(err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return storage.InternalError(err)
	}
	if inserted == 0 {
		return s.pairConflict(ctx, c.CoachID, c.ClientID)
	}

	s.base.MarkSeen(string(c.ConnectionID), c)
	return nil
}

func (s *PostgresStorage) pairConflict(ctx context.Context, coachID connection.CoachID, clientID connection.ClientID) error {
	winner, err := s.FindActive(ctx, coachID, clientID)
	if err != nil {
		return err
	}
	if winner == nil {
		// declined between the insert and this read
		return connection.ErrRequestPending
	}
	return winner.RequestConflict()
}

func (s *PostgresStorage) get(
	ctx context.Context,
	modify func(stmt *sqlf.Stmt) *sqlf.Stmt,
) (map[connection.ConnectionID]*connection.Connection, error) {
	var tmp struct {
		ConnectionID string
		CoachID      string
		ClientID     string
		Status       string
		RequestedAt  time.Time
		RespondedAt  *time.Time
	}

	q := sqlf.From("connections c").
		Select("c.connection_id").To(&tmp.ConnectionID).
		Select("c.coach_id").To(&tmp.CoachID).
		Select("c.client_id").To(&tmp.ClientID).
		Select("c.status").To(&tmp.Status).
		Select("c.requested_at").To(&tmp.RequestedAt).
		Select("c.responded_at").To(&tmp.RespondedAt)

	q = modify(q)

	conns := make(map[connection.ConnectionID]*connection.Connection)

	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		id := connection.ConnectionID(tmp.ConnectionID)
		conns[id] = &connection.Connection{
			ConnectionID: id,
			CoachID:      connection.CoachID(tmp.CoachID),
			ClientID:     connection.ClientID(tmp.ClientID),
			Status:       connection.Status(tmp.Status),
			RequestedAt:  tmp.RequestedAt,
			RespondedAt:  tmp.RespondedAt,
		}
	})

	if err != nil && !pgutil.NoRows(err) {
		return nil, storage.InternalError(err)
	}

	return conns, nil
}

func (s *PostgresStorage) GetByID(ctx context.Context, id connection.ConnectionID) (*connection.Connection, error) {
	if !pgutil.IsID(string(id)) {
		return nil, connection.ErrConnectionNotFound
	}
	conns, err := s.get(ctx, func(stmt *sqlf.Stmt) *sqlf.Stmt {
		return stmt.Where("c.connection_id = ?", id)
	})

	c, err := pgutil.PeekOrErr(conns, err, connection.ErrConnectionNotFound)
	if err != nil {
		return nil, err
	}
	if _, ok := s.loaded[c.ConnectionID]; !ok {
		s.loaded[c.ConnectionID] = snapshot(c)
	}
	s.base.MarkSeen(string(c.ConnectionID), c)
	return c, nil
}

// FindActive returns the pair's pending or accepted connection, or nil when
// the pair has none.
func (s *PostgresStorage) FindActive(
	ctx context.Context,
	coachID connection.CoachID,
	clientID connection.ClientID,
) (*connection.Connection, error) {
	if !pgutil.IsID(string(coachID), string(clientID)) {
		return nil, nil
	}
	conns, err := s.get(ctx, func(stmt *sqlf.Stmt) *sqlf.Stmt {
		return stmt.Where("c.coach_id = ? AND c.client_id = ? AND c.status <> ?", coachID, clientID, connection.StatusDeclined)
	})
	if err != nil {
		return nil, err
	}
	return pgutil.Peek(conns), nil
}

// List returns every connection userID takes part in as role, newest
// first, with the other side's profile.
func (s *PostgresStorage) List(
	ctx context.Context,
	userID string,
	role connection.Role,
) ([]connection.Listing, error) {
	if !pgutil.IsID(userID) {
		return nil, nil
	}

	var tmp struct {
		ConnectionID string
		CoachID      string
		ClientID     string
		Status       string
		RequestedAt  time.Time
		RespondedAt  *time.Time
		FirstName    *string
		LastName     *string
		AvatarURL    *string
	}

	ownColumn, otherColumn, otherTable := "c.client_id", "c.coach_id", "coaches_profiles"
	if role == connection.RoleCoach {
		ownColumn, otherColumn, otherTable = "c.coach_id", "c.client_id", "clients_profiles"
	}

	q := sqlf.From("connections c").
		LeftJoin(otherTable+" p", "p.user_id = "+otherColumn).
		Where(ownColumn+" = ?", userID).
		OrderBy("c.requested_at DESC", "c.connection_id").
		Select("c.connection_id").To(&tmp.ConnectionID).
		Select("c.coach_id").To(&tmp.CoachID).
		Select("c.client_id").To(&tmp.ClientID).
		Select("c.status").To(&tmp.Status).
		Select("c.requested_at").To(&tmp.RequestedAt).
		Select("c.responded_at").To(&tmp.RespondedAt).
		Select("p.first_name").To(&tmp.FirstName).
		Select("p.last_name").To(&tmp.LastName).
		Select("p.avatar_url").To(&tmp.AvatarURL)

	var result []connection.Listing
	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		c := &connection.Connection{
			ConnectionID: connection.ConnectionID(tmp.ConnectionID),
			CoachID:      connection.CoachID(tmp.CoachID),
			ClientID:     connection.ClientID(tmp.ClientID),
			Status:       connection.Status(tmp.Status),
			RequestedAt:  tmp.RequestedAt,
			RespondedAt:  tmp.RespondedAt,
		}
		otherID, otherRole := c.Counterpart(role)
		result = append(result, connection.Listing{
			Connection: c,
			Counterpart: connection.Party{
				UserID:    otherID,
				Role:      otherRole,
				Name:      profile.FullName(deref(tmp.FirstName), deref(tmp.LastName)),
				AvatarURL: deref(tmp.AvatarURL),
			},
		})
	})

	if err != nil && !pgutil.NoRows(err) {
		return nil, storage.InternalError(err)
	}

	return result, nil
}

// ListAcceptedClients returns the clients the coach currently manages.
func (s *PostgresStorage) ListAcceptedClients(ctx context.Context, coachID connection.CoachID) ([]connection.Party, error) {
	if !pgutil.IsID(string(coachID)) {
		return nil, nil
	}
	var tmp struct {
		ClientID  string
		FirstName *string
		LastName  *string
		AvatarURL *string
	}

	q := sqlf.From("connections c").
		LeftJoin("clients_profiles p", "p.user_id = c.client_id").
		Where("c.coach_id = ? AND c.status = ?", coachID, connection.StatusAccepted).
		OrderBy("c.client_id").
		Select("c.client_id").To(&tmp.ClientID).
		Select("p.first_name").To(&tmp.FirstName).
		Select("p.last_name").To(&tmp.LastName).
		Select("p.avatar_url").To(&tmp.AvatarURL)

	var result []connection.Party
	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		result = append(result, connection.Party{
			UserID:    tmp.ClientID,
			Role:      connection.RoleClient,
			Name:      profile.FullName(deref(tmp.FirstName), deref(tmp.LastName)),
			AvatarURL: deref(tmp.AvatarURL),
		})
	})

	if err != nil && !pgutil.NoRows(err) {
		return nil, storage.InternalError(err)
	}

	return result, nil
}

// Persist writes the status transition only if the row still carries the
// status it had when first read, so two concurrent responses cannot both win.
func (s *PostgresStorage) Persist(ctx context.Context, c *connection.Connection) error {
	dbState, ok := s.loaded[c.ConnectionID]
	if !ok {
		if _, err := s.GetByID(ctx, c.ConnectionID); err != nil {
			return err
		}
		dbState = s.loaded[c.ConnectionID]
	}
	s.base.MarkSeen(string(c.ConnectionID), c)

	changes, err := diff.Diff(dbState, c)
	if err != nil {
		return storage.InternalError(err)
	}
	if len(changes) == 0 {
		return nil
	}

	q := sqlf.Update("connections").
		Where("connection_id = ? AND status = ?", c.ConnectionID, dbState.Status)
	q = pgutil.MakeUpdateQuery(q, changes)

	res, err := q.ExecAndClose(ctx, s.base.DB)
	if err := pgutil.AssertUpdated(res, err, connection.ErrAlreadyResponded); err != nil {
		return err
	}

	s.loaded[c.ConnectionID] = snapshot(c)
	return nil
}

// Delete removes an accepted connection.
func (s *PostgresStorage) Delete(ctx context.Context, c *connection.Connection) error {
	q := sqlf.DeleteFrom("connections").
		Where("connection_id = ? AND status = ?", c.ConnectionID, connection.StatusAccepted)

	res, err := q.ExecAndClose(ctx, s.base.DB)
	if err := pgutil.AssertUpdated(res, err, connection.ErrConnectionNotFound); err != nil {
		return err
	}

	s.base.MarkSeen(string(c.ConnectionID), c)
	return nil
}

func (s *PostgresStorage) Close() error {
	s.base.Close()
	s.loaded = make(map[connection.ConnectionID]*connection.Connection)
	return nil
}

func (s *PostgresStorage) CollectEvents() []domain.Event {
	return s.base.CollectEvents()
}

func snapshot(c *connection.Connection) *connection.Connection {
	return &connection.Connection{
		ConnectionID: c.ConnectionID,
		CoachID:      c.CoachID,
		ClientID:     c.ClientID,
		Status:       c.Status,
		RequestedAt:  c.RequestedAt,
		RespondedAt:  c.RespondedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
