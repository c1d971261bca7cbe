package connectionapp

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	connectionstorage "github.com/burenotti/go_coach_backend/internal/adapter/storage/connections"
	invitestorage "github.com/burenotti/go_coach_backend/internal/adapter/storage/invites"
	profilestorage "github.com/burenotti/go_coach_backend/internal/adapter/storage/profiles"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"github.com/burenotti/go_coach_backend/internal/domain/connection"
	"github.com/burenotti/go_coach_backend/internal/domain/invite"
	"github.com/burenotti/go_coach_backend/internal/domain/profile"
)

type ConnectionStorage interface {
	Add(ctx context.Context, c *connection.Connection) error
	GetByID(ctx context.Context, id connection.ConnectionID) (*connection.Connection, error)
	FindActive(ctx context.Context, coachID connection.CoachID, clientID connection.ClientID) (*connection.Connection, error)
	List(ctx context.Context, userID string, role connection.Role) ([]connection.Listing, error)
	Persist(ctx context.Context, c *connection.Connection) error
	Delete(ctx context.Context, c *connection.Connection) error

	Close() error
	CollectEvents() []domain.Event
}

type InviteStorage interface {
	Add(ctx context.Context, c *invite.Code) error
	Replace(ctx context.Context, c *invite.Code) error
	GetByCoach(ctx context.Context, coachID invite.CoachID) (*invite.Code, error)
	GetByCode(ctx context.Context, code string) (*invite.Code, error)
	Exists(ctx context.Context, code string) (bool, error)

	Close() error
	CollectEvents() []domain.Event
}

type ProfileStorage interface {
	GetByID(ctx context.Context, userID string) (profile.Profile, error)

	Close() error
	CollectEvents() []domain.Event
}

type AtomicContext struct {
	ctx               context.Context
	db                storage.DBContext
	ConnectionStorage ConnectionStorage
	InviteStorage     InviteStorage
	ProfileStorage    ProfileStorage
}

func (a *AtomicContext) Context() context.Context {
	return a.ctx
}

func (a *AtomicContext) Commit() error {
	return a.db.Commit()
}

func (a *AtomicContext) Close() (err error) {
	for _, c := range []interface{ Close() error }{a.ConnectionStorage, a.InviteStorage, a.ProfileStorage} {
		if closeErr := c.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}

	if err != nil {
		err = errors.Join(fmt.Errorf("failed to close storage"), err)
	}

	return err
}

func (a *AtomicContext) CollectEvents() []domain.Event {
	events := a.ConnectionStorage.CollectEvents()
	events = append(events, a.InviteStorage.CollectEvents()...)
	return append(events, a.ProfileStorage.CollectEvents()...)
}

func NewAtomicContext(ctx context.Context, dbContext storage.DBContext) (*AtomicContext, error) {
	return &AtomicContext{
		ctx:               ctx,
		db:                dbContext,
		ConnectionStorage: connectionstorage.NewPostgresStorage(dbContext),
		InviteStorage:     invitestorage.NewPostgresStorage(dbContext),
		ProfileStorage:    profilestorage.NewPostgresStorage(dbContext),
	}, nil
}
