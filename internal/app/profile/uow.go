package profileapp

import (
	"context"
	"fmt"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	profilestorage "github.com/burenotti/go_coach_backend/internal/adapter/storage/profiles"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"github.com/burenotti/go_coach_backend/internal/domain/profile"
)

// ProfileStorage keeps coach and client profiles. Persist writes only the
// fields that differ from the stored row.
type ProfileStorage interface {
	Add(ctx context.Context, p profile.Profile) error
	GetByID(ctx context.Context, userID string) (profile.Profile, error)
	Persist(ctx context.Context, p profile.Profile) error

	Close() error
	CollectEvents() []domain.Event
}

type AtomicContext struct {
	ctx            context.Context
	db             storage.DBContext
	ProfileStorage ProfileStorage
}

func (a *AtomicContext) Context() context.Context {
	return a.ctx
}

func (a *AtomicContext) Commit() error {
	return a.db.Commit()
}

func (a *AtomicContext) Close() error {
	if err := a.ProfileStorage.Close(); err != nil {
		return fmt.Errorf("failed to close profile storage: %w", err)
	}
	return nil
}

func (a *AtomicContext) CollectEvents() []domain.Event {
	return a.ProfileStorage.CollectEvents()
}

func NewAtomicContext(ctx context.Context, dbContext storage.DBContext) (*AtomicContext, error) {
	return &AtomicContext{
		ctx:            ctx,
		db:             dbContext,
		ProfileStorage: profilestorage.NewPostgresStorage(dbContext),
	}, nil
}
