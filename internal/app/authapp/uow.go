package authapp

import (
	"context"
	"fmt"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	accountstorage "github.com/burenotti/go_coach_backend/internal/adapter/storage/accounts"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"github.com/burenotti/go_coach_backend/internal/domain/auth"
)

type AccountStorage interface {
	Add(ctx context.Context, a *auth.Account) error
	GetByID(ctx context.Context, accountID string) (*auth.Account, error)
	GetByEmail(ctx context.Context, email string) (*auth.Account, error)
	GetBySessionSecret(ctx context.Context, secret string) (*auth.Account, error)
	Persist(ctx context.Context, a *auth.Account) error

	Close() error
	CollectEvents() []domain.Event
}

type AtomicContext struct {
	ctx            context.Context
	db             storage.DBContext
	AccountStorage AccountStorage
}

func (a *AtomicContext) Context() context.Context {
	return a.ctx
}

func (a *AtomicContext) Commit() error {
	return a.db.Commit()
}

func (a *AtomicContext) Close() error {
	if err := a.AccountStorage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}

func (a *AtomicContext) CollectEvents() []domain.Event {
	return a.AccountStorage.CollectEvents()
}

func NewAtomicContext(ctx context.Context, dbContext storage.DBContext) (*AtomicContext, error) {
	return &AtomicContext{
		ctx:            ctx,
		db:             dbContext,
		AccountStorage: accountstorage.NewPostgresStorage(dbContext),
	}, nil
}
