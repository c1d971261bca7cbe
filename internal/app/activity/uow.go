package activityapp

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	activitystorage "github.com/burenotti/go_coach_backend/internal/adapter/storage/activity"
	connectionstorage "github.com/burenotti/go_coach_backend/internal/adapter/storage/connections"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"github.com/burenotti/go_coach_backend/internal/domain/activity"
	"github.com/burenotti/go_coach_backend/internal/domain/connection"
	"log/slog"
	"time"
)

type ActivityStorage interface {
	AddWorkoutLog(ctx context.Context, w *activity.WorkoutLog) error
	AddScheduled(ctx context.Context, sw *activity.ScheduledWorkout) error
	AddRecord(ctx context.Context, r *activity.PersonalRecord) error
	BestWeight(ctx context.Context, clientID, exerciseID string) (*float64, error)
	AddNutritionLog(ctx context.Context, n *activity.NutritionLog) error

	Close() error
	CollectEvents() []domain.Event
}

type ConnectionStorage interface {
	FindActive(ctx context.Context, coachID connection.CoachID, clientID connection.ClientID) (*connection.Connection, error)

	Close() error
	CollectEvents() []domain.Event
}

type AtomicContext struct {
	ctx               context.Context
	db                storage.DBContext
	ActivityStorage   ActivityStorage
	ConnectionStorage ConnectionStorage
}

func (a *AtomicContext) Context() context.Context {
	return a.ctx
}

func (a *AtomicContext) Commit() error {
	return a.db.Commit()
}

func (a *AtomicContext) Close() (err error) {
	if closeErr := a.ActivityStorage.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if closeErr := a.ConnectionStorage.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}

	if err != nil {
		err = errors.Join(fmt.Errorf("failed to close storage"), err)
	}

	return err
}

func (a *AtomicContext) CollectEvents() []domain.Event {
	return append(a.ActivityStorage.CollectEvents(), a.ConnectionStorage.CollectEvents()...)
}

// NewAtomicContextFactory binds the time zone legacy timestamps are read in.
func NewAtomicContextFactory(
	location *time.Location,
	logger *slog.Logger,
) func(context.Context, storage.DBContext) (*AtomicContext, error) {
	return func(ctx context.Context, dbContext storage.DBContext) (*AtomicContext, error) {
		return &AtomicContext{
			ctx:               ctx,
			db:                dbContext,
			ActivityStorage:   activitystorage.NewPostgresStorage(dbContext, location, logger),
			ConnectionStorage: connectionstorage.NewPostgresStorage(dbContext),
		}, nil
	}
}
