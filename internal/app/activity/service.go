package activityapp

import (
	"context"
	"github.com/burenotti/go_coach_backend/internal/app/unitofwork"
	"github.com/burenotti/go_coach_backend/internal/domain/activity"
	"github.com/burenotti/go_coach_backend/internal/domain/connection"
	"github.com/google/uuid"
	"log/slog"
	"time"
)

type Service struct {
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithIDs(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

func New(logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) LogWorkout(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	clientID string,
	workoutID string,
	completedAt time.Time,
	volume float64,
) (w *activity.WorkoutLog, err error) {
	if completedAt.IsZero() {
		completedAt = s.now()
	}

	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		w = activity.NewWorkoutLog(s.newID(), clientID, workoutID, completedAt.UTC(), volume)
		if err := ctx.ActivityStorage.AddWorkoutLog(ctx.Context(), w); err != nil {
			return err
		}
		return ctx.Commit()
	})
	return
}

// ScheduleWorkout plans a workout for a client the coach manages.
func (s *Service) ScheduleWorkout(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	coachID string,
	clientID string,
	workoutID string,
	scheduledFor time.Time,
) (sw *activity.ScheduledWorkout, err error) {
	if scheduledFor.IsZero() {
		return nil, activity.ErrInvalidTimestamp
	}

	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		c, err := ctx.ConnectionStorage.FindActive(
			ctx.Context(),
			connection.CoachID(coachID),
			connection.ClientID(clientID),
		)
		if err != nil {
			return err
		}
		if c == nil || c.Status != connection.StatusAccepted {
			return activity.ErrClientNotManaged
		}

		sw = &activity.ScheduledWorkout{
			ScheduledID:  s.newID(),
			CoachID:      coachID,
			ClientID:     clientID,
			WorkoutID:    workoutID,
			ScheduledFor: scheduledFor,
			CreatedAt:    s.now().UTC(),
		}
		if err := ctx.ActivityStorage.AddScheduled(ctx.Context(), sw); err != nil {
			return err
		}
		return ctx.Commit()
	})
	return
}

// RecordLift stores a lift and compares it with the client's previous best
// for the exercise.
func (s *Service) RecordLift(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	clientID string,
	exerciseID string,
	exerciseName string,
	weight float64,
	achievedAt time.Time,
) (r *activity.PersonalRecord, err error) {
	if achievedAt.IsZero() {
		achievedAt = s.now()
	}

	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		previous, err := ctx.ActivityStorage.BestWeight(ctx.Context(), clientID, exerciseID)
		if err != nil {
			return err
		}

		r = activity.NewPersonalRecord(s.newID(), clientID, exerciseID, exerciseName, weight, previous, achievedAt.UTC())
		if err := ctx.ActivityStorage.AddRecord(ctx.Context(), r); err != nil {
			return err
		}
		return ctx.Commit()
	})
	return
}

func (s *Service) LogNutrition(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	clientID string,
	loggedAt time.Time,
) (n *activity.NutritionLog, err error) {
	if loggedAt.IsZero() {
		loggedAt = s.now()
	}

	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		n = &activity.NutritionLog{
			LogID:    s.newID(),
			ClientID: clientID,
			LoggedAt: loggedAt.UTC(),
		}
		if err := ctx.ActivityStorage.AddNutritionLog(ctx.Context(), n); err != nil {
			return err
		}
		return ctx.Commit()
	})
	return
}
