package activitystorage

import (
	"context"
	"database/sql"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage/pgutil"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"github.com/burenotti/go_coach_backend/internal/domain/activity"
	"github.com/leporo/sqlf"
	"github.com/samber/lo"
	"log/slog"
	"time"
)

// Older clients wrote workout_logs.completed_at and
// scheduled_workouts.scheduled_for as free text, so both are stored as text
// and parsed on read.
const timestampLayout = time.RFC3339Nano

type PostgresStorage struct {
	base     *pgutil.BasePostgresStorage
	location *time.Location
	logger   *slog.Logger
}

func NewPostgresStorage(db storage.DBContext, location *time.Location, logger *slog.Logger) *PostgresStorage {
	if location == nil {
		location = time.UTC
	}
	return &PostgresStorage{
		base:     pgutil.NewBasePostgresStorage(db),
		location: location,
		logger:   logger,
	}
}

func (s *PostgresStorage) AddWorkoutLog(ctx context.Context, w *activity.WorkoutLog) error {
	q := sqlf.InsertInto("workout_logs").
		Set("log_id", w.LogID).
		Set("client_id", w.ClientID).
		Set("workout_id", sql.NullString{String: w.WorkoutID, Valid: w.WorkoutID != ""}).
		Set("completed_at", w.CompletedAt.UTC().Format(timestampLayout)).
		Set("volume", w.Volume)

	if _, err := q.ExecAndClose(ctx, s.base.DB); err != nil {
		if pgutil.ViolatesConstraint(err, "workout_logs_pkey") {
			return activity.ErrLogExists
		}
		return storage.InternalError(err)
	}

	s.base.MarkSeen(w.LogID, w)
	return nil
}

func (s *PostgresStorage) AddScheduled(ctx context.Context, sw *activity.ScheduledWorkout) error {
	q := sqlf.InsertInto("scheduled_workouts").
		Set("scheduled_id", sw.ScheduledID).
		Set("coach_id", sw.CoachID).
		Set("client_id", sw.ClientID).
		Set("workout_id", sw.WorkoutID).
		Set("scheduled_for", sw.ScheduledFor.In(s.location).Format(time.DateOnly)).
		Set("created_at", sw.CreatedAt)

	if _, err := q.ExecAndClose(ctx, s.base.DB); err != nil {
		if pgutil.ViolatesConstraint(err, "scheduled_workouts_pkey") {
			return activity.ErrLogExists
		}
		return storage.InternalError(err)
	}
	return nil
}

func (s *PostgresStorage) AddRecord(ctx context.Context, r *activity.PersonalRecord) error {
	q := sqlf.InsertInto("personal_records").
		Set("record_id", r.RecordID).
		Set("client_id", r.ClientID).
		Set("exercise_id", r.ExerciseID).
		Set("exercise_name", r.ExerciseName).
		Set("weight", r.Weight).
		Set("previous_best", r.PreviousBest).
		Set("achieved_at", r.AchievedAt)

	if _, err := q.ExecAndClose(ctx, s.base.DB); err != nil {
		if pgutil.ViolatesConstraint(err, "personal_records_pkey") {
			return activity.ErrLogExists
		}
		return storage.InternalError(err)
	}

	s.base.MarkSeen(r.RecordID, r)
	return nil
}

// BestWeight returns the heaviest weight the client logged for the exercise,
// or nil when there is none.
func (s *PostgresStorage) BestWeight(ctx context.Context, clientID, exerciseID string) (*float64, error) {
	var best *float64
	q := sqlf.From("personal_records").
		Select("MAX(weight)").To(&best).
		Where("client_id = ? AND exercise_id = ?", clientID, exerciseID)

	if err := q.QueryRowAndClose(ctx, s.base.DB); err != nil && !pgutil.NoRows(err) {
		return nil, storage.InternalError(err)
	}
	return best, nil
}

func (s *PostgresStorage) AddNutritionLog(ctx context.Context, n *activity.NutritionLog) error {
	q := sqlf.InsertInto("nutrition_logs").
		Set("log_id", n.LogID).
		Set("client_id", n.ClientID).
		Set("logged_at", n.LoggedAt)

	if _, err := q.ExecAndClose(ctx, s.base.DB); err != nil {
		if pgutil.ViolatesConstraint(err, "nutrition_logs_pkey") {
			return activity.ErrLogExists
		}
		return storage.InternalError(err)
	}
	return nil
}

// Snapshot loads what the rule engines need about one client. Entries older
// than since are dropped. The best older workout volume is kept as the
// baseline for volume records, and the newest workout and nutrition times
// are kept whatever their age.
func (s *PostgresStorage) Snapshot(ctx context.Context, clientID string, since time.Time) (*activity.Snapshot, error) {
	snap := &activity.Snapshot{ClientID: clientID}

	if err := s.workouts(ctx, snap, since); err != nil {
		return nil, err
	}

	var err error
	if snap.Scheduled, err = s.scheduled(ctx, clientID, since); err != nil {
		return nil, err
	}
	if snap.Records, err = s.records(ctx, clientID, since); err != nil {
		return nil, err
	}
	if snap.Nutrition, err = s.nutrition(ctx, clientID, since); err != nil {
		return nil, err
	}
	if snap.LatestNutrition, err = s.latestNutrition(ctx, clientID); err != nil {
		return nil, err
	}
	return snap, nil
}

// workouts reads every log of the client. Those inside the window become
// snap.Workouts, older ones only feed PriorBestVolume and LatestWorkout.
func (s *PostgresStorage) workouts(ctx context.Context, snap *activity.Snapshot, since time.Time) error {
	var tmp struct {
		LogID       string
		WorkoutID   *string
		CompletedAt *string
		Volume      float64
	}

	q := sqlf.From("workout_logs w").
		Select("w.log_id").To(&tmp.LogID).
		Select("w.workout_id").To(&tmp.WorkoutID).
		Select("w.completed_at").To(&tmp.CompletedAt).
		Select("w.volume").To(&tmp.Volume).
		Where("w.client_id = ?", snap.ClientID)

	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		completedAt, ok := activity.ParseTimestamp(lo.FromPtr(tmp.CompletedAt), s.location)
		if !ok && tmp.CompletedAt != nil {
			s.logger.Warn("unparseable workout completion time",
				"log_id", tmp.LogID,
				"value", *tmp.CompletedAt,
			)
		}

		if completedAt.After(snap.LatestWorkout) {
			snap.LatestWorkout = completedAt
		}

		if ok && completedAt.Before(since) {
			if snap.PriorBestVolume == nil || tmp.Volume > *snap.PriorBestVolume {
				snap.PriorBestVolume = lo.ToPtr(tmp.Volume)
			}
			return
		}

		snap.Workouts = append(snap.Workouts, activity.WorkoutLog{
			LogID:       tmp.LogID,
			ClientID:    snap.ClientID,
			WorkoutID:   lo.FromPtr(tmp.WorkoutID),
			CompletedAt: completedAt,
			Volume:      tmp.Volume,
		})
	})

	if err != nil && !pgutil.NoRows(err) {
		return storage.InternalError(err)
	}
	return nil
}

func (s *PostgresStorage) scheduled(
	ctx context.Context,
	clientID string,
	since time.Time,
) ([]activity.ScheduledWorkout, error) {
	var tmp struct {
		ScheduledID  string
		CoachID      string
		WorkoutID    string
		ScheduledFor *string
		CreatedAt    time.Time
	}

	q := sqlf.From("scheduled_workouts s").
		Select("s.scheduled_id").To(&tmp.ScheduledID).
		Select("s.coach_id").To(&tmp.CoachID).
		Select("s.workout_id").To(&tmp.WorkoutID).
		Select("s.scheduled_for").To(&tmp.ScheduledFor).
		Select("s.created_at").To(&tmp.CreatedAt).
		Where("s.client_id = ?", clientID)

	var result []activity.ScheduledWorkout
	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		scheduledFor, ok := activity.ParseTimestamp(lo.FromPtr(tmp.ScheduledFor), s.location)
		if ok && scheduledFor.Before(since) {
			return
		}
		result = append(result, activity.ScheduledWorkout{
			ScheduledID:  tmp.ScheduledID,
			CoachID:      tmp.CoachID,
			ClientID:     clientID,
			WorkoutID:    tmp.WorkoutID,
			ScheduledFor: scheduledFor,
			CreatedAt:    tmp.CreatedAt,
		})
	})

	if err != nil && !pgutil.NoRows(err) {
		return nil, storage.InternalError(err)
	}
	return result, nil
}

func (s *PostgresStorage) records(
	ctx context.Context,
	clientID string,
	since time.Time,
) ([]activity.PersonalRecord, error) {
	var tmp struct {
		RecordID     string
		ExerciseID   string
		ExerciseName string
		Weight       float64
		PreviousBest *float64
		AchievedAt   time.Time
	}

	q := sqlf.From("personal_records r").
		Select("r.record_id").To(&tmp.RecordID).
		Select("r.exercise_id").To(&tmp.ExerciseID).
		Select("r.exercise_name").To(&tmp.ExerciseName).
		Select("r.weight").To(&tmp.Weight).
		Select("r.previous_best").To(&tmp.PreviousBest).
		Select("r.achieved_at").To(&tmp.AchievedAt).
		Where("r.client_id = ? AND r.achieved_at >= ?", clientID, since)

	var result []activity.PersonalRecord
	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		result = append(result, activity.PersonalRecord{
			RecordID:     tmp.RecordID,
			ClientID:     clientID,
			ExerciseID:   tmp.ExerciseID,
			ExerciseName: tmp.ExerciseName,
			Weight:       tmp.Weight,
			PreviousBest: tmp.PreviousBest,
			AchievedAt:   tmp.AchievedAt,
		})
	})

	if err != nil && !pgutil.NoRows(err) {
		return nil, storage.InternalError(err)
	}
	return result, nil
}

func (s *PostgresStorage) nutrition(
	ctx context.Context,
	clientID string,
	since time.Time,
) ([]activity.NutritionLog, error) {
	var tmp activity.NutritionLog

	q := sqlf.From("nutrition_logs n").
		Select("n.log_id").To(&tmp.LogID).
		Select("n.logged_at").To(&tmp.LoggedAt).
		Where("n.client_id = ? AND n.logged_at >= ?", clientID, since)

	var result []activity.NutritionLog
	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		result = append(result, activity.NutritionLog{
			LogID:    tmp.LogID,
			ClientID: clientID,
			LoggedAt: tmp.LoggedAt,
		})
	})

	if err != nil && !pgutil.NoRows(err) {
		return nil, storage.InternalError(err)
	}
	return result, nil
}

func (s *PostgresStorage) latestNutrition(ctx context.Context, clientID string) (time.Time, error) {
	var latest *time.Time
	q := sqlf.From("nutrition_logs").
		Select("MAX(logged_at)").To(&latest).
		Where("client_id = ?", clientID)

	if err := q.QueryRowAndClose(ctx, s.base.DB); err != nil && !pgutil.NoRows(err) {
		return time.Time{}, storage.InternalError(err)
	}
	return lo.FromPtr(latest), nil
}

func (s *PostgresStorage) Close() error {
	s.base.Close()
	return nil
}

func (s *PostgresStorage) CollectEvents() []domain.Event {
	return s.base.CollectEvents()
}
