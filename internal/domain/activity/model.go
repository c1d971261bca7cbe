package activity

import (
	"errors"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"time"
)

var (
	ErrLogExists        = errors.New("activity log already exists")
	ErrClientNotManaged = errors.New("client is not connected to this coach")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

const (
	EventWorkoutLogged  = "activity.workout_logged"
	EventRecordAchieved = "activity.record_achieved"
)

type WorkoutLog struct {
	domain.Aggregate
	LogID     string
	ClientID  string
	WorkoutID string
	// CompletedAt is zero when the stored value could not be parsed.
	CompletedAt time.Time
	Volume      float64
}

func NewWorkoutLog(logID, clientID, workoutID string, completedAt time.Time, volume float64) *WorkoutLog {
	w := &WorkoutLog{
		LogID:       logID,
		ClientID:    clientID,
		WorkoutID:   workoutID,
		CompletedAt: completedAt,
		Volume:      volume,
	}
	w.PushEvent(LoggedEvent{Kind: EventWorkoutLogged, At: completedAt, ClientID: clientID, ItemID: logID})
	return w
}

type ScheduledWorkout struct {
	ScheduledID string
	CoachID     string
	ClientID    string
	WorkoutID   string
	// ScheduledFor is zero when the stored value could not be parsed.
	ScheduledFor time.Time
	CreatedAt    time.Time
}

type PersonalRecord struct {
	domain.Aggregate
	RecordID     string
	ClientID     string
	ExerciseID   string
	ExerciseName string
	Weight       float64
	PreviousBest *float64
	AchievedAt   time.Time
}

func NewPersonalRecord(
	recordID, clientID, exerciseID, exerciseName string,
	weight float64,
	previousBest *float64,
	achievedAt time.Time,
) *PersonalRecord {
	r := &PersonalRecord{
		RecordID:     recordID,
		ClientID:     clientID,
		ExerciseID:   exerciseID,
		ExerciseName: exerciseName,
		Weight:       weight,
		PreviousBest: previousBest,
		AchievedAt:   achievedAt,
	}
	if r.Improved() {
		r.PushEvent(LoggedEvent{Kind: EventRecordAchieved, At: achievedAt, ClientID: clientID, ItemID: recordID})
	}
	return r
}

// Improved reports whether the record beats an earlier best. A first ever
// entry for an exercise has nothing to beat.
func (r *PersonalRecord) Improved() bool {
	return r.PreviousBest != nil && r.Weight > *r.PreviousBest
}

type NutritionLog struct {
	LogID    string
	ClientID string
	LoggedAt time.Time
}

// Snapshot is everything the alert and win rules read about one client.
type Snapshot struct {
	ClientID   string
	ClientName string
	Workouts   []WorkoutLog
	Scheduled  []ScheduledWorkout
	Records    []PersonalRecord
	Nutrition  []NutritionLog
	// PriorBestVolume is the best volume logged before the loaded window.
	PriorBestVolume *float64
	// LatestWorkout and LatestNutrition are the newest entries of all time
	// and may predate the loaded window. Zero when unknown.
	LatestWorkout   time.Time
	LatestNutrition time.Time
}

// LastWorkoutAt returns the latest parseable completion time.
func (s *Snapshot) LastWorkoutAt() (time.Time, bool) {
	last := s.LatestWorkout
	for _, w := range s.Workouts {
		if w.CompletedAt.After(last) {
			last = w.CompletedAt
		}
	}
	return last, !last.IsZero()
}

func (s *Snapshot) LastNutritionAt() (time.Time, bool) {
	last := s.LatestNutrition
	for _, n := range s.Nutrition {
		if n.LoggedAt.After(last) {
			last = n.LoggedAt
		}
	}
	return last, !last.IsZero()
}

// LastActivityAt is the latest of any logged activity.
func (s *Snapshot) LastActivityAt() (time.Time, bool) {
	w, _ := s.LastWorkoutAt()
	n, _ := s.LastNutritionAt()
	if n.After(w) {
		w = n
	}
	return w, !w.IsZero()
}

func (s *Snapshot) WorkoutTimes() []time.Time {
	times := make([]time.Time, 0, len(s.Workouts))
	for _, w := range s.Workouts {
		if !w.CompletedAt.IsZero() {
			times = append(times, w.CompletedAt)
		}
	}
	return times
}

func (s *Snapshot) NutritionTimes() []time.Time {
	times := make([]time.Time, 0, len(s.Nutrition))
	for _, n := range s.Nutrition {
		if !n.LoggedAt.IsZero() {
			times = append(times, n.LoggedAt)
		}
	}
	return times
}

// Missed returns scheduled workouts dated before today that have no
// completion of the same workout on or after their scheduled day.
func (s *Snapshot) Missed(now time.Time, loc *time.Location) []ScheduledWorkout {
	today := Day(now, loc)

	var missed []ScheduledWorkout
	for _, sw := range s.Scheduled {
		if sw.ScheduledFor.IsZero() {
			continue
		}
		scheduledDay := Day(sw.ScheduledFor, loc)
		if !scheduledDay.Before(today) {
			continue
		}
		if s.completedSince(sw.WorkoutID, scheduledDay, loc) {
			continue
		}
		missed = append(missed, sw)
	}
	return missed
}

func (s *Snapshot) completedSince(workoutID string, day time.Time, loc *time.Location) bool {
	for _, w := range s.Workouts {
		if w.WorkoutID == "" || w.WorkoutID != workoutID || w.CompletedAt.IsZero() {
			continue
		}
		if !Day(w.CompletedAt, loc).Before(day) {
			return true
		}
	}
	return false
}

type LoggedEvent struct {
	Kind     string
	At       time.Time
	ClientID string
	ItemID   string
}

func (e LoggedEvent) Type() string {
	return e.Kind
}

func (e LoggedEvent) PublishedAt() time.Time {
	return e.At
}
