package activityapp

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	"github.com/burenotti/go_coach_backend/internal/app/unitofwork"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"github.com/burenotti/go_coach_backend/internal/domain/activity"
	"github.com/burenotti/go_coach_backend/internal/domain/connection"
)

type fakeDB struct{}

func (fakeDB) Begin(context.Context) (storage.DBContext, error) { return fakeDB{}, nil }
func (fakeDB) Commit() error                                    { return nil }
func (fakeDB) Rollback() error                                  { return nil }

func (fakeDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errors.New("no sql in tests")
}

func (fakeDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("no sql in tests")
}

func (fakeDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

type bus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *bus) PublishEvents(events ...domain.Event) error {
	b.mu.Lock()
	b.events = append(b.events, events...)
	b.mu.Unlock()
	return nil
}

type memActivity struct {
	workouts  []*activity.WorkoutLog
	scheduled []*activity.ScheduledWorkout
	records   []*activity.PersonalRecord
	nutrition []*activity.NutritionLog
	pending   []domain.EventSource
}

func (m *memActivity) AddWorkoutLog(_ context.Context, w *activity.WorkoutLog) error {
	m.workouts = append(m.workouts, w)
	m.pending = append(m.pending, w)
	return nil
}

func (m *memActivity) AddScheduled(_ context.Context, sw *activity.ScheduledWorkout) error {
	m.scheduled = append(m.scheduled, sw)
	return nil
}

func (m *memActivity) AddRecord(_ context.Context, r *activity.PersonalRecord) error {
	m.records = append(m.records, r)
	m.pending = append(m.pending, r)
	return nil
}

func (m *memActivity) BestWeight(_ context.Context, clientID, exerciseID string) (*float64, error) {
	var best *float64
	for _, r := range m.records {
		if r.ClientID != clientID || r.ExerciseID != exerciseID {
			continue
		}
		if best == nil || r.Weight > *best {
			w := r.Weight
			best = &w
		}
	}
	return best, nil
}

func (m *memActivity) AddNutritionLog(_ context.Context, n *activity.NutritionLog) error {
	m.nutrition = append(m.nutrition, n)
	return nil
}

func (m *memActivity) Close() error {
	return nil
}

func (m *memActivity) CollectEvents() []domain.Event {
	var events []domain.Event
	for _, src := range m.pending {
		events = append(events, src.PopEvents()...)
	}
	m.pending = nil
	return events
}

type memConnections struct {
	active map[string]connection.Status
}

func (m *memConnections) FindActive(
	_ context.Context,
	coachID connection.CoachID,
	clientID connection.ClientID,
) (*connection.Connection, error) {
	status, ok := m.active[string(coachID)+"/"+string(clientID)]
	if !ok {
		return nil, nil
	}
	return &connection.Connection{CoachID: coachID, ClientID: clientID, Status: status}, nil
}

func (m *memConnections) Close() error {
	return nil
}

func (m *memConnections) CollectEvents() []domain.Event {
	return nil
}

type fixture struct {
	activity *memActivity
	conns    *memConnections
	bus      *bus
	svc      *Service
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	n := 0
	f := &fixture{
		activity: &memActivity{},
		conns: &memConnections{active: map[string]connection.Status{
			"coach/ann": connection.StatusAccepted,
			"coach/bob": connection.StatusPending,
		}},
		bus: &bus{},
		now: now,
	}
	f.svc = New(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(func() time.Time { return now }),
		WithIDs(func() string { n++; return "id-" + strconv.Itoa(n) }),
	)
	return f
}

func (f *fixture) uow() *unitofwork.UnitOfWork[*AtomicContext] {
	return unitofwork.New[*AtomicContext](
		fakeDB{},
		func(ctx context.Context, db storage.DBContext) (*AtomicContext, error) {
			return &AtomicContext{ctx: ctx, db: db, ActivityStorage: f.activity, ConnectionStorage: f.conns}, nil
		},
		f.bus,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestLogWorkoutDefaultsToNow(t *testing.T) {
	f := newFixture(t)

	w, err := f.svc.LogWorkout(context.Background(), f.uow(), "ann", "w1", time.Time{}, 1200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.CompletedAt.Equal(f.now) || w.LogID != "id-1" {
		t.Fatalf("unexpected workout %+v", w)
	}
	if len(f.bus.events) != 1 || f.bus.events[0].Type() != activity.EventWorkoutLogged {
		t.Fatalf("expected workout logged event, got %+v", f.bus.events)
	}
}

func TestScheduleWorkoutRequiresAcceptedConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tomorrow := f.now.AddDate(0, 0, 1)

	if _, err := f.svc.ScheduleWorkout(ctx, f.uow(), "coach", "ann", "w1", tomorrow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, client := range []string{"bob", "carol"} {
		_, err := f.svc.ScheduleWorkout(ctx, f.uow(), "coach", client, "w1", tomorrow)
		if !errors.Is(err, activity.ErrClientNotManaged) {
			t.Fatalf("%s: expected ErrClientNotManaged, got %v", client, err)
		}
	}

	if _, err := f.svc.ScheduleWorkout(ctx, f.uow(), "coach", "ann", "w1", time.Time{}); !errors.Is(err, activity.ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}

	if len(f.activity.scheduled) != 1 {
		t.Fatalf("expected only the managed client's workout to be stored, got %d", len(f.activity.scheduled))
	}
}

func TestRecordLiftComparesWithBest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.RecordLift(ctx, f.uow(), "ann", "squat", "Squat", 100, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.PreviousBest != nil || first.Improved() {
		t.Fatalf("first lift has nothing to beat, got %+v", first)
	}

	second, err := f.svc.RecordLift(ctx, f.uow(), "ann", "squat", "Squat", 110, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.PreviousBest == nil || *second.PreviousBest != 100 || !second.Improved() {
		t.Fatalf("expected improvement over 100, got %+v", second)
	}

	var records int
	for _, e := range f.bus.events {
		if e.Type() == activity.EventRecordAchieved {
			records++
		}
	}
	if records != 1 {
		t.Fatalf("expected one record event, got %d", records)
	}
}

func TestLogNutrition(t *testing.T) {
	f := newFixture(t)
	at := f.now.Add(-time.Hour)

	n, err := f.svc.LogNutrition(context.Background(), f.uow(), "ann", at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.LoggedAt.Equal(at) || len(f.activity.nutrition) != 1 {
		t.Fatalf("unexpected nutrition log %+v", n)
	}
}
