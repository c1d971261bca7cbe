package connectionapp

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	"github.com/burenotti/go_coach_backend/internal/app/unitofwork"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"github.com/burenotti/go_coach_backend/internal/domain/connection"
	"github.com/burenotti/go_coach_backend/internal/domain/invite"
	"github.com/burenotti/go_coach_backend/internal/domain/profile"
)

var errNoSQL = errors.New("sql is not available in tests")

// fakeDB satisfies storage.DBContext for units of work whose storages never
// touch SQL.
type fakeDB struct{}

func (fakeDB) Begin(context.Context) (storage.DBContext, error) { return fakeDB{}, nil }
func (fakeDB) Commit() error                                    { return nil }
func (fakeDB) Rollback() error                                  { return nil }

func (fakeDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (fakeDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (fakeDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBus) PublishEvents(events ...domain.Event) error {
	b.mu.Lock()
	b.events = append(b.events, events...)
	b.mu.Unlock()
	return nil
}

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, 0, len(b.events))
	for _, e := range b.events {
		types = append(types, e.Type())
	}
	return types
}

// memory is the shared state behind every in-memory storage, playing the
// role of the database.
type memory struct {
	mu          sync.Mutex
	connections map[connection.ConnectionID]*connection.Connection
	codes       map[invite.CoachID]*invite.Code
	profiles    map[string]profile.Profile

	// beforeAddCode and beforeAddConnection run once before the next insert,
	// to simulate a concurrent writer.
	beforeAddCode       func(m *memory)
	beforeAddConnection func(m *memory)

	// beforePersist runs once, unlocked, before the next status write. A
	// concurrent transaction may run to completion inside it.
	beforePersist func()
}

func newMemory() *memory {
	return &memory{
		connections: make(map[connection.ConnectionID]*connection.Connection),
		codes:       make(map[invite.CoachID]*invite.Code),
		profiles:    make(map[string]profile.Profile),
	}
}

func (m *memory) uow(bus *recordingBus) *unitofwork.UnitOfWork[*AtomicContext] {
	return unitofwork.New[*AtomicContext](
		fakeDB{},
		func(ctx context.Context, db storage.DBContext) (*AtomicContext, error) {
			return &AtomicContext{
				ctx:               ctx,
				db:                db,
				ConnectionStorage: &memConnections{m: m},
				InviteStorage:     &memInvites{m: m},
				ProfileStorage:    &memProfiles{m: m},
			}, nil
		},
		bus,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

type seen struct {
	sources []domain.EventSource
}

func (s *seen) mark(src domain.EventSource) {
	s.sources = append(s.sources, src)
}

func (s *seen) CollectEvents() []domain.Event {
	var events []domain.Event
	for _, src := range s.sources {
		events = append(events, src.PopEvents()...)
	}
	s.sources = nil
	return events
}

func (s *seen) Close() error {
	s.sources = nil
	return nil
}

func cloneConnection(c *connection.Connection) *connection.Connection {
	return &connection.Connection{
		ConnectionID: c.ConnectionID,
		CoachID:      c.CoachID,
		ClientID:     c.ClientID,
		Status:       c.Status,
		RequestedAt:  c.RequestedAt,
		RespondedAt:  c.RespondedAt,
	}
}

type memConnections struct {
	seen
	m      *memory
	loaded map[connection.ConnectionID]connection.Status
}

func (s *memConnections) Add(_ context.Context, c *connection.Connection) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if hook := s.m.beforeAddConnection; hook != nil {
		s.m.beforeAddConnection = nil
		hook(s.m)
	}

	if _, ok := s.m.connections[c.ConnectionID]; ok {
		return connection.ErrConnectionExists
	}
	for _, other := range s.m.connections {
		if other.CoachID == c.CoachID && other.ClientID == c.ClientID {
			if err := other.RequestConflict(); err != nil {
				return err
			}
		}
	}
	s.m.connections[c.ConnectionID] = cloneConnection(c)
	s.mark(c)
	return nil
}

func (s *memConnections) GetByID(_ context.Context, id connection.ConnectionID) (*connection.Connection, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	stored, ok := s.m.connections[id]
	if !ok {
		return nil, connection.ErrConnectionNotFound
	}
	if s.loaded == nil {
		s.loaded = make(map[connection.ConnectionID]connection.Status)
	}
	s.loaded[id] = stored.Status

	c := cloneConnection(stored)
	s.mark(c)
	return c, nil
}

func (s *memConnections) FindActive(
	_ context.Context,
	coachID connection.CoachID,
	clientID connection.ClientID,
) (*connection.Connection, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for _, c := range s.m.connections {
		if c.CoachID == coachID && c.ClientID == clientID && c.Status != connection.StatusDeclined {
			return cloneConnection(c), nil
		}
	}
	return nil, nil
}

func (s *memConnections) List(_ context.Context, userID string, role connection.Role) ([]connection.Listing, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	var listings []connection.Listing
	for _, c := range s.m.connections {
		if own, ok := c.RoleOf(userID); !ok || own != role {
			continue
		}
		otherID, otherRole := c.Counterpart(role)
		party := connection.Party{UserID: otherID, Role: otherRole}
		if p, ok := s.m.profiles[otherID]; ok {
			party.Name = p.DisplayName()
			party.AvatarURL = p.Avatar()
		}
		listings = append(listings, connection.Listing{Connection: cloneConnection(c), Counterpart: party})
	}

	sort.Slice(listings, func(i, j int) bool {
		a, b := listings[i].Connection, listings[j].Connection
		if !a.RequestedAt.Equal(b.RequestedAt) {
			return a.RequestedAt.After(b.RequestedAt)
		}
		return a.ConnectionID < b.ConnectionID
	})
	return listings, nil
}

func (s *memConnections) Persist(_ context.Context, c *connection.Connection) error {
	s.m.mu.Lock()
	hook := s.m.beforePersist
	s.m.beforePersist = nil
	s.m.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	stored, ok := s.m.connections[c.ConnectionID]
	if !ok {
		return connection.ErrConnectionNotFound
	}
	if stored.Status != s.loaded[c.ConnectionID] {
		return connection.ErrAlreadyResponded
	}
	s.m.connections[c.ConnectionID] = cloneConnection(c)
	return nil
}

func (s *memConnections) Delete(_ context.Context, c *connection.Connection) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	stored, ok := s.m.connections[c.ConnectionID]
	if !ok || stored.Status != connection.StatusAccepted {
		return connection.ErrConnectionNotFound
	}
	delete(s.m.connections, c.ConnectionID)
	return nil
}

type memInvites struct {
	seen
	m *memory
}

func (s *memInvites) Add(_ context.Context, c *invite.Code) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if hook := s.m.beforeAddCode; hook != nil {
		s.m.beforeAddCode = nil
		hook(s.m)
	}

	for _, other := range s.m.codes {
		if other.Code == c.Code {
			return invite.ErrCodeExists
		}
	}
	if _, ok := s.m.codes[c.CoachID]; ok {
		return invite.ErrCoachHasCode
	}
	s.m.codes[c.CoachID] = &invite.Code{Code: c.Code, CoachID: c.CoachID, CreatedAt: c.CreatedAt}
	s.mark(c)
	return nil
}

func (s *memInvites) Replace(_ context.Context, c *invite.Code) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.codes[c.CoachID]; !ok {
		return invite.ErrCodeNotFound
	}
	s.m.codes[c.CoachID] = &invite.Code{Code: c.Code, CoachID: c.CoachID, CreatedAt: c.CreatedAt}
	s.mark(c)
	return nil
}

func (s *memInvites) GetByCoach(_ context.Context, coachID invite.CoachID) (*invite.Code, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	c, ok := s.m.codes[coachID]
	if !ok {
		return nil, invite.ErrCodeNotFound
	}
	return &invite.Code{Code: c.Code, CoachID: c.CoachID, CreatedAt: c.CreatedAt}, nil
}

func (s *memInvites) GetByCode(_ context.Context, code string) (*invite.Code, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for _, c := range s.m.codes {
		if c.Code == code {
			return &invite.Code{Code: c.Code, CoachID: c.CoachID, CreatedAt: c.CreatedAt}, nil
		}
	}
	return nil, invite.ErrCodeNotFound
}

func (s *memInvites) Exists(ctx context.Context, code string) (bool, error) {
	_, err := s.GetByCode(ctx, code)
	if errors.Is(err, invite.ErrCodeNotFound) {
		return false, nil
	}
	return err == nil, err
}

type memProfiles struct {
	seen
	m *memory
}

func (s *memProfiles) GetByID(_ context.Context, userID string) (profile.Profile, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	p, ok := s.m.profiles[userID]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return p, nil
}

func sequence(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + strconv.Itoa(n)
	}
}

// tickingClock advances one minute per call.
func tickingClock(t time.Time) func() time.Time {
	var (
		mu  sync.Mutex
		cur = t
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Minute)
		return cur
	}
}
