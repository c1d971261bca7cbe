package dashboardapp

import (
	"context"
	"fmt"
	"github.com/burenotti/go_coach_backend/internal/domain/activity"
	"github.com/burenotti/go_coach_backend/internal/domain/alert"
	"github.com/burenotti/go_coach_backend/internal/domain/connection"
	"github.com/burenotti/go_coach_backend/internal/domain/ledger"
	"github.com/burenotti/go_coach_backend/internal/domain/win"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"time"
)

type ClientDirectory interface {
	ListAcceptedClients(ctx context.Context, coachID connection.CoachID) ([]connection.Party, error)
}

type SnapshotLoader interface {
	Snapshot(ctx context.Context, clientID string, since time.Time) (*activity.Snapshot, error)
}

type Ledger interface {
	Put(ctx context.Context, e ledger.Entry) error
	Remove(ctx context.Context, coachID, itemID string, kind ledger.Kind) error
	ListSince(ctx context.Context, coachID string, since time.Time) ([]ledger.Entry, error)
}

type Config struct {
	// Workers bounds how many client snapshots load at once.
	Workers       int
	ClientTimeout time.Duration
	// Lookback is how far back activity is loaded. It must cover the
	// longest streak milestone.
	Lookback   time.Duration
	Retention  time.Duration
	AlertRules alert.Rules
	WinRules   win.Rules
}

func DefaultConfig() Config {
	return Config{
		Workers:       8,
		ClientTimeout: 5 * time.Second,
		Lookback:      400 * 24 * time.Hour,
		Retention:     ledger.DefaultRetention,
		AlertRules:    alert.DefaultRules(),
		WinRules:      win.DefaultRules(),
	}
}

type Service struct {
	logger    *slog.Logger
	clients   ClientDirectory
	snapshots SnapshotLoader
	ledger    Ledger
	cfg       Config
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(
	logger *slog.Logger,
	clients ClientDirectory,
	snapshots SnapshotLoader,
	ledger Ledger,
	cfg Config,
	opts ...Option,
) *Service {
	defaults := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.ClientTimeout <= 0 {
		cfg.ClientTimeout = defaults.ClientTimeout
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = defaults.Lookback
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaults.Retention
	}
	s := &Service{
		logger:    logger,
		clients:   clients,
		snapshots: snapshots,
		ledger:    ledger,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAlerts evaluates the alert rules for every client the coach manages
// and hides dismissed alerts.
func (s *Service) GetAlerts(ctx context.Context, coachID string) ([]alert.Alert, error) {
	now := s.now()

	entries, err := s.ledger.ListSince(ctx, coachID, ledger.Cutoff(now, s.cfg.Retention))
	if err != nil {
		return nil, fmt.Errorf("load dismissals: %w", err)
	}

	alerts, err := evaluateAll(ctx, s, coachID, now, func(snap *activity.Snapshot) []alert.Alert {
		return alert.Evaluate(snap, now, s.cfg.AlertRules)
	})
	if err != nil {
		return nil, err
	}

	dismissed := ledger.ActiveItems(entries, ledger.KindDismissal, now, s.cfg.Retention)
	alerts = alert.Suppress(alerts, dismissed)
	alert.Sort(alerts)
	return alerts, nil
}

// GetWins evaluates the win rules and marks the ones already celebrated.
func (s *Service) GetWins(ctx context.Context, coachID string) ([]win.Win, error) {
	now := s.now()

	entries, err := s.ledger.ListSince(ctx, coachID, ledger.Cutoff(now, s.cfg.Retention))
	if err != nil {
		return nil, fmt.Errorf("load celebrations: %w", err)
	}

	wins, err := evaluateAll(ctx, s, coachID, now, func(snap *activity.Snapshot) []win.Win {
		return win.Evaluate(snap, now, s.cfg.WinRules)
	})
	if err != nil {
		return nil, err
	}

	celebrated := ledger.ActiveItems(entries, ledger.KindCelebration, now, s.cfg.Retention)
	wins = win.MarkCelebrated(wins, celebrated)
	win.Sort(wins)
	return wins, nil
}

func (s *Service) Dismiss(ctx context.Context, coachID, alertID string) error {
	return s.put(ctx, coachID, alertID, ledger.KindDismissal)
}

func (s *Service) Restore(ctx context.Context, coachID, alertID string) error {
	if alertID == "" {
		return ledger.ErrEmptyItemID
	}
	return s.ledger.Remove(ctx, coachID, alertID, ledger.KindDismissal)
}

func (s *Service) Celebrate(ctx context.Context, coachID, winID string) error {
	return s.put(ctx, coachID, winID, ledger.KindCelebration)
}

func (s *Service) put(ctx context.Context, coachID, itemID string, kind ledger.Kind) error {
	e, err := ledger.NewEntry(coachID, itemID, kind, s.now().UTC())
	if err != nil {
		return err
	}
	return s.ledger.Put(ctx, e)
}

// clientResult is what one client contributes. A failed client contributes
// nothing.
type clientResult[T any] struct {
	items []T
	err   error
}

// evaluateAll loads every client's snapshot on a bounded pool and applies
// eval. Each client writes only its own slot, so no locking is needed.
func evaluateAll[T any](
	ctx context.Context,
	s *Service,
	coachID string,
	now time.Time,
	eval func(*activity.Snapshot) []T,
) ([]T, error) {
	clients, err := s.clients.ListAcceptedClients(ctx, connection.CoachID(coachID))
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	results := make([]clientResult[T], len(clients))
	since := now.Add(-s.cfg.Lookback)

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)

	for i, client := range clients {
		g.Go(func() error {
			results[i] = evaluateClient(ctx, s, client, since, eval)
			return nil
		})
	}
	_ = g.Wait()

	var items []T
	for i, r := range results {
		if r.err != nil {
			s.logger.Error("failed to evaluate client",
				"coach_id", coachID,
				"client_id", clients[i].UserID,
				"error", r.err,
			)
			continue
		}
		items = append(items, r.items...)
	}
	return items, nil
}

func evaluateClient[T any](
	ctx context.Context,
	s *Service,
	client connection.Party,
	since time.Time,
	eval func(*activity.Snapshot) []T,
) (res clientResult[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = clientResult[T]{err: fmt.Errorf("panic while evaluating client: %v", r)}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ClientTimeout)
	defer cancel()

	snap, err := s.snapshots.Snapshot(ctx, client.UserID, since)
	if err != nil {
		return clientResult[T]{err: fmt.Errorf("load snapshot: %w", err)}
	}
	snap.ClientName = client.Name

	return clientResult[T]{items: eval(snap)}
}
