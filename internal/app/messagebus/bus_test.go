package messagebus_test

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/burenotti/go_coach_backend/internal/app/messagebus"
	"github.com/burenotti/go_coach_backend/internal/domain"
)

type testEvent struct {
	kind string
}

func (e testEvent) Type() string {
	return e.kind
}

func (e testEvent) PublishedAt() time.Time {
	return time.Time{}
}

func newBus() *messagebus.MessageBus {
	return messagebus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishRoutesByType(t *testing.T) {
	bus := newBus()

	var a, b atomic.Int32
	bus.Register("a", func(domain.Event) error { a.Add(1); return nil })
	bus.Register("a", func(domain.Event) error { a.Add(1); return nil })
	bus.Register("b", func(domain.Event) error { b.Add(1); return nil })

	if err := bus.PublishEvents(testEvent{"a"}, testEvent{"a"}, testEvent{"c"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bus.Close()

	if a.Load() != 4 || b.Load() != 0 {
		t.Fatalf("expected 4 a and 0 b deliveries, got %d and %d", a.Load(), b.Load())
	}
}

func TestHandlerFailuresDoNotLeak(t *testing.T) {
	bus := newBus()

	var delivered atomic.Int32
	bus.Register("x", func(domain.Event) error { return errors.New("boom") })
	bus.Register("x", func(domain.Event) error { panic("handler bug") })
	bus.Register("x", func(domain.Event) error { delivered.Add(1); return nil })

	if err := bus.PublishEvents(testEvent{"x"}); err != nil {
		t.Fatalf("publish must not report handler errors, got %v", err)
	}
	bus.Close()

	if delivered.Load() != 1 {
		t.Fatalf("expected healthy handler to run, got %d", delivered.Load())
	}
}
