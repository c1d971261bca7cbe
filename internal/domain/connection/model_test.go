package connection_test

import (
	"errors"
	"testing"
	"time"

	"github.com/burenotti/go_coach_backend/internal/domain/connection"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func pending(t *testing.T) *connection.Connection {
	t.Helper()
	c, err := connection.Request("conn-1", "coach-1", "client-1", nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestRequestCreatesPending(t *testing.T) {
	c := pending(t)
	if c.Status != connection.StatusPending || c.RespondedAt != nil {
		t.Fatalf("expected fresh pending connection, got %+v", c)
	}

	events := c.PopEvents()
	if len(events) != 1 || events[0].Type() != connection.EventRequested {
		t.Fatalf("expected requested event, got %+v", events)
	}
}

func TestRequestRejects(t *testing.T) {
	cases := []struct {
		name     string
		coachID  connection.CoachID
		existing *connection.Connection
		want     error
	}{
		{"self", "client-1", nil, connection.ErrSelfConnection},
		{"pending", "coach-1", &connection.Connection{Status: connection.StatusPending}, connection.ErrRequestPending},
		{"accepted", "coach-1", &connection.Connection{Status: connection.StatusAccepted}, connection.ErrAlreadyConnected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := connection.Request("conn-2", tc.coachID, "client-1", tc.existing, now)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRequestAfterDecline(t *testing.T) {
	declined := &connection.Connection{Status: connection.StatusDeclined}
	if _, err := connection.Request("conn-2", "coach-1", "client-1", declined, now); err != nil {
		t.Fatalf("declined connection must not block a new request: %v", err)
	}
}

func TestRequestConflict(t *testing.T) {
	cases := []struct {
		status connection.Status
		want   error
	}{
		{connection.StatusPending, connection.ErrRequestPending},
		{connection.StatusAccepted, connection.ErrAlreadyConnected},
		{connection.StatusDeclined, nil},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			c := &connection.Connection{Status: tc.status}
			if err := c.RequestConflict(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRespond(t *testing.T) {
	later := now.Add(time.Hour)

	accepted := pending(t)
	if err := accepted.Respond("coach-1", true, later); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted.Status != connection.StatusAccepted || accepted.RespondedAt == nil || !accepted.RespondedAt.Equal(later) {
		t.Fatalf("expected accepted with responded_at, got %+v", accepted)
	}

	declined := pending(t)
	if err := declined.Respond("coach-1", false, later); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if declined.Status != connection.StatusDeclined {
		t.Fatalf("expected declined, got %s", declined.Status)
	}
}

func TestRespondTwice(t *testing.T) {
	c := pending(t)
	if err := c.Respond("coach-1", true, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Respond("coach-1", false, now); !errors.Is(err, connection.ErrAlreadyResponded) {
		t.Fatalf("expected ErrAlreadyResponded, got %v", err)
	}
	if c.Status != connection.StatusAccepted {
		t.Fatalf("second response must not change status, got %s", c.Status)
	}
}

func TestRespondByStranger(t *testing.T) {
	c := pending(t)
	if err := c.Respond("coach-2", true, now); !errors.Is(err, connection.ErrConnectionNotFound) {
		t.Fatalf("expected ErrConnectionNotFound, got %v", err)
	}
	if err := c.Respond("client-1", true, now); !errors.Is(err, connection.ErrConnectionNotFound) {
		t.Fatalf("client must not respond, got %v", err)
	}
}

func TestDisconnect(t *testing.T) {
	c := pending(t)
	if err := c.Disconnect("coach-1", now); !errors.Is(err, connection.ErrConnectionNotFound) {
		t.Fatalf("pending connection cannot be disconnected, got %v", err)
	}

	if err := c.Respond("coach-1", true, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Disconnect("stranger", now); !errors.Is(err, connection.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	for _, user := range []string{"coach-1", "client-1"} {
		if err := c.Disconnect(user, now); err != nil {
			t.Fatalf("%s should be able to disconnect: %v", user, err)
		}
	}
}

func TestCounterpart(t *testing.T) {
	c := pending(t)

	role, ok := c.RoleOf("client-1")
	if !ok || role != connection.RoleClient {
		t.Fatalf("expected client role, got %q %v", role, ok)
	}

	id, other := c.Counterpart(connection.RoleClient)
	if id != "coach-1" || other != connection.RoleCoach {
		t.Fatalf("expected coach counterpart, got %s %s", id, other)
	}

	id, other = c.Counterpart(connection.RoleCoach)
	if id != "client-1" || other != connection.RoleClient {
		t.Fatalf("expected client counterpart, got %s %s", id, other)
	}
}
