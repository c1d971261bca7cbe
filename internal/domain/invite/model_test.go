package invite_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/burenotti/go_coach_backend/internal/domain/invite"
)

func TestRandomUsesAlphabet(t *testing.T) {
	g := &invite.Generator{Rand: bytes.NewReader([]byte{0, 1, 31, 32, 255, 8})}

	code, err := g.Random()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "AB9A9J" {
		t.Fatalf("expected AB9A9J, got %s", code)
	}
}

func TestRandomNeverUsesAmbiguousCharacters(t *testing.T) {
	g := invite.NewGenerator()
	for i := 0; i < 200; i++ {
		code, err := g.Random()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(code) != invite.CodeLength {
			t.Fatalf("expected %d characters, got %q", invite.CodeLength, code)
		}
		if strings.ContainsAny(code, "0O1I") {
			t.Fatalf("code %q contains an ambiguous character", code)
		}
	}
}

func TestRandomShortRead(t *testing.T) {
	g := &invite.Generator{Rand: bytes.NewReader([]byte{1, 2})}
	if _, err := g.Random(); err == nil {
		t.Fatalf("expected error on short read")
	}
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	g := invite.NewGenerator()
	calls := 0
	exists := func(_ context.Context, _ string) (bool, error) {
		calls++
		return calls < 3, nil
	}

	code, err := g.Generate(context.Background(), exists)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 || len(code) != invite.CodeLength {
		t.Fatalf("expected third candidate to win, got %q after %d calls", code, calls)
	}
}

func TestGenerateFallsBackAfterMaxAttempts(t *testing.T) {
	g := invite.NewGenerator()
	g.Now = func() time.Time { return time.UnixMilli(1700000000000) }

	calls := 0
	code, err := g.Generate(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != invite.MaxAttempts {
		t.Fatalf("expected %d attempts, got %d", invite.MaxAttempts, calls)
	}
	if code != g.Fallback() || len(code) != invite.CodeLength {
		t.Fatalf("expected fallback code, got %q", code)
	}
}

func TestGeneratePropagatesLookupError(t *testing.T) {
	boom := errors.New("boom")
	_, err := invite.NewGenerator().Generate(context.Background(), func(context.Context, string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestFallbackPadsShortValues(t *testing.T) {
	g := &invite.Generator{Now: func() time.Time { return time.UnixMilli(35) }}
	if got := g.Fallback(); got != "00000Z" {
		t.Fatalf("expected 00000Z, got %s", got)
	}
}

func TestNormalize(t *testing.T) {
	if got := invite.Normalize("  abc23x \n"); got != "ABC23X" {
		t.Fatalf("expected ABC23X, got %q", got)
	}
}

func TestRotateKeepsCoach(t *testing.T) {
	now := time.Now()
	c := invite.New("coach-1", "AAAAAA", now)
	c.Rotate("BBBBBB", now.Add(time.Minute))

	if c.Code != "BBBBBB" || c.CoachID != "coach-1" {
		t.Fatalf("unexpected code after rotate: %+v", c)
	}

	events := c.PopEvents()
	if len(events) != 2 || events[1].Type() != invite.EventCodeRotated {
		t.Fatalf("expected created and rotated events, got %+v", events)
	}
}
