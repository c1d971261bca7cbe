package invite

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	ErrCodeNotFound = errors.New("invite code not found")
	ErrCodeExists   = errors.New("invite code already exists")
	ErrCoachHasCode = errors.New("coach already has an invite code")
	ErrNotCoach     = errors.New("only coaches own invite codes")
)

// Alphabet leaves out 0, O, I and 1 so codes survive being read aloud.
const (
	Alphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength  = 6
	MaxAttempts = 10
)

const (
	EventCodeCreated = "invite.code_created"
	EventCodeRotated = "invite.code_rotated"
)

type CoachID string

type Code struct {
	domain.Aggregate
	Code      string
	CoachID   CoachID
	CreatedAt time.Time
}

func New(coachID CoachID, code string, now time.Time) *Code {
	c := &Code{
		Code:      code,
		CoachID:   coachID,
		CreatedAt: now,
	}
	c.PushEvent(CreatedEvent{Kind: EventCodeCreated, At: now, CoachID: coachID, Code: code})
	return c
}

// Rotate replaces the code. The old one stops resolving once stored.
func (c *Code) Rotate(code string, now time.Time) {
	c.Code = code
	c.CreatedAt = now
	c.PushEvent(CreatedEvent{Kind: EventCodeRotated, At: now, CoachID: c.CoachID, Code: code})
}

// Normalize makes user input comparable with stored codes.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type Generator struct {
	Rand io.Reader
	Now  func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{
		Rand: rand.Reader,
		Now:  time.Now,
	}
}

// Random draws CodeLength characters from Alphabet. len(Alphabet) divides
// 256, so reducing a byte modulo it keeps the distribution uniform.
func (g *Generator) Random() (string, error) {
	var buf [CodeLength]byte
	if _, err := io.ReadFull(g.Rand, buf[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	var sb strings.Builder
	sb.Grow(CodeLength)
	for _, b := range buf {
		sb.WriteByte(Alphabet[int(b)%len(Alphabet)])
	}
	return sb.String(), nil
}

// Fallback derives a code from the base-36 millisecond timestamp. It is only
// used after MaxAttempts collisions.
func (g *Generator) Fallback() string {
	s := strings.ToUpper(strconv.FormatInt(g.Now().UnixMilli(), 36))
	if len(s) > CodeLength {
		return s[len(s)-CodeLength:]
	}
	return strings.Repeat("0", CodeLength-len(s)) + s
}

// Generate returns the first random code that exists reports as free,
// retrying up to MaxAttempts times before falling back to Fallback.
func (g *Generator) Generate(
	ctx context.Context,
	exists func(ctx context.Context, code string) (bool, error),
) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		code, err := g.Random()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return g.Fallback(), nil
}

type CreatedEvent struct {
	Kind    string
	At      time.Time
	CoachID CoachID
	Code    string
}

func (e CreatedEvent) Type() string {
	return e.Kind
}

func (e CreatedEvent) PublishedAt() time.Time {
	return e.At
}
