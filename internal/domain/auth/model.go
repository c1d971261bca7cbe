package auth

import (
	"errors"
	"fmt"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"strings"
	"time"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrEmailTaken         = fmt.Errorf("%w: email is already registered", ErrAccountExists)
	ErrSessionExists      = errors.New("session already exists")
	ErrInvalidCredentials = errors.New("email or password is invalid")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrSessionEnded       = fmt.Errorf("%w: session has ended", ErrUnauthorized)
)

const (
	EventRegistered = "account.registered"
	EventSignedIn   = "account.signed_in"
	EventSignedOut  = "account.signed_out"
)

// Credentials hashes passwords and mints the secrets sessions are resumed
// with.
type Credentials interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
	NewSecret() string
}

// Client describes the app a session was opened from.
type Client struct {
	App      string
	Platform string
	Model    string
	IP       string
}

type Session struct {
	SessionID string     `diff:"-"`
	Secret    string     `diff:"-"`
	Client    Client     `diff:"-"`
	OpenedAt  time.Time  `diff:"-"`
	ExpiresAt time.Time  `diff:"expires_at"`
	EndedAt   *time.Time `diff:"ended_at"`
}

func (s *Session) Open(now time.Time) bool {
	return s.EndedAt == nil && now.Before(s.ExpiresAt)
}

// Account is the login identity behind a coach or client profile. Its id is
// the user id every other aggregate refers to.
type Account struct {
	domain.Aggregate `diff:"-"`
	AccountID        string     `diff:"-"`
	Email            string     `diff:"email"`
	PasswordHash     string     `diff:"password_hash"`
	CreatedAt        time.Time  `diff:"-"`
	UpdatedAt        time.Time  `diff:"updated_at"`
	Sessions         []*Session `diff:"-"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func Register(accountID, email, password string, creds Credentials, now time.Time) (*Account, error) {
	hash, err := creds.Hash(password)
	if err != nil {
		return nil, err
	}

	a := &Account{
		AccountID:    accountID,
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	a.PushEvent(RegisteredEvent{At: now, AccountID: accountID, Email: a.Email})
	return a, nil
}

// SignIn checks the password and opens a session valid for ttl.
func (a *Account) SignIn(
	creds Credentials,
	password string,
	sessionID string,
	client Client,
	ttl time.Duration,
	now time.Time,
) (*Session, error) {
	if !creds.Verify(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	s := &Session{
		SessionID: sessionID,
		Secret:    creds.NewSecret(),
		Client:    client,
		OpenedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	a.Sessions = append(a.Sessions, s)

	a.PushEvent(SessionEvent{
		Kind:      EventSignedIn,
		At:        now,
		AccountID: a.AccountID,
		SessionID: sessionID,
		Client:    client,
	})
	return s, nil
}

// Resume returns the open session the secret belongs to.
func (a *Account) Resume(secret string, now time.Time) (*Session, error) {
	for _, s := range a.Sessions {
		if s.Secret != secret {
			continue
		}
		if !s.Open(now) {
			return nil, ErrSessionEnded
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown refresh token", ErrUnauthorized)
}

func (a *Account) SignOut(sessionID string, now time.Time) error {
	s := a.session(sessionID)
	if s == nil {
		return fmt.Errorf("%w: unknown session", ErrUnauthorized)
	}
	if s.EndedAt != nil {
		return ErrSessionEnded
	}

	s.EndedAt = &now
	a.UpdatedAt = now

	a.PushEvent(SessionEvent{
		Kind:      EventSignedOut,
		At:        now,
		AccountID: a.AccountID,
		SessionID: sessionID,
		Client:    s.Client,
	})
	return nil
}

func (a *Account) session(id string) *Session {
	for _, s := range a.Sessions {
		if s.SessionID == id {
			return s
		}
	}
	return nil
}

type RegisteredEvent struct {
	At        time.Time
	AccountID string
	Email     string
}

func (e RegisteredEvent) Type() string {
	return EventRegistered
}

func (e RegisteredEvent) PublishedAt() time.Time {
	return e.At
}

type SessionEvent struct {
	Kind      string
	At        time.Time
	AccountID string
	SessionID string
	Client    Client
}

func (e SessionEvent) Type() string {
	return e.Kind
}

func (e SessionEvent) PublishedAt() time.Time {
	return e.At
}
