package authapp

import (
	"context"
	"errors"
	"github.com/burenotti/go_coach_backend/internal/app/unitofwork"
	"github.com/burenotti/go_coach_backend/internal/domain/auth"
	"github.com/google/uuid"
	"log/slog"
	"time"
)

type Service struct {
	logger     *slog.Logger
	Authorizer *Authorizer
	now        func() time.Time
	newID      func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithIDs(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

func NewService(authorizer *Authorizer, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		logger:     logger,
		Authorizer: authorizer,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Tokens struct {
	AccessToken  string
	RefreshToken string
}

func (s *Service) Register(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	accountID string,
	email string,
	password string,
) (a *auth.Account, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		account, err := auth.Register(accountID, email, password, s.Authorizer, s.now().UTC())
		if err != nil {
			return err
		}

		if err := ctx.AccountStorage.Add(ctx.Context(), account); err != nil {
			return err
		}

		a = account
		return ctx.Commit()
	})
	return
}

// SignIn opens a session for the account registered under email. An unknown
// email is reported the same way as a wrong password.
func (s *Service) SignIn(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	client auth.Client,
	email string,
	password string,
) (tokens Tokens, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		a, err := ctx.AccountStorage.GetByEmail(ctx.Context(), auth.NormalizeEmail(email))
		if errors.Is(err, auth.ErrAccountNotFound) {
			return auth.ErrInvalidCredentials
		}
		if err != nil {
			return err
		}

		now := s.now().UTC()
		session, err := a.SignIn(s.Authorizer, password, s.newID(), client, s.Authorizer.SessionTTL, now)
		if err != nil {
			return err
		}

		if err := ctx.AccountStorage.Persist(ctx.Context(), a); err != nil {
			return err
		}

		tokens, err = s.issue(a, session, now)
		if err != nil {
			return err
		}
		return ctx.Commit()
	})
	return
}

// Refresh trades a session secret for a new access token.
func (s *Service) Refresh(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	secret string,
) (tokens Tokens, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		a, err := ctx.AccountStorage.GetBySessionSecret(ctx.Context(), secret)
		if errors.Is(err, auth.ErrAccountNotFound) {
			return auth.ErrUnauthorized
		}
		if err != nil {
			return err
		}

		now := s.now().UTC()
		session, err := a.Resume(secret, now)
		if err != nil {
			return err
		}

		tokens, err = s.issue(a, session, now)
		return err
	})
	return
}

func (s *Service) SignOut(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	accountID string,
	sessionID string,
) error {
	return uow.Atomic(ctx, func(ctx *AtomicContext) error {
		a, err := ctx.AccountStorage.GetByID(ctx.Context(), accountID)
		if err != nil {
			return err
		}

		if err := a.SignOut(sessionID, s.now().UTC()); err != nil {
			return err
		}

		if err := ctx.AccountStorage.Persist(ctx.Context(), a); err != nil {
			return err
		}
		return ctx.Commit()
	})
}

func (s *Service) issue(a *auth.Account, session *auth.Session, now time.Time) (Tokens, error) {
	access, err := s.Authorizer.IssueAccessToken(Principal{UserID: a.AccountID, SessionID: session.SessionID}, now)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: session.Secret}, nil
}
