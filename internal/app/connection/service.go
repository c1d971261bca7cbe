package connectionapp

import (
	"context"
	"errors"
	"github.com/burenotti/go_coach_backend/internal/app/unitofwork"
	"github.com/burenotti/go_coach_backend/internal/domain/connection"
	"github.com/burenotti/go_coach_backend/internal/domain/invite"
	"github.com/burenotti/go_coach_backend/internal/domain/profile"
	"github.com/google/uuid"
	"log/slog"
	"time"
)

// createAttempts bounds how often code creation is retried after losing a
// race against a concurrent insert.
const createAttempts = 3

type Service struct {
	logger    *slog.Logger
	generator *invite.Generator
	now       func() time.Time
	newID     func() string
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

func New(logger *slog.Logger, generator *invite.Generator, opts ...Option) *Service {
	s := &Service{
		logger:    logger,
		generator: generator,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RequestResult struct {
	ConnectionID connection.ConnectionID
	CoachName    string
}

// RequestConnection redeems an invite code on behalf of a client.
func (s *Service) RequestConnection(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	clientID string,
	code string,
) (res RequestResult, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		inv, err := s.lookupCode(ctx, code)
		if err != nil {
			return err
		}

		coachID := connection.CoachID(inv.CoachID)
		if string(coachID) == clientID {
			return connection.ErrSelfConnection
		}

		if err := s.requireClient(ctx, clientID); err != nil {
			return err
		}

		existing, err := ctx.ConnectionStorage.FindActive(ctx.Context(), coachID, connection.ClientID(clientID))
		if err != nil {
			return err
		}

		c, err := connection.Request(
			connection.ConnectionID(s.newID()),
			coachID,
			connection.ClientID(clientID),
			existing,
			s.now().UTC(),
		)
		if err != nil {
			return err
		}

		if err := ctx.ConnectionStorage.Add(ctx.Context(), c); err != nil {
			return err
		}

		res = RequestResult{
			ConnectionID: c.ConnectionID,
			CoachName:    s.displayName(ctx, string(coachID)),
		}
		return ctx.Commit()
	})
	return
}

// RespondToConnection lets the coach accept or decline a pending request.
func (s *Service) RespondToConnection(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	coachID string,
	connectionID string,
	accept bool,
) (status connection.Status, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		c, err := ctx.ConnectionStorage.GetByID(ctx.Context(), connection.ConnectionID(connectionID))
		if err != nil {
			return err
		}

		if err := c.Respond(connection.CoachID(coachID), accept, s.now().UTC()); err != nil {
			return err
		}

		if err := ctx.ConnectionStorage.Persist(ctx.Context(), c); err != nil {
			return err
		}

		status = c.Status
		return ctx.Commit()
	})
	return
}

// ListConnections returns the caller's connections in the role their
// profile gives them. A caller without a profile is listed as a client, the
// same way RequestConnection treats them.
func (s *Service) ListConnections(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	userID string,
) (role connection.Role, listings []connection.Listing, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		p, err := ctx.ProfileStorage.GetByID(ctx.Context(), userID)
		switch {
		case errors.Is(err, profile.ErrProfileNotFound):
			role = connection.RoleClient
		case err != nil:
			return err
		default:
			role = roleOf(p)
		}

		listings, err = ctx.ConnectionStorage.List(ctx.Context(), userID, role)
		return err
	})
	return
}

func (s *Service) Disconnect(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	userID string,
	connectionID string,
) error {
	return uow.Atomic(ctx, func(ctx *AtomicContext) error {
		c, err := ctx.ConnectionStorage.GetByID(ctx.Context(), connection.ConnectionID(connectionID))
		if err != nil {
			return err
		}

		if err := c.Disconnect(userID, s.now().UTC()); err != nil {
			return err
		}

		if err := ctx.ConnectionStorage.Delete(ctx.Context(), c); err != nil {
			return err
		}

		return ctx.Commit()
	})
}

// GetOrCreateCode returns the coach's invite code, creating it on first use.
func (s *Service) GetOrCreateCode(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	coachID string,
) (code *invite.Code, err error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
			if err := s.requireCoach(ctx, coachID); err != nil {
				return err
			}

			existing, err := ctx.InviteStorage.GetByCoach(ctx.Context(), invite.CoachID(coachID))
			if err == nil {
				code = existing
				return nil
			}
			if !errors.Is(err, invite.ErrCodeNotFound) {
				return err
			}

			value, err := s.generator.Generate(ctx.Context(), ctx.InviteStorage.Exists)
			if err != nil {
				return err
			}

			code = invite.New(invite.CoachID(coachID), value, s.now().UTC())
			if err := ctx.InviteStorage.Add(ctx.Context(), code); err != nil {
				return err
			}
			return ctx.Commit()
		})

		if !retryable(err) {
			return
		}
		s.logger.Debug("invite code creation raced, retrying", "coach_id", coachID, "attempt", attempt+1)
	}
	return nil, err
}

// RotateCode replaces the coach's invite code with a freshly generated one.
func (s *Service) RotateCode(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	coachID string,
) (code *invite.Code, err error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
			if err := s.requireCoach(ctx, coachID); err != nil {
				return err
			}

			value, err := s.generator.Generate(ctx.Context(), ctx.InviteStorage.Exists)
			if err != nil {
				return err
			}

			current, err := ctx.InviteStorage.GetByCoach(ctx.Context(), invite.CoachID(coachID))
			switch {
			case errors.Is(err, invite.ErrCodeNotFound):
				code = invite.New(invite.CoachID(coachID), value, s.now().UTC())
				err = ctx.InviteStorage.Add(ctx.Context(), code)
			case err == nil:
				code = current
				code.Rotate(value, s.now().UTC())
				err = ctx.InviteStorage.Replace(ctx.Context(), code)
			}
			if err != nil {
				return err
			}
			return ctx.Commit()
		})

		if !retryable(err) {
			return
		}
		s.logger.Debug("invite code rotation raced, retrying", "coach_id", coachID, "attempt", attempt+1)
	}
	return nil, err
}

type CoachCard struct {
	CoachID   string
	Name      string
	AvatarURL string
	Bio       string
}

// ResolveCode returns the public profile of the coach owning code.
func (s *Service) ResolveCode(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	code string,
) (card CoachCard, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		inv, err := s.lookupCode(ctx, code)
		if err != nil {
			return err
		}

		p, err := ctx.ProfileStorage.GetByID(ctx.Context(), string(inv.CoachID))
		if err != nil {
			if errors.Is(err, profile.ErrProfileNotFound) {
				return invite.ErrCodeNotFound
			}
			return err
		}

		coach, ok := p.(*profile.Coach)
		if !ok {
			return invite.ErrCodeNotFound
		}

		card = CoachCard{
			CoachID:   coach.UserID,
			Name:      coach.DisplayName(),
			AvatarURL: coach.AvatarURL,
			Bio:       coach.Bio,
		}
		return nil
	})
	return
}

func (s *Service) lookupCode(ctx *AtomicContext, code string) (*invite.Code, error) {
	normalized := invite.Normalize(code)
	if normalized == "" {
		return nil, invite.ErrCodeNotFound
	}
	return ctx.InviteStorage.GetByCode(ctx.Context(), normalized)
}

func (s *Service) requireCoach(ctx *AtomicContext, userID string) error {
	p, err := ctx.ProfileStorage.GetByID(ctx.Context(), userID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return invite.ErrNotCoach
		}
		return err
	}
	if p.Type() != profile.TypeCoach {
		return invite.ErrNotCoach
	}
	return nil
}

// requireClient rejects coaches redeeming codes. A caller without a profile
// yet is treated as a client.
func (s *Service) requireClient(ctx *AtomicContext, userID string) error {
	p, err := ctx.ProfileStorage.GetByID(ctx.Context(), userID)
	if errors.Is(err, profile.ErrProfileNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if p.Type() == profile.TypeCoach {
		return connection.ErrForbidden
	}
	return nil
}

func (s *Service) displayName(ctx *AtomicContext, userID string) string {
	p, err := ctx.ProfileStorage.GetByID(ctx.Context(), userID)
	if err != nil {
		s.logger.Warn("failed to load profile for display name", "user_id", userID, "error", err)
		return ""
	}
	return p.DisplayName()
}

func roleOf(p profile.Profile) connection.Role {
	if p.Type() == profile.TypeCoach {
		return connection.RoleCoach
	}
	return connection.RoleClient
}

func retryable(err error) bool {
	return errors.Is(err, invite.ErrCodeExists) || errors.Is(err, invite.ErrCoachHasCode)
}
