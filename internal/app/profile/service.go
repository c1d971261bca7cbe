package profileapp

import (
	"context"
	"errors"
	"github.com/burenotti/go_coach_backend/internal/app/unitofwork"
	"github.com/burenotti/go_coach_backend/internal/domain/profile"
	"log/slog"
	"time"
)

type Service struct {
	logger *slog.Logger
}

func New(
	logger *slog.Logger,
) *Service {
	return &Service{
		logger: logger,
	}
}

func (s *Service) CreateClient(
	ctx context.Context,
	userID string,
	firstName string,
	lastName string,
	birthDate *time.Time,
	avatarURL string,
	uow *unitofwork.UnitOfWork[*AtomicContext],
) (client *profile.Client, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		if err := s.requireNoProfile(ctx, userID); err != nil {
			return err
		}

		client = profile.NewClient(userID, firstName, lastName, birthDate, avatarURL)
		if err := ctx.ProfileStorage.Add(ctx.Context(), client); err != nil {
			return err
		}

		return ctx.Commit()
	})
	return
}

func (s *Service) CreateCoach(
	ctx context.Context,
	userID string,
	firstName string,
	lastName string,
	birthDate *time.Time,
	yearsExperience int,
	bio string,
	avatarURL string,
	uow *unitofwork.UnitOfWork[*AtomicContext],
) (coach *profile.Coach, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		if err := s.requireNoProfile(ctx, userID); err != nil {
			return err
		}

		coach = profile.NewCoach(userID, firstName, lastName, birthDate, yearsExperience, bio, avatarURL)
		if err := ctx.ProfileStorage.Add(ctx.Context(), coach); err != nil {
			return err
		}
		return ctx.Commit()
	})
	return
}

// Changes holds the profile fields a user may edit. Nil fields are left as
// they are; coach-only fields are ignored for clients.
type Changes struct {
	FirstName       *string
	LastName        *string
	AvatarURL       *string
	Bio             *string
	YearsExperience *int
}

func (s *Service) UpdateProfile(
	ctx context.Context,
	userID string,
	changes Changes,
	uow *unitofwork.UnitOfWork[*AtomicContext],
) (p profile.Profile, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		p, err = ctx.ProfileStorage.GetByID(ctx.Context(), userID)
		if err != nil {
			return err
		}

		switch v := p.(type) {
		case *profile.Coach:
			setIfPresent(&v.FirstName, changes.FirstName)
			setIfPresent(&v.LastName, changes.LastName)
			setIfPresent(&v.AvatarURL, changes.AvatarURL)
			setIfPresent(&v.Bio, changes.Bio)
			setIfPresent(&v.YearsExperience, changes.YearsExperience)
		case *profile.Client:
			setIfPresent(&v.FirstName, changes.FirstName)
			setIfPresent(&v.LastName, changes.LastName)
			setIfPresent(&v.AvatarURL, changes.AvatarURL)
		}

		if err := ctx.ProfileStorage.Persist(ctx.Context(), p); err != nil {
			return err
		}
		return ctx.Commit()
	})
	return
}

func (s *Service) GetProfileByID(
	ctx context.Context,
	userID string,
	uow *unitofwork.UnitOfWork[*AtomicContext],
) (p profile.Profile, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		p, err = ctx.ProfileStorage.GetByID(ctx.Context(), userID)
		return err
	})
	return
}

func (s *Service) GetClientByID(
	ctx context.Context,
	userID string,
	uow *unitofwork.UnitOfWork[*AtomicContext],
) (*profile.Client, error) {
	p, err := s.GetProfileByID(ctx, userID, uow)
	if err != nil {
		return nil, err
	}

	if c, ok := p.(*profile.Client); ok {
		return c, nil
	} else {
		return nil, profile.ErrProfileNotFound
	}
}

func (s *Service) GetCoachByID(
	ctx context.Context,
	userID string,
	uow *unitofwork.UnitOfWork[*AtomicContext],
) (*profile.Coach, error) {
	p, err := s.GetProfileByID(ctx, userID, uow)
	if err != nil {
		return nil, err
	}

	if c, ok := p.(*profile.Coach); ok {
		return c, nil
	} else {
		return nil, profile.ErrProfileNotFound
	}
}

// requireNoProfile keeps the coach and client roles exclusive: a user holds
// at most one profile of either kind.
func (s *Service) requireNoProfile(ctx *AtomicContext, userID string) error {
	_, err := ctx.ProfileStorage.GetByID(ctx.Context(), userID)
	switch {
	case err == nil:
		return profile.ErrProfileExists
	case errors.Is(err, profile.ErrProfileNotFound):
		return nil
	default:
		return err
	}
}

func setIfPresent[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
