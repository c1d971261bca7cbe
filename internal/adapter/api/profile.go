package api

import (
	profileapp "github.com/burenotti/go_coach_backend/internal/app/profile"
	"github.com/burenotti/go_coach_backend/internal/app/unitofwork"
	"github.com/burenotti/go_coach_backend/internal/domain/profile"
	"github.com/labstack/echo/v4"
	"net/http"
	"time"
)

func (s *Server) MountProfile() {
	loginRequired := LoginRequired(s.authService.Authorizer)

	s.handler.POST("/clients/:user_id", s.CreateClient, loginRequired)
	s.handler.GET("/clients/:user_id", s.GetClientByID, loginRequired)

	s.handler.POST("/coaches/:user_id", s.CreateCoach, loginRequired)
	s.handler.GET("/coaches/:user_id", s.GetCoachByID, loginRequired)

	s.handler.GET("/profiles/me", s.GetMyProfile, loginRequired)
	s.handler.PUT("/profiles/me", s.UpdateMyProfile, loginRequired)
}

func (s *Server) getProfileUoW() *unitofwork.UnitOfWork[*profileapp.AtomicContext] {
	return unitofwork.New[*profileapp.AtomicContext](
		s.db,
		profileapp.NewAtomicContext,
		s.msgBus,
		s.logger,
	)
}

type CreateClientRequest struct {
	UserID    string     `param:"user_id" validate:"required"`
	FirstName string     `json:"first_name,omitempty" validate:"max=100"`
	LastName  string     `json:"last_name,omitempty" validate:"max=100"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	AvatarURL string     `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

func (s *Server) CreateClient(c echo.Context) error {
	var req CreateClientRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}
	if req.UserID != currentUser(c).UserID {
		return JsonError(c, http.StatusForbidden, CodeForbidden, "you can only create your own profile")
	}

	ctx := c.Request().Context()
	_, err := s.profileService.CreateClient(ctx, req.UserID, req.FirstName, req.LastName, req.BirthDate, req.AvatarURL, s.getProfileUoW())
	if err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type CreateCoachRequest struct {
	UserID          string     `param:"user_id" validate:"required"`
	FirstName       string     `json:"first_name,omitempty" validate:"max=100"`
	LastName        string     `json:"last_name,omitempty" validate:"max=100"`
	BirthDate       *time.Time `json:"birth_date,omitempty"`
	YearsExperience int        `json:"years_experience,omitempty" validate:"gte=0"`
	Bio             string     `json:"bio,omitempty" validate:"max=2000"`
	AvatarURL       string     `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

func (s *Server) CreateCoach(c echo.Context) error {
	var req CreateCoachRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}
	if req.UserID != currentUser(c).UserID {
		return JsonError(c, http.StatusForbidden, CodeForbidden, "you can only create your own profile")
	}

	_, err := s.profileService.CreateCoach(
		c.Request().Context(),
		req.UserID,
		req.FirstName,
		req.LastName,
		req.BirthDate,
		req.YearsExperience,
		req.Bio,
		req.AvatarURL,
		s.getProfileUoW(),
	)
	if err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type GetProfileByIDRequest struct {
	UserID string `param:"user_id" validate:"required"`
}

type CoachResponse struct {
	UserID          string     `json:"user_id"`
	Type            string     `json:"type"`
	FirstName       string     `json:"first_name,omitempty"`
	LastName        string     `json:"last_name,omitempty"`
	BirthDate       *time.Time `json:"birth_date,omitempty"`
	YearsExperience int        `json:"years_experience,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	AvatarURL       string     `json:"avatar_url,omitempty"`
}

func coachResponse(coach *profile.Coach) CoachResponse {
	return CoachResponse{
		UserID:          coach.UserID,
		Type:            coach.Type(),
		FirstName:       coach.FirstName,
		LastName:        coach.LastName,
		BirthDate:       coach.BirthDate,
		YearsExperience: coach.YearsExperience,
		Bio:             coach.Bio,
		AvatarURL:       coach.AvatarURL,
	}
}

func (s *Server) GetCoachByID(c echo.Context) error {
	var req GetProfileByIDRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	coach, err := s.profileService.GetCoachByID(c.Request().Context(), req.UserID, s.getProfileUoW())
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, coachResponse(coach))
}

type ClientResponse struct {
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	AvatarURL string     `json:"avatar_url,omitempty"`
}

func clientResponse(client *profile.Client) ClientResponse {
	return ClientResponse{
		UserID:    client.UserID,
		Type:      client.Type(),
		FirstName: client.FirstName,
		LastName:  client.LastName,
		BirthDate: client.BirthDate,
		AvatarURL: client.AvatarURL,
	}
}

func (s *Server) GetClientByID(c echo.Context) error {
	var req GetProfileByIDRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	client, err := s.profileService.GetClientByID(c.Request().Context(), req.UserID, s.getProfileUoW())
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, clientResponse(client))
}

func (s *Server) GetMyProfile(c echo.Context) error {
	p, err := s.profileService.GetProfileByID(c.Request().Context(), currentUser(c).UserID, s.getProfileUoW())
	if err != nil {
		return s.fail(c, err)
	}
	return s.writeProfile(c, p)
}

type UpdateProfileRequest struct {
	FirstName       *string `json:"first_name" validate:"omitempty,max=100"`
	LastName        *string `json:"last_name" validate:"omitempty,max=100"`
	AvatarURL       *string `json:"avatar_url" validate:"omitempty,url"`
	Bio             *string `json:"bio" validate:"omitempty,max=2000"`
	YearsExperience *int    `json:"years_experience" validate:"omitempty,gte=0"`
}

func (s *Server) UpdateMyProfile(c echo.Context) error {
	var req UpdateProfileRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	p, err := s.profileService.UpdateProfile(
		c.Request().Context(),
		currentUser(c).UserID,
		profileapp.Changes{
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			AvatarURL:       req.AvatarURL,
			Bio:             req.Bio,
			YearsExperience: req.YearsExperience,
		},
		s.getProfileUoW(),
	)
	if err != nil {
		return s.fail(c, err)
	}
	return s.writeProfile(c, p)
}

func (s *Server) writeProfile(c echo.Context, p profile.Profile) error {
	switch v := p.(type) {
	case *profile.Coach:
		return c.JSON(http.StatusOK, coachResponse(v))
	case *profile.Client:
		return c.JSON(http.StatusOK, clientResponse(v))
	default:
		panic("unknown profile type")
	}
}
