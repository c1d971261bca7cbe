package api

import (
	"github.com/burenotti/go_coach_backend/internal/app/authapp"
	"github.com/burenotti/go_coach_backend/internal/app/unitofwork"
	"github.com/burenotti/go_coach_backend/internal/domain/auth"
	"github.com/labstack/echo/v4"
	"github.com/mileusna/useragent"
	"net/http"
)

func (s *Server) MountAuth() {
	loginRequired := LoginRequired(s.authService.Authorizer)

	authRoutes := s.handler.Group("/auth")

	authRoutes.POST("/sign-up", s.SignUp)
	authRoutes.POST("/login", s.Login)
	authRoutes.POST("/refresh", s.Refresh)
	authRoutes.POST("/logout", s.Logout, loginRequired)
}

func (s *Server) getAuthUoW() *unitofwork.UnitOfWork[*authapp.AtomicContext] {
	return unitofwork.New[*authapp.AtomicContext](s.db, authapp.NewAtomicContext, s.msgBus, s.logger)
}

type tokensResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type signUpReq struct {
	UserID   string `json:"user_id" validate:"required,uuid"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (s *Server) SignUp(c echo.Context) error {
	var req signUpReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	ctx := c.Request().Context()
	if _, err := s.authService.Register(ctx, s.getAuthUoW(), req.UserID, req.Email, req.Password); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

// loginReq accepts the OAuth2 password form the mobile apps send.
type loginReq struct {
	Email    string `form:"username" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

func (s *Server) Login(c echo.Context) error {
	var req loginReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	tokens, err := s.authService.SignIn(c.Request().Context(), s.getAuthUoW(), clientOf(c), req.Email, req.Password)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, tokensResp{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (s *Server) Refresh(c echo.Context) error {
	var req refreshReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	tokens, err := s.authService.Refresh(c.Request().Context(), s.getAuthUoW(), req.RefreshToken)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, tokensResp{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

func (s *Server) Logout(c echo.Context) error {
	p := currentUser(c)
	if err := s.authService.SignOut(c.Request().Context(), s.getAuthUoW(), p.UserID, p.SessionID); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func clientOf(c echo.Context) auth.Client {
	agent := useragent.Parse(c.Request().UserAgent())
	return auth.Client{
		App:      agent.Name,
		Platform: agent.OS,
		Model:    agent.Device,
		IP:       c.RealIP(),
	}
}
