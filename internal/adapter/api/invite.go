package api

import (
	"github.com/labstack/echo/v4"
	"net/http"
	"time"
)

func (s *Server) MountInviteCode() {
	routes := s.handler.Group("/invite-code", LoginRequired(s.authService.Authorizer))

	routes.GET("", s.GetInviteCode)
	routes.POST("/rotate", s.RotateInviteCode)
}

type inviteCodeResp struct {
	Success   bool      `json:"success"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) GetInviteCode(c echo.Context) error {
	code, err := s.connectionService.GetOrCreateCode(c.Request().Context(), s.getConnectionUoW(), currentUser(c).UserID)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, &inviteCodeResp{
		Success:   true,
		Code:      code.Code,
		CreatedAt: code.CreatedAt,
	})
}

func (s *Server) RotateInviteCode(c echo.Context) error {
	code, err := s.connectionService.RotateCode(c.Request().Context(), s.getConnectionUoW(), currentUser(c).UserID)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, &inviteCodeResp{
		Success:   true,
		Code:      code.Code,
		CreatedAt: code.CreatedAt,
	})
}
