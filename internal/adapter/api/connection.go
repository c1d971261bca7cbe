package api

import (
	connectionapp "github.com/burenotti/go_coach_backend/internal/app/connection"
	"github.com/burenotti/go_coach_backend/internal/app/unitofwork"
	"github.com/burenotti/go_coach_backend/internal/domain/connection"
	"github.com/burenotti/go_coach_backend/internal/domain/invite"
	"github.com/labstack/echo/v4"
	"net/http"
	"time"
)

func (s *Server) MountConnections() {
	rpc := s.handler.Group("/rpc", LoginRequired(s.authService.Authorizer))

	rpc.POST("/connect_by_invite_code", s.ConnectByInviteCode)
	rpc.POST("/respond_to_connection", s.RespondToConnection)
	rpc.POST("/get_my_connections", s.GetMyConnections)
	rpc.POST("/disconnect_connection", s.DisconnectConnection)
	rpc.POST("/get_coach_by_invite_code", s.GetCoachByInviteCode)
}

func (s *Server) getConnectionUoW() *unitofwork.UnitOfWork[*connectionapp.AtomicContext] {
	return unitofwork.New[*connectionapp.AtomicContext](
		s.db,
		connectionapp.NewAtomicContext,
		s.msgBus,
		s.logger,
	)
}

type inviteCodeReq struct {
	InviteCode string `json:"invite_code" validate:"required,max=32"`
}

type connectResp struct {
	Success      bool   `json:"success"`
	ConnectionID string `json:"connection_id"`
	CoachName    string `json:"coach_name"`
	Message      string `json:"message"`
}

func (s *Server) ConnectByInviteCode(c echo.Context) error {
	var req inviteCodeReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	res, err := s.connectionService.RequestConnection(
		c.Request().Context(),
		s.getConnectionUoW(),
		currentUser(c).UserID,
		req.InviteCode,
	)
	if err != nil {
		return s.fail(c, err, errorMapping{invite.ErrCodeNotFound, http.StatusBadRequest, CodeInvalidCode, "invite code is not valid"})
	}

	return c.JSON(http.StatusOK, &connectResp{
		Success:      true,
		ConnectionID: string(res.ConnectionID),
		CoachName:    res.CoachName,
		Message:      "connection request sent",
	})
}

type respondReq struct {
	ConnectionID string `json:"connection_id" validate:"required"`
	Accept       *bool  `json:"accept" validate:"required"`
}

type respondResp struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) RespondToConnection(c echo.Context) error {
	var req respondReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	status, err := s.connectionService.RespondToConnection(
		c.Request().Context(),
		s.getConnectionUoW(),
		currentUser(c).UserID,
		req.ConnectionID,
		*req.Accept,
	)
	if err != nil {
		return s.fail(c, err)
	}

	message := "connection declined"
	if status == connection.StatusAccepted {
		message = "connection accepted"
	}
	return c.JSON(http.StatusOK, &respondResp{
		Success: true,
		Status:  string(status),
		Message: message,
	})
}

type connectionItem struct {
	ConnectionID string     `json:"connection_id"`
	UserID       string     `json:"user_id"`
	UserName     string     `json:"user_name"`
	UserAvatar   string     `json:"user_avatar"`
	Status       string     `json:"status"`
	RequestedAt  time.Time  `json:"requested_at"`
	RespondedAt  *time.Time `json:"responded_at"`
	Role         string     `json:"role"`
}

type connectionsResp struct {
	Success     bool             `json:"success"`
	Role        string           `json:"role"`
	Connections []connectionItem `json:"connections"`
}

func (s *Server) GetMyConnections(c echo.Context) error {
	role, listings, err := s.connectionService.ListConnections(
		c.Request().Context(),
		s.getConnectionUoW(),
		currentUser(c).UserID,
	)
	if err != nil {
		return s.fail(c, err)
	}

	items := make([]connectionItem, 0, len(listings))
	for _, l := range listings {
		items = append(items, connectionItem{
			ConnectionID: string(l.Connection.ConnectionID),
			UserID:       l.Counterpart.UserID,
			UserName:     l.Counterpart.Name,
			UserAvatar:   l.Counterpart.AvatarURL,
			Status:       string(l.Connection.Status),
			RequestedAt:  l.Connection.RequestedAt,
			RespondedAt:  l.Connection.RespondedAt,
			Role:         string(l.Counterpart.Role),
		})
	}

	return c.JSON(http.StatusOK, &connectionsResp{
		Success:     true,
		Role:        string(role),
		Connections: items,
	})
}

type disconnectReq struct {
	ConnectionID string `json:"connection_id" validate:"required"`
}

type messageResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) DisconnectConnection(c echo.Context) error {
	var req disconnectReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	err := s.connectionService.Disconnect(
		c.Request().Context(),
		s.getConnectionUoW(),
		currentUser(c).UserID,
		req.ConnectionID,
	)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, &messageResp{
		Success: true,
		Message: "disconnected",
	})
}

type coachCard struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
}

type coachByCodeResp struct {
	Success bool      `json:"success"`
	Coach   coachCard `json:"coach"`
}

func (s *Server) GetCoachByInviteCode(c echo.Context) error {
	var req inviteCodeReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	card, err := s.connectionService.ResolveCode(c.Request().Context(), s.getConnectionUoW(), req.InviteCode)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, &coachByCodeResp{
		Success: true,
		Coach: coachCard{
			ID:        card.CoachID,
			Name:      card.Name,
			AvatarURL: card.AvatarURL,
			Bio:       card.Bio,
		},
	})
}
