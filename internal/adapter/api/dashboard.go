package api

import (
	"github.com/burenotti/go_coach_backend/internal/domain/alert"
	"github.com/burenotti/go_coach_backend/internal/domain/win"
	"github.com/labstack/echo/v4"
	"net/http"
	"time"
)

func (s *Server) MountDashboard() {
	routes := s.handler.Group("/dashboard", LoginRequired(s.authService.Authorizer))

	routes.GET("/alerts", s.GetAlerts)
	routes.POST("/alerts/:alert_id/dismiss", s.DismissAlert)
	routes.DELETE("/alerts/:alert_id/dismiss", s.RestoreAlert)

	routes.GET("/wins", s.GetWins)
	routes.POST("/wins/:win_id/celebrate", s.CelebrateWin)
}

type alertItem struct {
	ID              string `json:"id"`
	ClientID        string `json:"client_id"`
	ClientName      string `json:"client_name"`
	Type            string `json:"type"`
	Priority        string `json:"priority"`
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	// DaysSince is null when the client never logged anything.
	DaysSince       *int   `json:"days_since"`
	SuggestedAction string `json:"suggested_action"`
}

type alertsResp struct {
	Success bool        `json:"success"`
	Alerts  []alertItem `json:"alerts"`
}

func (s *Server) GetAlerts(c echo.Context) error {
	alerts, err := s.dashboardService.GetAlerts(c.Request().Context(), currentUser(c).UserID)
	if err != nil {
		return s.fail(c, err)
	}

	items := make([]alertItem, 0, len(alerts))
	for _, a := range alerts {
		item := alertItem{
			ID:              a.AlertID,
			ClientID:        a.ClientID,
			ClientName:      a.ClientName,
			Type:            string(a.Type),
			Priority:        string(a.Priority),
			Title:           a.Title,
			Subtitle:        a.Subtitle,
			SuggestedAction: a.SuggestedAction,
		}
		if a.DaysSince != alert.NeverDays {
			days := a.DaysSince
			item.DaysSince = &days
		}
		items = append(items, item)
	}

	return c.JSON(http.StatusOK, &alertsResp{Success: true, Alerts: items})
}

type winItem struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"client_id"`
	ClientName   string     `json:"client_name"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Subtitle     string     `json:"subtitle"`
	Celebratable bool       `json:"celebratable"`
	Celebrated   bool       `json:"celebrated"`
	CreatedAt    *time.Time `json:"created_at"`
}

type winsResp struct {
	Success bool      `json:"success"`
	Wins    []winItem `json:"wins"`
}

func (s *Server) GetWins(c echo.Context) error {
	wins, err := s.dashboardService.GetWins(c.Request().Context(), currentUser(c).UserID)
	if err != nil {
		return s.fail(c, err)
	}

	items := make([]winItem, 0, len(wins))
	for _, w := range wins {
		items = append(items, toWinItem(w))
	}

	return c.JSON(http.StatusOK, &winsResp{Success: true, Wins: items})
}

func toWinItem(w win.Win) winItem {
	item := winItem{
		ID:           w.WinID,
		ClientID:     w.ClientID,
		ClientName:   w.ClientName,
		Type:         string(w.Type),
		Title:        w.Title,
		Subtitle:     w.Subtitle,
		Celebratable: w.Celebratable,
		Celebrated:   w.Celebrated,
	}
	if !w.CreatedAt.IsZero() {
		createdAt := w.CreatedAt
		item.CreatedAt = &createdAt
	}
	return item
}

type alertIDReq struct {
	AlertID string `param:"alert_id" validate:"required,max=256"`
}

func (s *Server) DismissAlert(c echo.Context) error {
	var req alertIDReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	if err := s.dashboardService.Dismiss(c.Request().Context(), currentUser(c).UserID, req.AlertID); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, &messageResp{Success: true, Message: "alert dismissed"})
}

func (s *Server) RestoreAlert(c echo.Context) error {
	var req alertIDReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	if err := s.dashboardService.Restore(c.Request().Context(), currentUser(c).UserID, req.AlertID); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, &messageResp{Success: true, Message: "alert restored"})
}

type winIDReq struct {
	WinID string `param:"win_id" validate:"required,max=256"`
}

func (s *Server) CelebrateWin(c echo.Context) error {
	var req winIDReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	if err := s.dashboardService.Celebrate(c.Request().Context(), currentUser(c).UserID, req.WinID); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, &messageResp{Success: true, Message: "win celebrated"})
}
