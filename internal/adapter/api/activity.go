package api

import (
	activityapp "github.com/burenotti/go_coach_backend/internal/app/activity"
	"github.com/burenotti/go_coach_backend/internal/app/unitofwork"
	"github.com/burenotti/go_coach_backend/internal/domain/activity"
	"github.com/labstack/echo/v4"
	"net/http"
	"time"
)

func (s *Server) MountActivity() {
	routes := s.handler.Group("/activity", LoginRequired(s.authService.Authorizer))

	routes.POST("/workouts", s.LogWorkout)
	routes.POST("/scheduled", s.ScheduleWorkout)
	routes.POST("/records", s.RecordLift)
	routes.POST("/nutrition", s.LogNutrition)
}

func (s *Server) getActivityUoW() *unitofwork.UnitOfWork[*activityapp.AtomicContext] {
	return unitofwork.New[*activityapp.AtomicContext](
		s.db,
		s.activityContext,
		s.msgBus,
		s.logger,
	)
}

// parseOptionalTime reads a client supplied timestamp. An empty value means
// "now" and is left to the service.
func (s *Server) parseOptionalTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, ok := activity.ParseTimestamp(value, s.location)
	if !ok {
		return time.Time{}, activity.ErrInvalidTimestamp
	}
	return t, nil
}

type logWorkoutReq struct {
	WorkoutID   string  `json:"workout_id" validate:"max=64"`
	CompletedAt string  `json:"completed_at"`
	Volume      float64 `json:"volume" validate:"gte=0"`
}

type createdResp struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

func (s *Server) LogWorkout(c echo.Context) error {
	var req logWorkoutReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}
	completedAt, err := s.parseOptionalTime(req.CompletedAt)
	if err != nil {
		return s.fail(c, err)
	}

	w, err := s.activityService.LogWorkout(
		c.Request().Context(),
		s.getActivityUoW(),
		currentUser(c).UserID,
		req.WorkoutID,
		completedAt,
		req.Volume,
	)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, &createdResp{Success: true, ID: w.LogID})
}

type scheduleReq struct {
	ClientID     string `json:"client_id" validate:"required"`
	WorkoutID    string `json:"workout_id" validate:"required,max=64"`
	ScheduledFor string `json:"scheduled_for" validate:"required"`
}

func (s *Server) ScheduleWorkout(c echo.Context) error {
	var req scheduleReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}
	scheduledFor, err := s.parseOptionalTime(req.ScheduledFor)
	if err != nil {
		return s.fail(c, err)
	}

	sw, err := s.activityService.ScheduleWorkout(
		c.Request().Context(),
		s.getActivityUoW(),
		currentUser(c).UserID,
		req.ClientID,
		req.WorkoutID,
		scheduledFor,
	)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, &createdResp{Success: true, ID: sw.ScheduledID})
}

type recordReq struct {
	ExerciseID   string  `json:"exercise_id" validate:"required,max=64"`
	ExerciseName string  `json:"exercise_name" validate:"max=200"`
	Weight       float64 `json:"weight" validate:"gt=0"`
	AchievedAt   string  `json:"achieved_at"`
}

type recordResp struct {
	Success  bool   `json:"success"`
	ID       string `json:"id"`
	Improved bool   `json:"improved"`
}

func (s *Server) RecordLift(c echo.Context) error {
	var req recordReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}
	achievedAt, err := s.parseOptionalTime(req.AchievedAt)
	if err != nil {
		return s.fail(c, err)
	}

	r, err := s.activityService.RecordLift(
		c.Request().Context(),
		s.getActivityUoW(),
		currentUser(c).UserID,
		req.ExerciseID,
		req.ExerciseName,
		req.Weight,
		achievedAt,
	)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, &recordResp{Success: true, ID: r.RecordID, Improved: r.Improved()})
}

type nutritionReq struct {
	LoggedAt string `json:"logged_at"`
}

func (s *Server) LogNutrition(c echo.Context) error {
	var req nutritionReq
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}
	loggedAt, err := s.parseOptionalTime(req.LoggedAt)
	if err != nil {
		return s.fail(c, err)
	}

	n, err := s.activityService.LogNutrition(c.Request().Context(), s.getActivityUoW(), currentUser(c).UserID, loggedAt)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, &createdResp{Success: true, ID: n.LogID})
}
