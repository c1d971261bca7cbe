package api

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	activityapp "github.com/burenotti/go_coach_backend/internal/app/activity"
	"github.com/burenotti/go_coach_backend/internal/app/authapp"
	connectionapp "github.com/burenotti/go_coach_backend/internal/app/connection"
	dashboardapp "github.com/burenotti/go_coach_backend/internal/app/dashboard"
	profileapp "github.com/burenotti/go_coach_backend/internal/app/profile"
	"github.com/burenotti/go_coach_backend/internal/app/unitofwork"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"log/slog"
	"time"
)

type Server struct {
	handler           *echo.Echo
	logger            *slog.Logger
	addr              string
	db                storage.DBContext
	authService       *authapp.Service
	profileService    *profileapp.Service
	connectionService *connectionapp.Service
	activityService   *activityapp.Service
	activityContext   func(context.Context, storage.DBContext) (*activityapp.AtomicContext, error)
	dashboardService  *dashboardapp.Service
	msgBus            unitofwork.MessageBus
	validator         *validator.Validate
	timeouts          Timeouts
	location          *time.Location
}

type Timeouts struct {
	Read       time.Duration
	ReadHeader time.Duration
	Write      time.Duration
	Idle       time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Read:       10 * time.Second,
		ReadHeader: 5 * time.Second,
		Write:      10 * time.Second,
		Idle:       10 * time.Second,
	}
}

func NewServer(opt ...Option) *Server {
	e := echo.New()
	e.HideBanner = true

	v := validator.New(validator.WithRequiredStructEnabled())

	s := &Server{
		handler:   e,
		logger:    slog.Default(),
		validator: v,
		timeouts:  DefaultTimeouts(),
		location:  time.UTC,
	}

	for _, opt := range opt {
		opt(s)
	}

	e.Server.WriteTimeout = s.timeouts.Write
	e.Server.ReadTimeout = s.timeouts.Read
	e.Server.IdleTimeout = s.timeouts.Idle
	e.Server.ReadHeaderTimeout = s.timeouts.ReadHeader
	e.Server.MaxHeaderBytes = 4096

	e.Use(middleware.RequestID())
	e.Use(slogecho.NewWithConfig(s.logger, slogecho.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelInfo,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))
	e.Use(middleware.Recover())
	s.Mount()
	return s
}

func (s *Server) Mount() {
	s.MountAuth()
	s.MountProfile()
	s.MountConnections()
	s.MountInviteCode()
	s.MountActivity()
	s.MountDashboard()
}

func (s *Server) Handler() *echo.Echo {
	return s.handler
}

func (s *Server) Start() error {
	return s.handler.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.handler.Shutdown(ctx)
}

func (s *Server) bind(ctx echo.Context, i interface{}) error {
	if err := ctx.Bind(i); err != nil {
		return fmt.Errorf("%w: malformed body", errInvalidRequest)
	}
	if err := s.validator.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return fmt.Errorf("%w: bad request", errInvalidRequest)
		}
		return fmt.Errorf("%w: %s: %s", errInvalidRequest, errs[0].Field(), errs[0].Tag())
	}
	return nil
}
