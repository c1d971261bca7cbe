package api

import (
	"context"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	activityapp "github.com/burenotti/go_coach_backend/internal/app/activity"
	"github.com/burenotti/go_coach_backend/internal/app/authapp"
	connectionapp "github.com/burenotti/go_coach_backend/internal/app/connection"
	dashboardapp "github.com/burenotti/go_coach_backend/internal/app/dashboard"
	profileapp "github.com/burenotti/go_coach_backend/internal/app/profile"
	"github.com/burenotti/go_coach_backend/internal/app/unitofwork"
	"log/slog"
	"net"
	"strconv"
	"time"
)

type Option func(*Server)

func Addr(host string, port int) Option {
	return func(s *Server) {
		s.addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
}

func Logger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func WithTimeouts(t Timeouts) Option {
	return func(s *Server) {
		s.timeouts = t
	}
}

// Location is the time zone for client timestamps that carry no offset.
func Location(loc *time.Location) Option {
	return func(s *Server) {
		s.location = loc
	}
}

func DBContext(db storage.DBContext) Option {
	return func(s *Server) {
		s.db = db
	}
}

func AuthService(service *authapp.Service) Option {
	return func(s *Server) {
		s.authService = service
	}
}

func ProfileService(service *profileapp.Service) Option {
	return func(s *Server) {
		s.profileService = service
	}
}

func ConnectionService(service *connectionapp.Service) Option {
	return func(s *Server) {
		s.connectionService = service
	}
}

func ActivityService(
	service *activityapp.Service,
	newContext func(context.Context, storage.DBContext) (*activityapp.AtomicContext, error),
) Option {
	return func(s *Server) {
		s.activityService = service
		s.activityContext = newContext
	}
}

func DashboardService(service *dashboardapp.Service) Option {
	return func(s *Server) {
		s.dashboardService = service
	}
}

func MessageBus(bus unitofwork.MessageBus) Option {
	return func(s *Server) {
		s.msgBus = bus
	}
}
