package main

import (
	"context"
	"database/sql"
	"errors"
	"github.com/burenotti/go_coach_backend/internal/adapter/api"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	activitystorage "github.com/burenotti/go_coach_backend/internal/adapter/storage/activity"
	connectionstorage "github.com/burenotti/go_coach_backend/internal/adapter/storage/connections"
	ledgerstorage "github.com/burenotti/go_coach_backend/internal/adapter/storage/ledger"
	activityapp "github.com/burenotti/go_coach_backend/internal/app/activity"
	"github.com/burenotti/go_coach_backend/internal/app/authapp"
	connectionapp "github.com/burenotti/go_coach_backend/internal/app/connection"
	dashboardapp "github.com/burenotti/go_coach_backend/internal/app/dashboard"
	"github.com/burenotti/go_coach_backend/internal/app/messagebus"
	profileapp "github.com/burenotti/go_coach_backend/internal/app/profile"
	"github.com/burenotti/go_coach_backend/internal/config"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"github.com/burenotti/go_coach_backend/internal/domain/activity"
	"github.com/burenotti/go_coach_backend/internal/domain/alert"
	"github.com/burenotti/go_coach_backend/internal/domain/auth"
	"github.com/burenotti/go_coach_backend/internal/domain/connection"
	"github.com/burenotti/go_coach_backend/internal/domain/invite"
	"github.com/burenotti/go_coach_backend/internal/domain/win"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/leporo/sqlf"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "config/config.yaml", "path to config file")
	pflag.Parse()

	cfg := config.MustLoad(configPath)
	logger := initLogger(cfg)

	location, err := cfg.Location()
	if err != nil {
		panic(err)
	}

	bus := messagebus.New(logger)
	registerEventLogging(bus, logger)

	sqlf.SetDialect(sqlf.PostgreSQL)

	sqlDB, err := sql.Open("pgx", cfg.DB.DSN)
	if err != nil {
		panic("failed to connect database: " + err.Error())
	}
	defer sqlDB.Close()
	db := &storage.DB{DB: sqlDB}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledger, closeLedger := initLedger(ctx, cfg, db, logger)
	defer closeLedger()

	authorizer := &authapp.Authorizer{
		Cost:           bcrypt.DefaultCost,
		Secret:         cfg.JWT.Secret,
		AccessTokenTTL: cfg.JWT.AccessTokenTTL,
		SessionTTL:     cfg.JWT.RefreshTokenTTL,
	}

	dashboard := dashboardapp.New(
		logger,
		connectionstorage.NewPostgresStorage(db),
		activitystorage.NewPostgresStorage(db, location, logger),
		ledger,
		dashboardConfig(cfg, location),
	)

	server := api.NewServer(
		api.Addr(cfg.Server.Host, cfg.Server.Port),
		api.Logger(logger),
		api.Location(location),
		api.DBContext(db),
		api.AuthService(authapp.NewService(authorizer, logger)),
		api.ProfileService(profileapp.New(logger)),
		api.ConnectionService(connectionapp.New(logger, invite.NewGenerator())),
		api.ActivityService(activityapp.New(logger), activityapp.NewAtomicContextFactory(location, logger)),
		api.DashboardService(dashboard),
		api.MessageBus(bus),
	)

	errCh := make(chan error)

	go func() {
		defer close(errCh)
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server was not shutdown gracefully", "error", err)
		}
	case err := <-errCh:
		if err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server closed with unexpected error", "error", err)
			}
		}
	}

	bus.Close()
	logger.Info("server shutdown")
}

func initLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler
	switch cfg.App.Env {
	case config.Development:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelDebug,
		})
	case config.Production:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelInfo,
		})
	default:
		panic("invalid env")
	}

	return slog.New(handler)
}

func initLedger(
	ctx context.Context,
	cfg *config.Config,
	db storage.DBContext,
	logger *slog.Logger,
) (dashboardapp.Ledger, func()) {
	if cfg.Ledger.Driver != config.LedgerMongo {
		return ledgerstorage.NewPostgresStorage(db), func() {}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := ledgerstorage.Connect(connectCtx, cfg.Mongo.URI)
	if err != nil {
		panic("failed to connect mongo: " + err.Error())
	}

	ledger := ledgerstorage.NewMongoStorage(client.Database(cfg.Mongo.Database))
	if err := ledger.EnsureIndexes(connectCtx, cfg.Ledger.Retention); err != nil {
		logger.Error("failed to ensure ledger indexes", "error", err)
	}

	return ledger, func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Error("failed to disconnect mongo", "error", err)
		}
	}
}

func dashboardConfig(cfg *config.Config, location *time.Location) dashboardapp.Config {
	alertRules := alert.Rules{
		NoWorkoutWarningDays:  cfg.Rules.NoWorkoutWarningDays,
		NoWorkoutCriticalDays: cfg.Rules.NoWorkoutCriticalDays,
		MissedWarningDays:     cfg.Rules.MissedWarningDays,
		MissedCriticalDays:    cfg.Rules.MissedCriticalDays,
		MaxMissedPerClient:    cfg.Rules.MaxMissedPerClient,
		NutritionNoticeDays:   cfg.Rules.NutritionNoticeDays,
		NutritionWarningDays:  cfg.Rules.NutritionWarningDays,
		InactiveDays:          cfg.Rules.InactiveDays,
		Location:              location,
	}

	winRules := win.Rules{
		StreakMilestones:          cfg.Rules.StreakMilestones,
		NutritionStreakMilestones: cfg.Rules.NutritionMilestones,
		RecentWindow:              cfg.Rules.RecentWindow,
		ConsistencyWorkouts:       cfg.Rules.ConsistencyWorkouts,
		Location:                  location,
	}

	return dashboardapp.Config{
		Workers:       cfg.Dashboard.Workers,
		ClientTimeout: cfg.Dashboard.ClientTimeout,
		Lookback:      cfg.Dashboard.Lookback,
		Retention:     cfg.Ledger.Retention,
		AlertRules:    alertRules,
		WinRules:      winRules,
	}
}

// registerEventLogging records domain events. Delivering notifications for
// them is handled outside this service.
func registerEventLogging(bus *messagebus.MessageBus, logger *slog.Logger) {
	bus.Register(auth.EventRegistered, func(event domain.Event) error {
		if e, ok := event.(auth.RegisteredEvent); ok {
			logger.Info("account registered", "user_id", e.AccountID)
		}
		return nil
	})

	for _, kind := range []string{auth.EventSignedIn, auth.EventSignedOut} {
		bus.Register(kind, func(event domain.Event) error {
			if e, ok := event.(auth.SessionEvent); ok {
				logger.Info("session changed",
					"event", e.Type(),
					"user_id", e.AccountID,
					"session_id", e.SessionID,
					"app", e.Client.App,
					"platform", e.Client.Platform,
				)
			}
			return nil
		})
	}

	for _, kind := range []string{
		connection.EventRequested,
		connection.EventAccepted,
		connection.EventDeclined,
		connection.EventDisconnected,
	} {
		bus.Register(kind, func(event domain.Event) error {
			e, ok := event.(connection.StatusEvent)
			if !ok {
				return errors.New("unexpected connection event payload")
			}
			logger.Info("connection status changed",
				"event", e.Type(),
				"connection_id", e.ConnectionID,
				"coach_id", e.CoachID,
				"client_id", e.ClientID,
			)
			return nil
		})
	}

	for _, kind := range []string{invite.EventCodeCreated, invite.EventCodeRotated} {
		bus.Register(kind, func(event domain.Event) error {
			if e, ok := event.(invite.CreatedEvent); ok {
				logger.Info("invite code issued", "event", e.Type(), "coach_id", e.CoachID)
			}
			return nil
		})
	}

	for _, kind := range []string{activity.EventWorkoutLogged, activity.EventRecordAchieved} {
		bus.Register(kind, func(event domain.Event) error {
			if e, ok := event.(activity.LoggedEvent); ok {
				logger.Debug("activity logged", "event", e.Type(), "client_id", e.ClientID, "item_id", e.ItemID)
			}
			return nil
		})
	}
}
