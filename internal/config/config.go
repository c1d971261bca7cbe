package config

import (
	"errors"
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"time"
)

var (
	ErrConfigNotLoaded = errors.New("config not loaded")
)

type Environment string

const (
	Production  Environment = "prod"
	Development Environment = "dev"
)

func (e *Environment) SetValue(s string) error {
	*e = Environment(s)
	if *e != Production && *e != Development {
		return configNotLoadedErr(`only "prod" and "dev" environments are allowed`)
	}
	return nil
}

type Config struct {
	App struct {
		Env Environment `yaml:"env" env:"ENV" env-required:""`
	} `yaml:"app" env-prefix:"APP_" env-required:""`

	Server struct {
		Host string `yaml:"host" env:"HOST" env-default:"localhost"`
		Port int    `yaml:"port" env:"PORT" env-default:"8080"`
	} `yaml:"server" env-prefix:"SERVER_"`

	DB struct {
		DSN string `yaml:"dsn" env:"DSN" env-required:""`
	} `yaml:"db" env-prefix:"DB_" env-required:""`

	JWT struct {
		AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"2h"`
		RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"24h"`
		Secret          string        `yaml:"secret" env:"SECRET" env-required:""`
	} `yaml:"jwt" env-prefix:"JWT_" env-required:""`

	Ledger struct {
		Driver    LedgerDriver  `yaml:"driver" env:"DRIVER" env-default:"postgres"`
		Retention time.Duration `yaml:"retention" env:"RETENTION" env-default:"336h"`
	} `yaml:"ledger" env-prefix:"LEDGER_"`

	Mongo struct {
		URI      string `yaml:"uri" env:"URI"`
		Database string `yaml:"database" env:"DATABASE" env-default:"coach"`
	} `yaml:"mongo" env-prefix:"MONGO_"`

	Rules struct {
		Timezone              string `yaml:"timezone" env:"TIMEZONE" env-default:"UTC"`
		NoWorkoutWarningDays  int    `yaml:"no_workout_warning_days" env:"NO_WORKOUT_WARNING_DAYS" env-default:"3"`
		NoWorkoutCriticalDays int    `yaml:"no_workout_critical_days" env:"NO_WORKOUT_CRITICAL_DAYS" env-default:"5"`
		MissedWarningDays     int    `yaml:"missed_warning_days" env:"MISSED_WARNING_DAYS" env-default:"1"`
		MissedCriticalDays    int    `yaml:"missed_critical_days" env:"MISSED_CRITICAL_DAYS" env-default:"3"`
		MaxMissedPerClient    int    `yaml:"max_missed_per_client" env:"MAX_MISSED_PER_CLIENT" env-default:"3"`
		NutritionNoticeDays   int    `yaml:"nutrition_notice_days" env:"NUTRITION_NOTICE_DAYS" env-default:"3"`
		NutritionWarningDays  int    `yaml:"nutrition_warning_days" env:"NUTRITION_WARNING_DAYS" env-default:"7"`
		InactiveDays          int    `yaml:"inactive_days" env:"INACTIVE_DAYS" env-default:"14"`
		ConsistencyWorkouts   int    `yaml:"consistency_workouts" env:"CONSISTENCY_WORKOUTS" env-default:"4"`
		StreakMilestones      []int  `yaml:"streak_milestones" env:"STREAK_MILESTONES" env-default:"7,14,30,60,90,180,365"`
		NutritionMilestones   []int  `yaml:"nutrition_milestones" env:"NUTRITION_MILESTONES" env-default:"7,14,30,60,90"`

		RecentWindow time.Duration `yaml:"recent_window" env:"RECENT_WINDOW" env-default:"48h"`
	} `yaml:"rules" env-prefix:"RULES_"`

	Dashboard struct {
		Workers       int           `yaml:"workers" env:"WORKERS" env-default:"8"`
		ClientTimeout time.Duration `yaml:"client_timeout" env:"CLIENT_TIMEOUT" env-default:"5s"`
		Lookback      time.Duration `yaml:"lookback" env:"LOOKBACK" env-default:"9600h"`
	} `yaml:"dashboard" env-prefix:"DASHBOARD_"`
}

type LedgerDriver string

const (
	LedgerPostgres LedgerDriver = "postgres"
	LedgerMongo    LedgerDriver = "mongo"
)

func (d *LedgerDriver) SetValue(s string) error {
	*d = LedgerDriver(s)
	if *d != LedgerPostgres && *d != LedgerMongo {
		return configNotLoadedErr(`only "postgres" and "mongo" ledger drivers are allowed`)
	}
	return nil
}

// Location resolves rules.timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Rules.Timezone)
	if err != nil {
		return nil, configNotLoadedErr("invalid rules.timezone %q: %w", c.Rules.Timezone, err)
	}
	return loc, nil
}

func Load(filePath string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig(filePath, cfg); err != nil {
		return nil, configNotLoadedErr("config not loaded: %w", err)
	}

	// Setters only run for values taken from the environment, so values read
	// from the file are checked again here.
	if err := cfg.App.Env.SetValue(string(cfg.App.Env)); err != nil {
		return nil, err
	}
	if err := cfg.Ledger.Driver.SetValue(string(cfg.Ledger.Driver)); err != nil {
		return nil, err
	}

	if cfg.Ledger.Driver == LedgerMongo && cfg.Mongo.URI == "" {
		return nil, configNotLoadedErr("mongo.uri is required for the mongo ledger driver")
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad(filePath string) *Config {
	cfg, err := Load(filePath)
	if err != nil {
		panic(err)
	}
	return cfg
}

func configNotLoadedErr(format string, args ...any) error {
	return errors.Join(fmt.Errorf(format, args...), ErrConfigNotLoaded)
}
