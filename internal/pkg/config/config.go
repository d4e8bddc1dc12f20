package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection,
//   remote service URLs), security settings
// - default: Values common across all environments (timeouts, intervals)
// -----------------------------------------------------------------------------

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Remote RemoteConfig
	Loan   LoanConfig
	Worker WorkerConfig
	CORS   CORSConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

// RemoteConfig covers the catalog and user directory collaborators.
type RemoteConfig struct {
	CatalogURL     string        `envconfig:"CATALOG_URL" required:"true"`
	UserServiceURL string        `envconfig:"USER_SERVICE_URL" required:"true"`
	Timeout        time.Duration `envconfig:"REMOTE_TIMEOUT" default:"3s"`
	Retries        int           `envconfig:"REMOTE_RETRIES" default:"2"`
	BreakerMaxFail int           `envconfig:"REMOTE_BREAKER_MAX_FAILURES" default:"5"`
	BreakerTimeout time.Duration `envconfig:"REMOTE_BREAKER_TIMEOUT" default:"30s"`
}

type LoanConfig struct {
	MaxActiveLoans  int   `envconfig:"LOAN_MAX_ACTIVE" default:"5"`
	MaxDurationDays int   `envconfig:"LOAN_MAX_DURATION_DAYS" default:"21"`
	PenaltyPerDay   int64 `envconfig:"LOAN_PENALTY_CENTS_PER_DAY" default:"50"`
}

type WorkerConfig struct {
	OverdueSweepInterval time.Duration `envconfig:"OVERDUE_SWEEP_INTERVAL" default:"1h"`
	ReconcileInterval    time.Duration `envconfig:"RECONCILE_INTERVAL" default:"30s"`
	ReconcileMaxBackoff  time.Duration `envconfig:"RECONCILE_MAX_BACKOFF" default:"10m"`
	ReconcileBatchSize   int           `envconfig:"RECONCILE_BATCH_SIZE" default:"50"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization,Idempotency-Key"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	TimeFormat string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889",
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433",
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		Remote: RemoteConfig{
			CatalogURL:     "http://localhost:18081",
			UserServiceURL: "http://localhost:18082",
			Timeout:        time.Second,
			Retries:        1,
			BreakerMaxFail: 5,
			BreakerTimeout: time.Second,
		},
		Loan: LoanConfig{
			MaxActiveLoans:  5,
			MaxDurationDays: 21,
			PenaltyPerDay:   50,
		},
		Worker: WorkerConfig{
			OverdueSweepInterval: time.Minute,
			ReconcileInterval:    time.Second,
			ReconcileMaxBackoff:  time.Minute,
			ReconcileBatchSize:   10,
		},
		Log: LogConfig{
			Level:      "error",
			TimeFormat: "2006-01-02 15:04:05.000",
		},
	}
}
