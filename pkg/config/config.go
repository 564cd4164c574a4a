package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "TOURISM"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "TOURISM_APP_ENV"
	EnvPort   = "TOURISM_APP_PORT"
	EnvDBDSN  = "TOURISM_DB_DSN"
	EnvDBHost = "TOURISM_DB_HOST"
	EnvDBUser = "TOURISM_DB_USER"
	EnvDBName = "TOURISM_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	HTTP         HTTPConfig
	Stock        StockConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		if cfg.DB.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is required when sqlite is enabled")
		}
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TOURISM_APP_ENV" required:"true"`
	Port         string `envconfig:"TOURISM_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TOURISM_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"TOURISM_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"TOURISM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"TOURISM_DB_DSN"`
	SQLitePath string `envconfig:"TOURISM_DB_SQLITE_PATH" default:"tourism.db"`

	LegacyHost     string `envconfig:"TOURISM_DB_HOST"`
	LegacyPort     int    `envconfig:"TOURISM_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TOURISM_DB_USER"`
	LegacyPassword string `envconfig:"TOURISM_DB_PASSWORD"`
	LegacyName     string `envconfig:"TOURISM_DB_NAME"`
	LegacySSLMode  string `envconfig:"TOURISM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TOURISM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TOURISM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TOURISM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TOURISM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TOURISM_REDIS_URL"`
	Address      string        `envconfig:"TOURISM_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"TOURISM_REDIS_PASSWORD"`
	DB           int           `envconfig:"TOURISM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TOURISM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOURISM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOURISM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOURISM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TOURISM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TOURISM_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TOURISM_AUTO_MIGRATE" default:"false"`
}

// StockConfig tunes the reservation engine.
type StockConfig struct {
	AuditEnabled bool `envconfig:"TOURISM_STOCK_AUDIT_ENABLED" default:"true"`
	// MetricsEnabled toggles the stock_metrics upsert that follows each audited operation.
	MetricsEnabled bool `envconfig:"TOURISM_STOCK_METRICS_ENABLED" default:"true"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"TOURISM_CRON_INTERVAL" default:"1h"`
	LockKey        string        `envconfig:"TOURISM_CRON_LOCK_KEY" default:"cron-worker"`
	LockTTL        time.Duration `envconfig:"TOURISM_CRON_LOCK_TTL" default:"55m"`
	OrderTTL       time.Duration `envconfig:"TOURISM_CRON_ORDER_TTL" default:"48h"`
	ReconcileBatch int           `envconfig:"TOURISM_CRON_RECONCILE_BATCH" default:"200"`
}

// HTTPConfig tunes the operational API.
type HTTPConfig struct {
	RequestTimeout time.Duration `envconfig:"TOURISM_HTTP_REQUEST_TIMEOUT" default:"15s"`
	// RateLimit caps requests per client IP per RateWindow; zero disables it.
	RateLimit   int64         `envconfig:"TOURISM_HTTP_RATE_LIMIT" default:"600"`
	RateWindow  time.Duration `envconfig:"TOURISM_HTTP_RATE_WINDOW" default:"1m"`
	CORSOrigins []string      `envconfig:"TOURISM_HTTP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
