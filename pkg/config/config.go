package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Orders       OrdersConfig
	Cron         CronConfig
	GCP          GCPConfig
	Sheets       SheetsConfig
	PlayerID     PlayerIDConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GIFTLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"GIFTLEDGER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIFTLEDGER_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"GIFTLEDGER_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"GIFTLEDGER_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"GIFTLEDGER_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GIFTLEDGER_DB_DSN"`
	Driver string `envconfig:"GIFTLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GIFTLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"GIFTLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIFTLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"GIFTLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIFTLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIFTLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIFTLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIFTLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIFTLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIFTLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// ConflictRetries is how many times a serialization failure or deadlock is retried.
	ConflictRetries int `envconfig:"GIFTLEDGER_DB_CONFLICT_RETRIES" default:"1"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIFTLEDGER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIFTLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"GIFTLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIFTLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIFTLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIFTLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIFTLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIFTLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIFTLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GIFTLEDGER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GIFTLEDGER_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GIFTLEDGER_JWT_EXPIRATION_MINUTES" default:"720"`
}

// AccessTokenTTL returns the configured access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GIFTLEDGER_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GIFTLEDGER_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GIFTLEDGER_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GIFTLEDGER_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GIFTLEDGER_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GIFTLEDGER_AUTO_MIGRATE" default:"false"`
}

type OrdersConfig struct {
	// ReadyAfter is how long an order stays FOLLOWED before the sweeper promotes it.
	ReadyAfter  time.Duration `envconfig:"GIFTLEDGER_ORDERS_READY_AFTER" default:"168h"`
	SweepOnList bool          `envconfig:"GIFTLEDGER_ORDERS_SWEEP_ON_LIST" default:"false"`
}

func (o OrdersConfig) validate() error {
	if o.ReadyAfter <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrdersReadyAfter)
	}
	return nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"GIFTLEDGER_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"GIFTLEDGER_CRON_LOCK_TTL" default:"10m"`
}

// RateLimitConfig throttles login attempts per client IP and per email.
type RateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"GIFTLEDGER_LOGIN_RATE_WINDOW" default:"15m"`
	LoginIPLimit    int           `envconfig:"GIFTLEDGER_LOGIN_RATE_IP_LIMIT" default:"30"`
	LoginEmailLimit int           `envconfig:"GIFTLEDGER_LOGIN_RATE_EMAIL_LIMIT" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GIFTLEDGER_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GIFTLEDGER_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GIFTLEDGER_GOOGLE_APPLICATION_CREDENTIALS"`
}

type SheetsConfig struct {
	Enabled     bool          `envconfig:"GIFTLEDGER_SHEETS_ENABLED" default:"false"`
	Range       string        `envconfig:"GIFTLEDGER_SHEETS_RANGE" default:"Sheet1!A:H"`
	QueueSize   int           `envconfig:"GIFTLEDGER_SHEETS_QUEUE_SIZE" default:"256"`
	CallTimeout time.Duration `envconfig:"GIFTLEDGER_SHEETS_CALL_TIMEOUT" default:"10s"`
}

type PlayerIDConfig struct {
	Endpoint string        `envconfig:"GIFTLEDGER_PLAYER_ID_ENDPOINT" default:"https://moogold.com/wp-content/plugins/id-validation-new/id-validation-ajax.php"`
	Timeout  time.Duration `envconfig:"GIFTLEDGER_PLAYER_ID_TIMEOUT" default:"10s"`
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
