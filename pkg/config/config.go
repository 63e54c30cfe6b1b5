package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is applied by envconfig when resolving variables.
const EnvPrefix = "shopcore"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Gateway       GatewayConfig
	AuthRateLimit AuthRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPCORE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPCORE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOPCORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPCORE_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"SHOPCORE_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPCORE_DB_DSN"`
	Driver string `envconfig:"SHOPCORE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SHOPCORE_DB_HOST"`
	Port     int    `envconfig:"SHOPCORE_DB_PORT" default:"5432"`
	User     string `envconfig:"SHOPCORE_DB_USER"`
	Password string `envconfig:"SHOPCORE_DB_PASSWORD"`
	Name     string `envconfig:"SHOPCORE_DB_NAME"`
	SSLMode  string `envconfig:"SHOPCORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPCORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPCORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPCORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPCORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("db: either SHOPCORE_DB_DSN or host/user/name must be set")
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	query := dsn.Query()
	query.Set("sslmode", d.SSLMode)
	dsn.RawQuery = query.Encode()
	d.DSN = dsn.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPCORE_REDIS_URL"`
	Address      string        `envconfig:"SHOPCORE_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPCORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPCORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPCORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPCORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPCORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPCORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPCORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret              string `envconfig:"SHOPCORE_JWT_SECRET" required:"true"`
	Issuer              string `envconfig:"SHOPCORE_JWT_ISSUER" default:"shopcore"`
	AccessTokenMinutes  int    `envconfig:"SHOPCORE_JWT_ACCESS_MINUTES" default:"60"`
	RefreshTokenMinutes int    `envconfig:"SHOPCORE_JWT_REFRESH_MINUTES" default:"1440"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.AccessTokenMinutes <= 0 {
		return 0
	}
	return time.Duration(j.AccessTokenMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    uint32 `envconfig:"SHOPCORE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        uint32 `envconfig:"SHOPCORE_ARGON_TIME" default:"3"`
	ArgonParallelism uint8  `envconfig:"SHOPCORE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     uint32 `envconfig:"SHOPCORE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      uint32 `envconfig:"SHOPCORE_ARGON_KEY_LEN" default:"32"`
}

// GatewayConfig tunes the simulated payment gateway.
type GatewayConfig struct {
	Latency        time.Duration `envconfig:"SHOPCORE_GATEWAY_LATENCY" default:"250ms"`
	RefundLatency  time.Duration `envconfig:"SHOPCORE_GATEWAY_REFUND_LATENCY" default:"100ms"`
	DefaultCourier string        `envconfig:"SHOPCORE_DEFAULT_COURIER" default:"Default Courier"`
}

type AuthRateLimitConfig struct {
	Window        time.Duration `envconfig:"SHOPCORE_AUTH_RATE_WINDOW" default:"1m"`
	IPLimit       int           `envconfig:"SHOPCORE_AUTH_RATE_IP_LIMIT" default:"30"`
	IdentityLimit int           `envconfig:"SHOPCORE_AUTH_RATE_IDENTITY_LIMIT" default:"10"`
}
