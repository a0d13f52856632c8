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
	Tinkoff      TinkoffConfig
	CDEK         CDEKConfig
	Cookies      CookiesConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"LAPTOPSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"LAPTOPSHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LAPTOPSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LAPTOPSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LAPTOPSHOP_DB_DSN"`
	Driver string `envconfig:"LAPTOPSHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LAPTOPSHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"LAPTOPSHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LAPTOPSHOP_DB_USER"`
	LegacyPassword string `envconfig:"LAPTOPSHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"LAPTOPSHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"LAPTOPSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LAPTOPSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LAPTOPSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LAPTOPSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LAPTOPSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LAPTOPSHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LAPTOPSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"LAPTOPSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"LAPTOPSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LAPTOPSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LAPTOPSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LAPTOPSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LAPTOPSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LAPTOPSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LAPTOPSHOP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LAPTOPSHOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LAPTOPSHOP_JWT_EXPIRATION_MINUTES" default:"43200"`
}

// Expiration returns the session token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// TinkoffConfig carries the payment terminal credentials. The terminal
// password never leaves the webhook token computation.
type TinkoffConfig struct {
	TerminalKey      string        `envconfig:"LAPTOPSHOP_TINKOFF_TERMINAL_KEY" required:"true"`
	TerminalPassword string        `envconfig:"LAPTOPSHOP_TINKOFF_TERMINAL_PASSWORD" required:"true"`
	WebhookDedupTTL  time.Duration `envconfig:"LAPTOPSHOP_TINKOFF_WEBHOOK_DEDUP_TTL" default:"72h"`
}

type CDEKConfig struct {
	BaseAPIURL     string        `envconfig:"LAPTOPSHOP_CDEK_BASE_API_URL" required:"true"`
	Account        string        `envconfig:"LAPTOPSHOP_CDEK_ACCOUNT"`
	SecurePassword string        `envconfig:"LAPTOPSHOP_CDEK_SECURE_PASSWORD"`
	ShopCityCode   int           `envconfig:"LAPTOPSHOP_CDEK_SHOP_CITY_CODE" default:"44"`
	ShopAddress    string        `envconfig:"LAPTOPSHOP_CDEK_SHOP_ADDRESS"`
	RequestTimeout time.Duration `envconfig:"LAPTOPSHOP_CDEK_REQUEST_TIMEOUT" default:"10s"`
	CacheTTL       time.Duration `envconfig:"LAPTOPSHOP_CDEK_CACHE_TTL" default:"24h"`
}

type CookiesConfig struct {
	CartName  string `envconfig:"LAPTOPSHOP_COOKIE_CART_NAME" default:"_cart"`
	OrderName string `envconfig:"LAPTOPSHOP_COOKIE_ORDER_NAME" default:"_order"`
	MaxAge    int    `envconfig:"LAPTOPSHOP_COOKIE_MAX_AGE" default:"2592000"`
	Secure    bool   `envconfig:"LAPTOPSHOP_COOKIE_SECURE" default:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LAPTOPSHOP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LAPTOPSHOP_AUTO_MIGRATE" default:"false"`
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
