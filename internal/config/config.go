package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers understood by store.Open.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Config struct {
	// Server
	Port          string
	CORSOrigins   string
	StaticDir     string
	AuthRateLimit int

	// Storage
	StoreDriver string
	DBPath      string
	DBDSN       string

	// JWT
	JWTSecret string
	JWTExpiry time.Duration

	BcryptCost int

	// Observability
	LogLevel     string
	LogRetention time.Duration
	SentryDSN    string
	AppEnv       string

	// Fixtures
	MockEmail    string
	MockPassword string
}

// Load reads configuration from defaults, an optional dotenv file and the
// process environment, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	file := os.Getenv("CONFIG_FILE")
	if file == "" {
		file = ".env"
	}
	if _, err := os.Stat(file); err == nil {
		v.SetConfigFile(file)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Port:          v.GetString("PORT"),
		CORSOrigins:   v.GetString("CORS_ORIGINS"),
		StaticDir:     v.GetString("STATIC_DIR"),
		AuthRateLimit: v.GetInt("AUTH_RATE_LIMIT"),

		StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),
		DBPath:      v.GetString("DB_PATH"),
		DBDSN:       v.GetString("DB_DSN"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTExpiry: v.GetDuration("JWT_EXPIRY"),

		BcryptCost: v.GetInt("BCRYPT_COST"),

		LogLevel:     v.GetString("LOG_LEVEL"),
		LogRetention: v.GetDuration("LOG_RETENTION"),
		SentryDSN:    v.GetString("SENTRY_DSN"),
		AppEnv:       v.GetString("APP_ENV"),

		MockEmail:    strings.TrimSpace(v.GetString("MOCK_EMAIL")),
		MockPassword: v.GetString("MOCK_PASSWORD"),
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5000")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("STATIC_DIR", "public")
	v.SetDefault("AUTH_RATE_LIMIT", 0)

	v.SetDefault("STORE_DRIVER", DriverFile)
	v.SetDefault("DB_PATH", "db.json")
	v.SetDefault("DB_DSN", "mockserver.db")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRY", "480h")

	v.SetDefault("BCRYPT_COST", 10)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_RETENTION", "720h")
	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("APP_ENV", "development")

	v.SetDefault("MOCK_EMAIL", "")
	v.SetDefault("MOCK_PASSWORD", "")
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if c.JWTExpiry <= 0 {
		return errors.New("JWT_EXPIRY must be a positive duration")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	return c.ValidateStore()
}

// ValidateStore checks only the storage settings, which is all the fixture
// generator needs.
func (c *Config) ValidateStore() error {
	switch c.StoreDriver {
	case DriverFile:
		if c.DBPath == "" {
			return errors.New("DB_PATH is required for the file store")
		}
	case DriverSQLite, DriverPostgres, DriverMySQL:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required for the %s store", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// IsSQL reports whether the configured store is backed by a SQL database.
func (c *Config) IsSQL() bool {
	return c.StoreDriver != DriverFile
}
