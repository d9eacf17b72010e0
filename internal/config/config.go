package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
	StoreDriverS3       = "s3"
)

type Config struct {
	// Server
	Port     string
	AppEnv   string
	LogLevel string

	// Origins
	AllowedOrigin string
	ExtraOrigins  []string

	// Password gate
	WebappPassword string

	// Airbyte
	AirbyteClientID         string
	AirbyteClientSecret     string
	AirbyteOrganizationID   string
	AirbyteAPIURL           string
	AirbyteTimeout          time.Duration
	AirbyteCacheAccessToken bool

	// User store
	StoreDriver   string
	StoreFilePath string

	// Database (postgres driver)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis driver
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	// S3 driver
	AWSAccessKey       string
	AWSSecretAccessKey string
	S3Bucket           string
	S3Region           string
	S3Prefix           string
	S3Endpoint         string

	// Identity cache
	IdentityCacheSize int
	IdentityCacheTTL  time.Duration

	// Diagnostics
	AdminJWTSecret   string
	SentryDSN        string
	LogRetentionDays int
}

// LoadDotEnv reads a .env file into the process environment when one exists.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3001"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AllowedOrigin: getEnv("SONAR_ALLOWED_ORIGIN", "http://localhost:5173"),
		ExtraOrigins: parseCSV(getEnv("SONAR_EXTRA_ORIGINS",
			"https://sonar-demoapp.vercel.app,http://localhost:5173,http://localhost:3000")),

		WebappPassword: getEnv("SONAR_WEBAPP_PASSWORD", ""),

		AirbyteClientID:         getEnv("SONAR_AIRBYTE_CLIENT_ID", ""),
		AirbyteClientSecret:     getEnv("SONAR_AIRBYTE_CLIENT_SECRET", ""),
		AirbyteOrganizationID:   getEnv("SONAR_AIRBYTE_ORGANIZATION_ID", ""),
		AirbyteAPIURL:           getEnv("SONAR_AIRBYTE_API_URL", "https://api.airbyte.com/v1"),
		AirbyteTimeout:          parseDuration(getEnv("SONAR_AIRBYTE_TIMEOUT", "15s"), 15*time.Second),
		AirbyteCacheAccessToken: parseBool(getEnv("SONAR_AIRBYTE_CACHE_ACCESS_TOKEN", "false")),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", StoreDriverFile)),
		StoreFilePath: getEnv("STORE_FILE_PATH", "/tmp/users.db"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "sonar_webapp"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        parseInt(getEnv("REDIS_DB", "0"), 0),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "sonar:"),

		AWSAccessKey:       getEnv("SONAR_AWS_ACCESS_KEY", ""),
		AWSSecretAccessKey: getEnv("SONAR_AWS_SECRET_ACCESS_KEY", ""),
		S3Bucket:           getEnv("SONAR_S3_BUCKET", ""),
		S3Region:           getEnv("SONAR_S3_BUCKET_REGION", "us-east-1"),
		S3Prefix:           getEnv("SONAR_S3_BUCKET_PREFIX", ""),
		S3Endpoint:         getEnv("SONAR_S3_ENDPOINT", ""),

		IdentityCacheSize: parseInt(getEnv("IDENTITY_CACHE_SIZE", "1000"), 1000),
		IdentityCacheTTL:  parseDuration(getEnv("IDENTITY_CACHE_TTL", "30m"), 30*time.Minute),

		AdminJWTSecret:   getEnv("ADMIN_JWT_SECRET", ""),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
	}
}

// Validate reports settings the selected store driver cannot run without.
// Airbyte credentials are not required at startup; token issuance fails
// with an upstream error instead, matching the hosted deployment.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreDriverFile:
		if c.StoreFilePath == "" {
			errs = append(errs, errors.New("STORE_FILE_PATH is required for the file store"))
		}
	case StoreDriverPostgres:
		if c.DBPassword == "" {
			errs = append(errs, errors.New("DB_PASSWORD is required for the postgres store"))
		}
	case StoreDriverRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis store"))
		}
	case StoreDriverS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("SONAR_S3_BUCKET is required for the s3 store"))
		}
	default:
		errs = append(errs, errors.New("STORE_DRIVER must be one of file, postgres, redis, s3"))
	}
	if len(c.WebappPassword) > 72 {
		errs = append(errs, errors.New("SONAR_WEBAPP_PASSWORD must be at most 72 bytes"))
	}
	if c.AdminJWTSecret != "" && len(c.AdminJWTSecret) < 32 {
		errs = append(errs, errors.New("ADMIN_JWT_SECRET must be at least 32 characters"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// LogSummary writes the effective configuration with secrets reduced to SET / NOT SET.
func (c *Config) LogSummary() {
	slog.Info("configuration loaded",
		"app_env", c.AppEnv,
		"port", c.Port,
		"allowed_origin", c.AllowedOrigin,
		"extra_origins", c.ExtraOrigins,
		"store_driver", c.StoreDriver,
		"airbyte_organization_id", setOrNot(c.AirbyteOrganizationID),
		"airbyte_client_id", setOrNot(c.AirbyteClientID),
		"airbyte_client_secret", setOrNot(c.AirbyteClientSecret),
		"airbyte_cache_access_token", c.AirbyteCacheAccessToken,
		"webapp_password", setOrNot(c.WebappPassword),
		"aws_access_key", setOrNot(c.AWSAccessKey),
		"s3_bucket", c.S3Bucket,
	)
}

func setOrNot(v string) string {
	if v == "" {
		return "NOT SET"
	}
	return "SET"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
