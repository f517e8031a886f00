package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrAdminNotConfigured is returned by Validate when the admin credential pair or token is missing.
var ErrAdminNotConfigured = errors.New("admin identity, secret and token must be configured")

// DatabaseConfig holds PostgreSQL connection settings. URL, when set, is used
// verbatim instead of the discrete fields.
type DatabaseConfig struct {
	URL                string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ConnectAttempts    int
}

// MinIOConfig holds object storage settings for solution images.
// PublicURL is the base of every returned image locator; when empty the
// locator is built from the endpoint and bucket (path-style, public bucket).
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// AdminConfig is the single operator credential pair and the static capability it unlocks.
// SecretHash, when set, is a bcrypt hash and takes precedence over Secret.
type AdminConfig struct {
	Identity   string
	Secret     string
	SecretHash string
	Token      string
}

// AppConfig is the centralized configuration struct for the catalog server.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Env      string
	AppHost  string
	Port     string
	Timezone string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Admin    AdminConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Env:      getEnv("APP_ENV", "local"),
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnectAttempts:    getEnvInt("DB_CONNECT_ATTEMPTS", 3),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "solutions"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			PublicURL: getEnv("ASSET_PUBLIC_URL", ""),
		},
		Admin: AdminConfig{
			Identity:   getEnv("ADMIN_EMAIL", ""),
			Secret:     getEnv("ADMIN_PASSWORD", ""),
			SecretHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			Token:      getEnv("ADMIN_TOKEN", ""),
		},
	}
}

// Validate reports configuration that would leave the server unable to authorize anyone.
func (c *AppConfig) Validate() error {
	a := c.Admin
	if a.Identity == "" || a.Token == "" || (a.Secret == "" && a.SecretHash == "") {
		return ErrAdminNotConfigured
	}
	return nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
