package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrBackendNotConfigured is returned when remote mode is requested without a backend URL.
var ErrBackendNotConfigured = errors.New("backend url is required unless local-only mode is enabled")

// ClientConfig drives the examia CLI: which backend is authoritative and where
// local state (capability cache, replica, uploaded images) lives.
type ClientConfig struct {
	BackendURL   string        `mapstructure:"backend_url"`   // single catalog endpoint, resolved once
	LocalOnly    bool          `mapstructure:"local_only"`    // replica holds write authority
	Timeout      time.Duration `mapstructure:"timeout"`       // per-request transport timeout
	StateDir     string        `mapstructure:"state_dir"`     // file-backed state location
	RedisURL     string        `mapstructure:"redis_url"`     // optional redis-backed state
	AssetsDir    string        `mapstructure:"assets_dir"`    // local-only uploads
	BaselinePath string        `mapstructure:"baseline_path"` // overrides the embedded baseline
	Admin        AdminConfig   `mapstructure:"-"`             // local-only credentials, env only
}

// LoadClient reads an optional config.yaml and EXAMIA_* environment variables.
// home is the user's home directory; it may be empty.
func LoadClient(home string) (*ClientConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	if home != "" {
		v.AddConfigPath(filepath.Join(home, ".examia"))
	}

	stateDir := ".examia"
	if home != "" {
		stateDir = filepath.Join(home, ".examia")
	}
	v.SetDefault("backend_url", "")
	v.SetDefault("local_only", false)
	v.SetDefault("timeout", "10s")
	v.SetDefault("state_dir", stateDir)
	v.SetDefault("redis_url", "")
	v.SetDefault("assets_dir", filepath.Join(stateDir, "assets"))
	v.SetDefault("baseline_path", "")

	v.SetEnvPrefix("EXAMIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("admin_email", "EXAMIA_ADMIN_EMAIL")
	_ = v.BindEnv("admin_password", "EXAMIA_ADMIN_PASSWORD")
	_ = v.BindEnv("admin_password_hash", "EXAMIA_ADMIN_PASSWORD_HASH")
	_ = v.BindEnv("admin_token", "EXAMIA_ADMIN_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.Admin = AdminConfig{
		Identity:   v.GetString("admin_email"),
		Secret:     v.GetString("admin_password"),
		SecretHash: v.GetString("admin_password_hash"),
		Token:      v.GetString("admin_token"),
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")

	return &cfg, nil
}

// Validate checks that the selected mode has what it needs.
func (c *ClientConfig) Validate() error {
	if !c.LocalOnly && c.BackendURL == "" {
		return ErrBackendNotConfigured
	}
	return nil
}
