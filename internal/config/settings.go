// Package config loads and validates leadbox settings from a YAML file,
// LEADBOX_* environment variables and the plain variable names used by
// earlier deployments.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/leadbox/leadbox/internal/store"
)

// EnvPrefix is prepended to every environment variable, with dots in the key
// replaced by underscores: auth.session_secret -> LEADBOX_AUTH_SESSION_SECRET.
const EnvPrefix = "LEADBOX"

// ErrMissingSetting is returned for each required setting left empty.
var ErrMissingSetting = errors.New("missing required setting")

// ErrInvalidSetting is returned for a setting with an unusable value.
var ErrInvalidSetting = errors.New("invalid setting")

// Settings is the full effective configuration.
type Settings struct {
	Server    ServerSettings    `mapstructure:"server"`
	Store     StoreSettings     `mapstructure:"store"`
	Auth      AuthSettings      `mapstructure:"auth"`
	Email     EmailSettings     `mapstructure:"email"`
	Backup    BackupSettings    `mapstructure:"backup"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Log       LogSettings       `mapstructure:"log"`
}

// ServerSettings controls the HTTP listener.
type ServerSettings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	TrustProxy      bool          `mapstructure:"trust_proxy"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CookieSecure    bool          `mapstructure:"cookie_secure"`
}

// StoreSettings selects the lead database.
type StoreSettings struct {
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	DataDir string `mapstructure:"data_dir"`
}

// AuthSettings holds the admin identity and session signing secret.
type AuthSettings struct {
	SessionSecret string        `mapstructure:"session_secret"`
	AdminUsername string        `mapstructure:"admin_username"`
	AdminPassword string        `mapstructure:"admin_password"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

// EmailSettings configures the HTTP email provider used for backups.
type EmailSettings struct {
	APIKey   string        `mapstructure:"api_key"`
	From     string        `mapstructure:"from"`
	To       string        `mapstructure:"to"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// BackupSettings configures the backup trigger.
type BackupSettings struct {
	Key string `mapstructure:"key"`
	// Schedule is an optional cron expression for automatic backups.
	Schedule string `mapstructure:"schedule"`
}

// RateLimitSettings configures submission and login throttling.
type RateLimitSettings struct {
	Cooldown       time.Duration `mapstructure:"cooldown"`
	MaxClients     int           `mapstructure:"max_clients"`
	LoginPerMinute int           `mapstructure:"login_per_minute"`
}

// LogSettings configures structured logging.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the settings used when nothing is configured. Secrets are
// left empty and must be supplied.
func Default() Settings {
	return Settings{
		Server: ServerSettings{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 30 * time.Second,
			CookieSecure:    true,
		},
		Store: StoreSettings{
			Driver:  store.DriverSQLite,
			DataDir: ".",
		},
		Auth: AuthSettings{
			SessionTTL: 12 * time.Hour,
		},
		Email: EmailSettings{
			Endpoint: "https://api.sendgrid.com/v3/mail/send",
			Timeout:  15 * time.Second,
		},
		RateLimit: RateLimitSettings{
			Cooldown:       5 * time.Second,
			MaxClients:     10000,
			LoginPerMinute: 10,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// legacyEnv maps settings to the variable names of the original deployment.
var legacyEnv = map[string]string{
	"auth.session_secret": "SECRET_KEY",
	"auth.admin_username": "ADMIN_USERNAME",
	"auth.admin_password": "ADMIN_PASSWORD",
	"email.api_key":       "SENDGRID_API_KEY",
	"email.from":          "FROM_EMAIL",
	"email.to":            "TO_EMAIL",
	"backup.key":          "BACKUP_KEY",
}

// requiredKeys are checked by Validate, in this order.
var requiredKeys = []string{
	"auth.session_secret",
	"auth.admin_username",
	"auth.admin_password",
	"email.api_key",
	"email.from",
	"email.to",
	"backup.key",
}

// Bind registers defaults and environment bindings on v. Call it before
// reading a config file so file values override defaults and environment
// values override both.
func Bind(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.trust_proxy", d.Server.TrustProxy)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cookie_secure", d.Server.CookieSecure)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.data_dir", d.Store.DataDir)
	v.SetDefault("auth.session_ttl", d.Auth.SessionTTL)
	v.SetDefault("email.endpoint", d.Email.Endpoint)
	v.SetDefault("email.timeout", d.Email.Timeout)
	v.SetDefault("backup.schedule", "")
	v.SetDefault("rate_limit.cooldown", d.RateLimit.Cooldown)
	v.SetDefault("rate_limit.max_clients", d.RateLimit.MaxClients)
	v.SetDefault("rate_limit.login_per_minute", d.RateLimit.LoginPerMinute)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		v.BindEnv(key, envName(key), legacy)
	}
}

// envName returns the prefixed variable name for key.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Decode reads the settings held by v without validating them. Commands that
// only touch the lead database use it so they run without email or auth
// secrets.
func Decode(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Settings, error) {
	s, err := Decode(v)
	if err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate reports every missing or invalid setting at once.
func (s Settings) Validate() error {
	values := map[string]string{
		"auth.session_secret": s.Auth.SessionSecret,
		"auth.admin_username": s.Auth.AdminUsername,
		"auth.admin_password": s.Auth.AdminPassword,
		"email.api_key":       s.Email.APIKey,
		"email.from":          s.Email.From,
		"email.to":            s.Email.To,
		"backup.key":          s.Backup.Key,
	}

	var errs []error
	for _, key := range requiredKeys {
		if strings.TrimSpace(values[key]) == "" {
			errs = append(errs, fmt.Errorf("%w: %s (set %s or %s)", ErrMissingSetting, key, envName(key), legacyEnv[key]))
		}
	}

	// bcrypt only looks at the first 72 bytes.
	if len(s.Auth.AdminPassword) > 72 {
		errs = append(errs, fmt.Errorf("%w: auth.admin_password is longer than 72 bytes", ErrInvalidSetting))
	}
	switch s.Store.Driver {
	case store.DriverSQLite, store.DriverPostgres, store.DriverMySQL:
	default:
		errs = append(errs, fmt.Errorf("%w: store.driver %q (available: sqlite, postgres, mysql)", ErrInvalidSetting, s.Store.Driver))
	}
	if s.Store.Driver != store.DriverSQLite && s.Store.Driver != "" && s.Store.DSN == "" {
		errs = append(errs, fmt.Errorf("%w: store.dsn is required for %s", ErrMissingSetting, s.Store.Driver))
	}
	if s.RateLimit.Cooldown <= 0 {
		errs = append(errs, fmt.Errorf("%w: rate_limit.cooldown must be positive", ErrInvalidSetting))
	}
	switch strings.ToLower(s.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: log.level %q (debug, info, warn, error)", ErrInvalidSetting, s.Log.Level))
	}
	switch strings.ToLower(s.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log.format %q (text, json)", ErrInvalidSetting, s.Log.Format))
	}

	return errors.Join(errs...)
}

// StoreConfig resolves the database connection. SQLite defaults to leads.db
// in the data directory.
func (s StoreSettings) StoreConfig() store.Config {
	dsn := s.DSN
	if (s.Driver == "" || s.Driver == store.DriverSQLite) && dsn == "" {
		dsn = filepath.Join(s.DataDir, "leads.db")
	}
	return store.Config{Driver: s.Driver, DSN: dsn}
}
