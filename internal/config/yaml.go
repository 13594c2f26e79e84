package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const redacted = "********"

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "leadbox.yaml"

// YAML renders the settings as a config file. With redact set, secrets are
// masked so the output is safe to paste into a ticket.
func (s Settings) YAML(redact bool) ([]byte, error) {
	secret := func(v string) string {
		if redact && v != "" {
			return redacted
		}
		return v
	}

	doc := map[string]any{
		"server": map[string]any{
			"host":             s.Server.Host,
			"port":             s.Server.Port,
			"trust_proxy":      s.Server.TrustProxy,
			"cors_origins":     s.Server.CORSOrigins,
			"shutdown_timeout": s.Server.ShutdownTimeout.String(),
			"cookie_secure":    s.Server.CookieSecure,
		},
		"store": map[string]any{
			"driver":   s.Store.Driver,
			"dsn":      secret(s.Store.DSN),
			"data_dir": s.Store.DataDir,
		},
		"auth": map[string]any{
			"session_secret": secret(s.Auth.SessionSecret),
			"admin_username": s.Auth.AdminUsername,
			"admin_password": secret(s.Auth.AdminPassword),
			"session_ttl":    s.Auth.SessionTTL.String(),
		},
		"email": map[string]any{
			"api_key":  secret(s.Email.APIKey),
			"from":     s.Email.From,
			"to":       s.Email.To,
			"endpoint": s.Email.Endpoint,
			"timeout":  s.Email.Timeout.String(),
		},
		"backup": map[string]any{
			"key":      secret(s.Backup.Key),
			"schedule": s.Backup.Schedule,
		},
		"rate_limit": map[string]any{
			"cooldown":         s.RateLimit.Cooldown.String(),
			"max_clients":      s.RateLimit.MaxClients,
			"login_per_minute": s.RateLimit.LoginPerMinute,
		},
		"log": map[string]any{
			"level":  s.Log.Level,
			"format": s.Log.Format,
		},
	}
	return yaml.Marshal(doc)
}

const defaultHeader = `# Leadbox configuration
#
# Secrets are better supplied through the environment, e.g.
#   LEADBOX_AUTH_SESSION_SECRET, LEADBOX_AUTH_ADMIN_PASSWORD,
#   LEADBOX_EMAIL_API_KEY, LEADBOX_BACKUP_KEY
# or the older SECRET_KEY, ADMIN_PASSWORD, SENDGRID_API_KEY, BACKUP_KEY.
# A .env file in the working directory is loaded automatically.

`

// WriteDefaultConfig writes the default configuration to a YAML file. It
// refuses to overwrite an existing file unless force is set.
func WriteDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	data, err := Default().YAML(false)
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return os.WriteFile(path, append([]byte(defaultHeader), data...), 0600)
}
