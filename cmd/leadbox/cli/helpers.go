package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/leadbox/leadbox/internal/config"
	"github.com/leadbox/leadbox/internal/store"
)

// loadSettings returns the validated settings for commands that need the
// full configuration.
func loadSettings() (config.Settings, error) {
	return config.Load(viper.GetViper())
}

// loadStoreSettings returns settings for commands that only read the lead
// database; secrets may be unset.
func loadStoreSettings() (config.Settings, error) {
	return config.Decode(viper.GetViper())
}

// openStore opens the configured lead database.
func openStore(s config.Settings) (*store.Store, error) {
	st, err := store.Open(s.Store.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("open lead store: %w", err)
	}
	return st, nil
}

// newLogger builds the process logger from log.level and log.format.
func newLogger(cfg config.LogSettings, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}

// truncate shortens s to n runes for table output.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
