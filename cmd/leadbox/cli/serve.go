package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/leadbox/leadbox/internal/backup"
	"github.com/leadbox/leadbox/internal/config"
	"github.com/leadbox/leadbox/internal/openapi"
	"github.com/leadbox/leadbox/internal/ratelimit"
	"github.com/leadbox/leadbox/internal/server"
	"github.com/leadbox/leadbox/internal/service"
	"github.com/leadbox/leadbox/internal/store"
	"github.com/leadbox/leadbox/internal/ui"
)

const banner = `
 _    ___   _   ___  ___  _____  __
| |  | __| /_\ |   \| _ )/ _ \ \/ /
| |__| _| / _ \| |) | _ \ (_) >  <
|____|___/_/ \_\___/|___/\___/_/\_\
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Leadbox web server",
		Long:  "Start the HTTP server with the public contact form, the admin dashboard and the backup endpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe() error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	fmt.Print(banner)
	fmt.Println()

	logger := newLogger(s.Log, os.Stderr)

	// 1. Lead store
	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("lead store initialized", "driver", st.Driver())

	// 2. Admin auth and sessions
	authSvc, err := newAuthService(s)
	if err != nil {
		return err
	}

	// 3. Contact form cooldown
	limiter, err := ratelimit.NewCooldown(s.RateLimit.Cooldown, s.RateLimit.MaxClients)
	if err != nil {
		return fmt.Errorf("init rate limiter: %w", err)
	}

	// 4. Page templates
	renderer, err := ui.NewRenderer()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	// 5. Backups, plus the optional schedule
	runner := backup.NewRunner(logger)
	backupSvc := newBackupService(s, st, runner, logger)
	var sched *backup.Scheduler
	if s.Backup.Schedule != "" {
		sched, err = backup.NewScheduler(s.Backup.Schedule, backupSvc.TriggerBackup, logger)
		if err != nil {
			return err
		}
		sched.Start()
		logger.Info("scheduled backups enabled", "schedule", s.Backup.Schedule)
	}

	// 6. HTTP server
	baseURL := fmt.Sprintf("http://%s:%d", displayHost(s.Server.Host), s.Server.Port)
	srv := server.New(server.Config{
		Host:            s.Server.Host,
		Port:            s.Server.Port,
		ShutdownTimeout: s.Server.ShutdownTimeout,
		CORSOrigins:     s.Server.CORSOrigins,
		TrustProxy:      s.Server.TrustProxy,
		CookieSecure:    s.Server.CookieSecure,
		LoginPerMinute:  s.RateLimit.LoginPerMinute,
	}, server.Deps{
		Store:    st,
		Auth:     authSvc,
		Limiter:  limiter,
		Renderer: renderer,
		Backup:   backupSvc,
		OpenAPI:  openapi.Generate(versionString(), baseURL),
	}, logger)

	fmt.Printf("→ Leadbox %s\n", versionString())
	fmt.Printf("→ Listening on %s\n", baseURL)
	fmt.Printf("→ Admin:      %s/admin\n", baseURL)
	fmt.Printf("→ OpenAPI:    %s/openapi.json\n", baseURL)
	fmt.Printf("→ Health:     %s/healthz\n", baseURL)
	fmt.Println()

	err = srv.ListenAndServe()
	stopBackups(sched, runner)
	return err
}

// stopBackups stops scheduled triggers before draining the runner, so no
// backup starts while or after it drains and the store can be closed.
func stopBackups(sched *backup.Scheduler, runner *backup.Runner) {
	if sched != nil {
		sched.Stop()
	}
	runner.Wait()
}

func newAuthService(s config.Settings) (*service.AuthService, error) {
	authSvc, err := service.NewAuthService(service.AuthConfig{
		Username:      s.Auth.AdminUsername,
		Password:      s.Auth.AdminPassword,
		SessionSecret: s.Auth.SessionSecret,
		BackupKey:     s.Backup.Key,
		SessionTTL:    s.Auth.SessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init auth: %w", err)
	}
	return authSvc, nil
}

func newBackupService(s config.Settings, st *store.Store, runner *backup.Runner, logger *slog.Logger) *backup.Service {
	mailer := backup.NewHTTPMailer(backup.MailerConfig{
		APIKey:   s.Email.APIKey,
		Endpoint: s.Email.Endpoint,
		Timeout:  s.Email.Timeout,
	})
	dispatcher := backup.NewDispatcher(mailer, s.Email.From, s.Email.To)
	return backup.NewService(st, dispatcher, runner, logger)
}

// displayHost turns a wildcard listen address into something clickable.
func displayHost(host string) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		return "localhost"
	}
	return host
}
