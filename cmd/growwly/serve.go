package main

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/spf13/cobra"

	"growwly/internal/assistant"
	"growwly/internal/config"
	"growwly/internal/dayset"
	"growwly/internal/logger"
	"growwly/internal/mailer"
	"growwly/internal/realtime"
	"growwly/internal/server"
	"growwly/internal/storage"
)

var serveBind string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, functions and realtime server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveBind, "bind", "", "listen address (overrides server.bind)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if serveBind != "" {
		cfg.Server.Bind = serveBind
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	logger.Info("database ready", "driver", cfg.Database.Driver)

	ai, err := assistant.FromConfig(ctx, cfg.Assistant)
	if err != nil {
		return fmt.Errorf("configure assistant: %w", err)
	}

	srv := server.New(server.Deps{
		Config:    cfg.Server,
		Store:     store,
		Hub:       realtime.NewHub(originChecker(cfg.Server.AllowedOrigins)),
		Assistant: ai,
		Notifier:  notifier(cfg.Mail),
		Calendar:  dayset.NewCalendar(loc),
	})
	return srv.Run(ctx)
}

func notifier(mc config.MailConfig) *mailer.Notifier {
	if mc.ResendAPIKey == "" || mc.AdminEmail == "" {
		logger.Warn("email notifications disabled", "resend_key_set", mc.ResendAPIKey != "", "admin_email_set", mc.AdminEmail != "")
		return nil
	}
	return &mailer.Notifier{
		Sender:     mailer.NewResend(mc.ResendAPIKey, mc.BaseURL),
		From:       mc.From,
		AdminEmail: mc.AdminEmail,
	}
}

// originChecker admits websocket upgrades from the configured origins.
// Requests without an Origin header come from non-browser clients.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
