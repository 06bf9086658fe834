package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/teemow/slotkeeper/internal/booking"
	"github.com/teemow/slotkeeper/internal/calendar"
	"github.com/teemow/slotkeeper/internal/config"
	"github.com/teemow/slotkeeper/internal/google"
	"github.com/teemow/slotkeeper/internal/instrumentation"
	"github.com/teemow/slotkeeper/internal/store"
)

// app holds the components every command builds from the configuration.
type app struct {
	cfg       *config.Config
	store     *store.Store
	creds     *google.CredentialManager
	connector *google.Connector
	gateway   *calendar.Gateway
	booking   *booking.Service
	logger    *slog.Logger
}

// loadConfig reads the config file named by --config or SLOTKEEPER_CONFIG.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("SLOTKEEPER_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newApp opens the store and wires the calendar and booking components.
// metrics and audit may be nil.
func newApp(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics, audit *instrumentation.AuditLogger) (*app, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	oauthConfig := google.NewOAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	creds := google.NewCredentialManager(oauthConfig, st,
		google.WithLogger(logger),
		google.WithMetrics(metrics),
	)

	gateway := calendar.NewGateway(creds,
		calendar.WithTimeout(cfg.Server.CalendarTimeout),
		calendar.WithLogger(logger),
		calendar.WithMetrics(metrics),
	)

	svc := booking.NewService(gateway, st, booking.Config{
		Rules:        rules,
		DaysAhead:    cfg.Business.DaysAhead,
		BusinessName: cfg.Business.Name,
	},
		booking.WithLogger(logger),
		booking.WithMetrics(metrics),
		booking.WithAudit(audit),
	)

	return &app{
		cfg:       cfg,
		store:     st,
		creds:     creds,
		connector: google.NewConnector(creds, st, logger, metrics),
		gateway:   gateway,
		booking:   svc,
		logger:    logger,
	}, nil
}

// oauthConfigured reports whether a Google OAuth client is configured.
func (a *app) oauthConfigured() bool {
	return a.cfg.Google.ClientID != "" && a.cfg.Google.ClientSecret != ""
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}

// withApp loads the configuration and runs fn with a wired app.
func withApp(ctx context.Context, fn func(*app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, nil, nil)
	if err != nil {
		return err
	}
	return errors.Join(fn(a), a.Close())
}
