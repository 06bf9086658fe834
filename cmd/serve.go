package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/slotkeeper/internal/config"
	"github.com/teemow/slotkeeper/internal/instrumentation"
	"github.com/teemow/slotkeeper/internal/jobs"
	"github.com/teemow/slotkeeper/internal/resources"
	"github.com/teemow/slotkeeper/internal/server"
	"github.com/teemow/slotkeeper/internal/tools/booking_tools"
)

const (
	transportHTTP  = "http"
	transportStdio = "stdio"

	shutdownTimeout = 30 * time.Second
)

// serveOptions are the serve flags. Flags that were set win over the
// configuration file and environment.
type serveOptions struct {
	transport   string
	addr        string
	metricsAddr string
	enableMCP   bool
	trustProxy  bool
	noJobs      bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the booking service",
		Long: `Start slotkeeper's booking service.

Supports two transport types:
  - http: voice webhook, Google OAuth connect flow, health probes, ICS feed
    and (with --mcp) the MCP streamable HTTP endpoint at /mcp (default)
  - stdio: MCP over standard input/output only

HTTP routes:
  POST /webhook/voice              voice-AI function calls
  GET  /oauth/google/start         connect the business calendar
  GET  /oauth/google/callback      OAuth redirect target
  GET  /appointments.ics           confirmed appointments (admin token)
  GET  /healthz /readyz /healthz/detailed

The appointment feed and /mcp expose caller details. They are served only
when SLOTKEEPER_ADMIN_TOKEN (server.admin_token) is set, and require
"Authorization: Bearer <token>".

Google OAuth:
  --config file (google.client_id, google.client_secret, google.redirect_url)
  OR GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL env vars.
  Without a client the connect flow is disabled and tokens cannot be refreshed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			return runServe(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportHTTP, "Transport type: http or stdio")
	cmd.Flags().StringVar(&opts.addr, "addr", config.Default().Server.Addr, "HTTP listen address. Can also use SLOTKEEPER_ADDR env var.")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", config.Default().Server.MetricsAddr, "Metrics server address. Empty disables the metrics server. Can also use SLOTKEEPER_METRICS_ADDR env var.")
	cmd.Flags().BoolVar(&opts.enableMCP, "mcp", false, "Serve MCP tools over streamable HTTP at /mcp")
	cmd.Flags().BoolVar(&opts.trustProxy, "trust-proxy", false, "Trust X-Forwarded-For and X-Real-IP for rate limiting. Only enable behind a proxy you control.")
	cmd.Flags().BoolVar(&opts.noJobs, "no-jobs", false, "Disable background jobs such as the token keep-warm job")

	return cmd
}

// apply copies explicitly set flags onto the configuration.
func (o serveOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = o.addr
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Server.MetricsAddr = o.metricsAddr
	}
	if cmd.Flags().Changed("mcp") {
		cfg.Server.EnableMCP = o.enableMCP
	}
	if o.noJobs {
		cfg.Jobs.KeepWarm = ""
	}
}

func runServe(ctx context.Context, cfg *config.Config, opts serveOptions) error {
	if opts.transport != transportHTTP && opts.transport != transportStdio {
		return fmt.Errorf("unsupported transport type: %s (supported: http, stdio)", opts.transport)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	metrics := provider.Metrics()
	audit := instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)

	a, err := newApp(shutdownCtx, cfg, metrics, audit)
	if err != nil {
		return errors.Join(err, provider.Shutdown(context.Background()))
	}

	if !a.oauthConfigured() {
		logger.Warn("google oauth client not configured: calendar connect and token refresh are disabled")
	}

	mcpSrv, err := newMCPServer(a, metrics)
	if err != nil {
		return errors.Join(err, a.Close(), provider.Shutdown(context.Background()))
	}

	scheduler := jobs.NewScheduler(logger)
	if cfg.Jobs.KeepWarm != "" {
		if err := scheduler.Add(cfg.Jobs.KeepWarm, jobs.NewKeepWarm(a.store, a.creds, logger)); err != nil {
			return errors.Join(err, a.Close(), provider.Shutdown(context.Background()))
		}
	}
	scheduler.Start()

	var runErr error
	switch opts.transport {
	case transportStdio:
		runErr = runStdioServer(shutdownCtx, mcpSrv)
	default:
		runErr = runHTTPServer(shutdownCtx, a, mcpSrv, provider, opts)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	return errors.Join(
		runErr,
		scheduler.Stop(stopCtx),
		a.Close(),
		provider.Shutdown(stopCtx),
	)
}

// newMCPServer registers the booking tools and business resources.
func newMCPServer(a *app, metrics *instrumentation.Metrics) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("slotkeeper", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
	if err := booking_tools.RegisterBookingTools(mcpSrv, a.booking, metrics); err != nil {
		return nil, fmt.Errorf("failed to register booking tools: %w", err)
	}
	if err := resources.RegisterBusinessResources(mcpSrv, resources.Business{
		Name:  a.cfg.Business.Name,
		Rules: a.booking.Rules(),
		Store: a.store,
	}); err != nil {
		return nil, fmt.Errorf("failed to register business resources: %w", err)
	}
	return mcpSrv, nil
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	stdio := mcpserver.NewStdioServer(mcpSrv)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, a *app, mcpSrv *mcpserver.MCPServer, provider *instrumentation.Provider, opts serveOptions) error {
	cfg := a.cfg

	deps := server.Dependencies{
		Store:        a.store,
		Booker:       a.booking,
		Metrics:      provider.Metrics(),
		Logger:       logger,
		BusinessName: cfg.Business.Name,
	}
	if a.oauthConfigured() {
		deps.Connector = a.connector
	}
	serverContext := server.NewServerContext(ctx, deps)
	defer func() { _ = serverContext.Shutdown() }()

	httpConfig := server.HTTPServerConfig{
		Addr:            cfg.Server.Addr,
		RedirectURL:     cfg.Google.RedirectURL,
		FunctionTimeout: cfg.Server.FunctionTimeout,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		TrustProxy:      opts.trustProxy,
		AdminToken:      cfg.Server.AdminToken,
	}
	if cfg.Server.EnableMCP {
		if cfg.Server.AdminToken == "" {
			return fmt.Errorf("--mcp over http requires SLOTKEEPER_ADMIN_TOKEN")
		}
		httpConfig.MCPServer = mcpSrv
	}
	if cfg.Server.AdminToken == "" {
		logger.Info("admin token not set: appointment feed disabled")
	}
	httpServer, err := server.NewHTTPServer(serverContext, httpConfig)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	var metricsServer *server.MetricsServer
	if cfg.Server.MetricsAddr != "" && provider.Enabled() && provider.PrometheusHandler() != nil {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Server.MetricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	serverDone := make(chan error, 2)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverDone <- fmt.Errorf("metrics server stopped with error: %w", err)
			}
		}()
	}

	logger.Info("slotkeeper started",
		"addr", cfg.Server.Addr,
		"metrics_addr", cfg.Server.MetricsAddr,
		"mcp", cfg.Server.EnableMCP,
		"timezone", cfg.Business.Timezone,
	)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
	case runErr = <-serverDone:
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErrs := []error{runErr, httpServer.Shutdown(stopCtx)}
	if metricsServer != nil {
		shutdownErrs = append(shutdownErrs, metricsServer.Shutdown(stopCtx))
	}
	return errors.Join(shutdownErrs...)
}
