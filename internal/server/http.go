package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/slotkeeper/internal/export"
	"github.com/teemow/slotkeeper/internal/logging"
	"github.com/teemow/slotkeeper/internal/store"
	"github.com/teemow/slotkeeper/internal/voice"
)

const (
	// DefaultAddr is the default listen address of the public server.
	DefaultAddr = ":8080"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPServerConfig configures the public listener.
type HTTPServerConfig struct {
	Addr string
	// RedirectURL is the OAuth callback registered with Google. It must
	// be HTTPS unless it points at a loopback host.
	RedirectURL string
	// FunctionTimeout bounds one voice function invocation.
	FunctionTimeout time.Duration
	// WriteTimeout must exceed FunctionTimeout. Zero derives it.
	WriteTimeout time.Duration
	RateLimit    float64
	RateBurst    int
	TrustProxy   bool
	// AdminToken guards the appointment feed and /mcp, which expose caller
	// details. Both routes are left unregistered when it is empty.
	AdminToken string
	// MCPServer, when set, is served over streamable HTTP at /mcp. It
	// requires AdminToken.
	MCPServer *mcpserver.MCPServer
}

// HTTPServer is slotkeeper's public HTTP endpoint.
type HTTPServer struct {
	sc         *ServerContext
	health     *HealthChecker
	limiter    *RateLimiter
	handler    http.Handler
	httpServer *http.Server
}

// NewHTTPServer builds the routes described in the package docs.
func NewHTTPServer(sc *ServerContext, config HTTPServerConfig) (*HTTPServer, error) {
	if sc == nil || sc.Booker() == nil {
		return nil, fmt.Errorf("server context with a booker is required")
	}
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.FunctionTimeout <= 0 {
		config.FunctionTimeout = voice.DefaultFunctionTimeout
	}
	if config.WriteTimeout <= config.FunctionTimeout {
		config.WriteTimeout = config.FunctionTimeout + 10*time.Second
	}
	if config.MCPServer != nil && config.AdminToken == "" {
		return nil, fmt.Errorf("serving MCP over HTTP requires an admin token")
	}
	if config.RedirectURL != "" {
		if err := validateHTTPSRequirement(config.RedirectURL); err != nil {
			return nil, fmt.Errorf("invalid OAuth redirect URL: %w", err)
		}
	}

	s := &HTTPServer{
		sc:      sc,
		health:  NewHealthChecker(sc),
		limiter: NewRateLimiter(config.RateLimit, config.RateBurst, config.TrustProxy),
	}

	mux := http.NewServeMux()
	s.health.RegisterHealthEndpoints(mux)

	webhook := voice.NewHandler(sc.Booker(),
		voice.WithTimeout(config.FunctionTimeout),
		voice.WithLogger(sc.Logger()),
		voice.WithMetrics(sc.Metrics()),
	)
	mux.Handle("/webhook/voice", s.limiter.Middleware(webhook))

	if c := sc.Connector(); c != nil {
		oauth := NewOAuthHandlers(c, sc.Logger())
		mux.Handle("/oauth/google/start", s.limiter.Middleware(http.HandlerFunc(oauth.Start)))
		mux.Handle("/oauth/google/callback", s.limiter.Middleware(http.HandlerFunc(oauth.Callback)))
	}

	if sc.Store() != nil && config.AdminToken != "" {
		mux.Handle("GET /appointments.ics", requireAdminToken(config.AdminToken, http.HandlerFunc(s.appointmentsICS)))
	}

	if config.MCPServer != nil {
		mux.Handle("/mcp", requireAdminToken(config.AdminToken, mcpserver.NewStreamableHTTPServer(config.MCPServer,
			mcpserver.WithEndpointPath("/mcp"),
		)))
	}

	s.handler = otelhttp.NewHandler(s.instrumentationMiddleware(mux), "slotkeeper")
	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	return s, nil
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler { return s.handler }

// Health returns the probe state.
func (s *HTTPServer) Health() *HealthChecker { return s.health }

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string { return s.httpServer.Addr }

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// graceful stop.
func (s *HTTPServer) Start() error {
	s.sc.Logger().Info("starting http server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting traffic and waits for in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.limiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

func (s *HTTPServer) appointmentsICS(w http.ResponseWriter, r *http.Request) {
	from := time.Now().Add(-s.sc.ExportWindow())
	appts, err := s.sc.Store().ListAppointments(r.Context(), store.AppointmentFilter{From: from})
	if err != nil {
		s.sc.Logger().Error("failed to list appointments", logging.Err(err))
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteICS(&buf, appts, s.sc.BusinessName()); err != nil {
		s.sc.Logger().Error("failed to render ics feed", logging.Err(err))
		http.Error(w, "failed to render calendar", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="appointments.ics"`)
	_, _ = w.Write(buf.Bytes())
}

// responseWriter captures the status code for metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working for the MCP endpoint.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// instrumentationMiddleware records request counts and latency by route
// pattern, keeping path cardinality bounded.
func (s *HTTPServer) instrumentationMiddleware(next http.Handler) http.Handler {
	metrics := s.sc.Metrics()
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Context(), r.Method, route, rw.statusCode, time.Since(start))
	})
}
