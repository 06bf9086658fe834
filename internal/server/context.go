package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/slotkeeper/internal/instrumentation"
	"github.com/teemow/slotkeeper/internal/store"
	"github.com/teemow/slotkeeper/internal/voice"
)

// Store is the persistence surface the HTTP layer needs.
type Store interface {
	Ping(ctx context.Context) error
	GetActiveAccount(ctx context.Context) (*store.Account, error)
	ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]store.Appointment, error)
}

// Connector runs the calendar account OAuth flow.
type Connector interface {
	AuthURL(state string) string
	Complete(ctx context.Context, code string) (*store.Account, error)
}

// Dependencies are the services handlers call into.
type Dependencies struct {
	Store        Store
	Booker       voice.Booker
	Connector    Connector
	Metrics      *instrumentation.Metrics
	Logger       *slog.Logger
	BusinessName string
	// ExportWindow is how far back the ICS feed reaches. Zero means 30 days.
	ExportWindow time.Duration
}

// ServerContext holds the dependencies and shutdown state shared by all
// handlers.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	deps     Dependencies
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context derived from ctx.
func NewServerContext(ctx context.Context, deps Dependencies) *ServerContext {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.ExportWindow <= 0 {
		deps.ExportWindow = 30 * 24 * time.Hour
	}
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		deps:   deps,
	}
}

// Context returns the server context, canceled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

func (sc *ServerContext) Store() Store                      { return sc.deps.Store }
func (sc *ServerContext) Booker() voice.Booker              { return sc.deps.Booker }
func (sc *ServerContext) Connector() Connector              { return sc.deps.Connector }
func (sc *ServerContext) Metrics() *instrumentation.Metrics { return sc.deps.Metrics }
func (sc *ServerContext) Logger() *slog.Logger              { return sc.deps.Logger }
func (sc *ServerContext) BusinessName() string              { return sc.deps.BusinessName }
func (sc *ServerContext) ExportWindow() time.Duration       { return sc.deps.ExportWindow }

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown marks the context as shutting down and cancels it.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
