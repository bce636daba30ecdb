package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

// ServerContext holds the shared state of the MCP server: the TickTick
// client the tools call, optional instrumentation, and the read-only flag.
// The client is injected explicitly so tests can substitute a stub.
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	client      ticktick.API
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	readOnly    bool
	mu          sync.RWMutex
	shutdown    bool
}

// NewServerContext creates a server context around the given TickTick
// client and probes the API with a project listing. The probe separates
// "credentials missing" (client construction fails) from "credentials
// present but rejected or unreachable" (this fails) before the server
// starts serving tools.
func NewServerContext(ctx context.Context, client ticktick.API, readOnly bool) (*ServerContext, error) {
	if client == nil {
		return nil, fmt.Errorf("ticktick client is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	if _, err := client.GetProjects(shutdownCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to reach TickTick API: %w", err)
	}

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		client:   client,
		readOnly: readOnly,
	}, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Client returns the TickTick client.
func (sc *ServerContext) Client() ticktick.API {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.client
}

// ReadOnly reports whether mutating tools are disabled.
func (sc *ServerContext) ReadOnly() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.readOnly
}

// Metrics returns the metrics recorder, or nil when instrumentation is not
// configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// AuditLogger returns the audit logger, or nil when audit logging is not
// configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetAuditLogger sets the audit logger.
func (sc *ServerContext) SetAuditLogger(l *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = l
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context. It is safe to call more than
// once.
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
