// ABOUTME: Gateway wires the session store, model client and orchestrator behind an HTTP server
// ABOUTME: Manages the server lifecycle, health endpoints and graceful shutdown

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/proposal-gateway/internal/auth"
	"github.com/2389/proposal-gateway/internal/config"
	"github.com/2389/proposal-gateway/internal/conversation"
	"github.com/2389/proposal-gateway/internal/document"
	"github.com/2389/proposal-gateway/internal/model"
	"github.com/2389/proposal-gateway/internal/store"
)

// Gateway orchestrates the proposal-gateway server components.
type Gateway struct {
	config       *config.Config
	store        store.SessionStore
	model        conversation.Gateway
	conversation *conversation.Orchestrator
	broadcaster  *conversation.TurnBroadcaster
	drafts       *document.Drafts
	httpServer   *http.Server
	logger       *slog.Logger
}

// initStore creates the session store selected by database.driver.
func initStore(cfg *config.Config) (store.SessionStore, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		s, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("initializing store: %w", err)
		}
		return s, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	modelClient := model.NewClient(model.Config{
		Endpoint:        cfg.Model.Endpoint,
		Cookie:          cfg.Model.Cookie,
		Timeout:         cfg.Model.Timeout,
		WorkflowTimeout: cfg.Model.WorkflowTimeout,
	}, logger)

	return newGateway(cfg, modelClient, logger)
}

// newGateway builds the gateway around an arbitrary model gateway.
func newGateway(cfg *config.Config, modelGateway conversation.Gateway, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	broadcaster := conversation.NewTurnBroadcaster(logger)
	gw := &Gateway{
		config:       cfg,
		store:        s,
		model:        modelGateway,
		conversation: conversation.New(s, modelGateway, broadcaster, logger),
		broadcaster:  broadcaster,
		drafts:       document.NewDrafts(),
		logger:       logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/health/ready", gw.handleReady)

	if err := gw.registerHTTPAPIRoutes(mux, cfg); err != nil {
		_ = s.Close()
		return nil, err
	}

	// No WriteTimeout: model calls may take minutes and event streams stay open
	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if !modelGateway.Configured() {
		gw.logger.Warn("model endpoint not configured; message requests will return 503")
	}

	return gw, nil
}

// registerHTTPAPIRoutes registers API routes on the mux with or without auth middleware.
func (g *Gateway) registerHTTPAPIRoutes(mux *http.ServeMux, cfg *config.Config) error {
	routes := map[string]http.HandlerFunc{
		"/api/conversation/message":  g.handleMessage,
		"/api/conversation/reset":    g.handleReset,
		"/api/conversation/status":   g.handleStatus,
		"/api/conversation/history/": g.handleHistory,
		"/api/conversation/events/":  g.handleEvents,
		"/api/editor/message":        g.handleEditorMessage,
		"/api/editor/document/":      g.handleEditorDocument,
	}

	if cfg.Auth.JWTSecret == "" {
		for pattern, h := range routes {
			mux.HandleFunc(pattern, h)
		}
		g.logger.Warn("HTTP auth disabled - no jwt_secret configured")
		return nil
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating HTTP JWT verifier: %w", err)
	}
	authMiddleware := auth.HTTPAuthMiddleware(verifier, g.logger)
	for pattern, h := range routes {
		mux.Handle(pattern, authMiddleware(h))
	}
	g.logger.Info("HTTP auth middleware enabled")
	return nil
}

// Handler returns the HTTP handler serving all gateway routes.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		_ = g.store.Close()
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// The caller's context is already canceled at this point.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server, ends event streams and closes the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	// Closing subscriptions first lets open event streams return
	g.broadcaster.Close()

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the model endpoint is configured.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if !g.model.Configured() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("model endpoint not configured"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
