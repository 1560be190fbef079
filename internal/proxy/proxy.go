package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/claudewire/claudewire/internal/observability/middleware"
	"github.com/claudewire/claudewire/internal/openaiadapter"
)

// ReadinessChecker reports whether the application is ready to serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// Config assembles the proxy server's collaborators.
type Config struct {
	// Adapter translates chat completion requests for the upstream.
	Adapter openaiadapter.CreateChatCompletionAdapter

	// Transport is the authenticated transport handed to the adapter per
	// request.
	Transport http.RoundTripper

	// Readiness backs the /readyz endpoint.
	Readiness ReadinessChecker

	// MaxRequestBytes bounds inbound request bodies.
	MaxRequestBytes int64
}

// Proxy is the OpenAI-compatible HTTP server.
type Proxy struct {
	server *http.Server
}

// New assembles the proxy's routes and middleware chain.
func New(cfg Config) (*Proxy, error) {
	if cfg.Adapter == nil {
		return nil, fmt.Errorf("adapter cannot be nil")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if cfg.Readiness == nil {
		return nil, fmt.Errorf("readiness checker cannot be nil")
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = 10 << 20
	}

	chatCompletions := &CreateChatCompletionsHandler{
		Adapter:   cfg.Adapter,
		Transport: cfg.Transport,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/chat/completions", chatCompletions)
	mux.Handle("GET /v1/models", modelsHandler())
	mux.Handle("GET /healthz", livenessHandler())
	mux.Handle("GET /readyz", readinessHandler(cfg.Readiness))

	handler := applyMiddlewares(mux,
		middleware.RequestIDGeneration,
		middleware.TraceContextExtraction,
		middleware.Logging(slog.Default()),
		middleware.RequestIDPropagation,
		Recovery,
		RequestSizeLimit(cfg.MaxRequestBytes),
	)

	return &Proxy{
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// WriteTimeout stays 0: streaming responses outlive any fixed
			// write deadline and are bounded by the adapter's stream timers.
		},
	}, nil
}

// Start binds the listener and serves in the background. Runtime errors are
// delivered on the returned channel.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	p.server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		if err := p.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	slog.InfoContext(ctx, "proxy listening", "addr", listener.Addr().String())
	return errCh, nil
}

// Shutdown drains in-flight requests until the context expires.
func (p *Proxy) Shutdown(ctx context.Context) error {
	return p.server.Shutdown(ctx)
}
