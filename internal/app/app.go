package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/claudewire/claudewire/internal/openaiadapter/anthropicclaude"
	"github.com/claudewire/claudewire/internal/proxy"
	"github.com/claudewire/claudewire/internal/tokensource"
)

// App orchestrates the lifecycle of the proxy server and related services.
type App struct {
	cfg    *Config
	proxy  *proxy.Proxy
	health *Health
}

// New wires the application: token store, refreshing credential source,
// authenticated transport, adapter, and HTTP server.
func New(ctx context.Context, cfg *Config) (*App, error) {
	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("create token store: %w", err)
	}

	refreshToken, err := store.Read(ctx)
	if err != nil {
		if errors.Is(err, tokensource.ErrNoToken) {
			return nil, fmt.Errorf("no stored credential; run 'claudewire auth login' first")
		}
		return nil, fmt.Errorf("read stored credential: %w", err)
	}

	baseTransport := newBaseTransport(cfg.Upstream)
	source := tokensource.NewTokenSource(
		refreshToken,
		tokensource.Endpoint,
		tokensource.WithTransport(baseTransport),
	)
	authTransport := &oauth2.Transport{
		Source: source,
		Base:   baseTransport,
	}

	adapter := anthropicclaude.NewCreateChatCompletionAdapter(anthropicclaude.Config{
		BaseURL:       cfg.Upstream.BaseURL,
		ReadTimeout:   cfg.Upstream.ReadTimeout,
		StreamTimeout: cfg.Upstream.StreamTimeout,
	})

	health := NewHealth()

	proxyServer, err := proxy.New(proxy.Config{
		Adapter:         adapter,
		Transport:       authTransport,
		Readiness:       health,
		MaxRequestBytes: cfg.Server.MaxRequestBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("create proxy: %w", err)
	}

	return &App{
		cfg:    cfg,
		proxy:  proxyServer,
		health: health,
	}, nil
}

// newBaseTransport clones the default transport with the configured connect
// timeout. Response header and body timing for streams is enforced by the
// adapter's own timers, not the transport.
func newBaseTransport(cfg UpstreamConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout: cfg.ConnectTimeout,
	}).DialContext
	transport.ResponseHeaderTimeout = cfg.RequestTimeout
	return transport
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting proxy server")
	proxyErrCh, err := a.proxy.Start(gCtx, a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("proxy startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.proxy.Shutdown)

	a.health.SetReady(true)
	defer a.health.SetReady(false)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-proxyErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "proxy runtime error", "error", err)
				return fmt.Errorf("proxy: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
