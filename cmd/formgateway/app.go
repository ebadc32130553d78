package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Ironwood-Cyber/decorator-demo/aggregator"
	"github.com/Ironwood-Cyber/decorator-demo/componentregistry"
	"github.com/Ironwood-Cyber/decorator-demo/config"
	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/gateway"
	gwhttp "github.com/Ironwood-Cyber/decorator-demo/gateway/http"
	"github.com/Ironwood-Cyber/decorator-demo/handler/invoke"
	"github.com/Ironwood-Cyber/decorator-demo/handler/remote"
	"github.com/Ironwood-Cyber/decorator-demo/health"
	"github.com/Ironwood-Cyber/decorator-demo/metric"
	"github.com/Ironwood-Cyber/decorator-demo/natsclient"
	"github.com/Ironwood-Cyber/decorator-demo/notify"
	"github.com/Ironwood-Cyber/decorator-demo/pipeline"
	"github.com/Ironwood-Cyber/decorator-demo/pkg/tlsutil"
	"github.com/Ironwood-Cyber/decorator-demo/registry"
	"github.com/Ironwood-Cyber/decorator-demo/store"
)

// app owns every long-lived resource of the gateway process.
type app struct {
	logger *slog.Logger

	nats          *natsclient.Client
	store         store.Store
	relay         *notify.Relay
	sink          *notify.AsyncSink
	server        *http.Server
	metricsServer *metric.Server
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.shutdown(shutdownCtx, 5*time.Second)
		}
	}()

	metricsRegistry := metric.NewMetricsRegistry()
	metrics := metricsRegistry.CoreMetrics()
	monitor := health.NewMonitor()

	if cfg.NATS.Enabled {
		if a.nats, err = connectNATS(ctx, cfg.NATS, logger, metrics, monitor); err != nil {
			return nil, err
		}
	}

	if a.store, err = store.Open(ctx, cfg.Store, a.nats); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("Store opened", "backend", cfg.Store.Backend)

	set, err := loadHandlers(ctx, cfg, logger, a.store)
	if err != nil {
		return nil, err
	}
	logger.Info("Handler registry loaded", "handlers", set.Names(), "base", set.Base().Name)

	inv := invoke.New(
		invoke.WithLogger(logger),
		invoke.WithMetrics(metrics),
		invoke.WithHealth(monitor),
		invoke.WithTimeout(cfg.Pipeline.HandlerTimeout),
	)

	agg, err := aggregator.New(set,
		aggregator.WithInvoker(inv),
		aggregator.WithScriptCheck(cfg.Pipeline.CheckScripts))
	if err != nil {
		return nil, fmt.Errorf("create aggregator: %w", err)
	}

	a.relay = notify.NewRelay(logger, cfg.Server.CORSOrigins)
	a.relay.Start(relayPingInterval)

	if a.sink, err = startNotifications(ctx, cfg.NATS, a.nats, a.relay, logger, metricsRegistry); err != nil {
		return nil, err
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithInvoker(inv),
		pipeline.WithSink(a.sink),
		pipeline.WithStore(a.store),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metrics),
		pipeline.WithMaxConcurrency(cfg.Pipeline.MaxConcurrency),
	}
	if cfg.Pipeline.ValidateSchema {
		pipeOpts = append(pipeOpts, pipeline.WithSchemaValidation(agg))
	}
	pipe, err := pipeline.New(set, pipeOpts...)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	gw, err := gwhttp.NewGateway(gateway.FromServerConfig(cfg.Server), agg, pipe,
		gwhttp.WithLogger(logger),
		gwhttp.WithMetrics(metrics),
		gwhttp.WithHealth(monitor),
		gwhttp.WithNotifications(a.relay))
	if err != nil {
		return nil, fmt.Errorf("create gateway: %w", err)
	}

	serverTLS, err := tlsutil.LoadServerTLSConfig(cfg.TLS.Server)
	if err != nil {
		return nil, fmt.Errorf("load server TLS: %w", err)
	}
	a.server = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           gw.Handler(),
		TLSConfig:         serverTLS,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Metrics.Enabled {
		a.metricsServer = metric.NewServer(cfg.Metrics.Port, "", metricsRegistry)
	}
	return a, nil
}

func connectNATS(
	ctx context.Context,
	cfg config.NATSConfig,
	logger *slog.Logger,
	metrics *metric.Metrics,
	monitor *health.Monitor,
) (*natsclient.Client, error) {
	client, err := newNATSClient(cfg, logger, func(healthy bool) {
		metrics.RecordNATSStatus(healthy)
		if healthy {
			monitor.UpdateHealthy("nats", "connected")
		} else {
			monitor.UpdateUnhealthy("nats", "disconnected")
		}
	})
	if err != nil {
		return nil, err
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(connCtx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return client, nil
}

// newNATSClient applies the nats config section to a client without dialing.
func newNATSClient(cfg config.NATSConfig, logger *slog.Logger, onHealth func(bool)) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithName(cfg.Name),
		natsclient.WithMaxReconnects(cfg.MaxReconnects),
		natsclient.WithReconnectWait(cfg.ReconnectWait),
		natsclient.WithLogger(logger),
		natsclient.WithHealthChangeCallback(onHealth),
	}
	if cfg.DrainTimeout > 0 {
		opts = append(opts, natsclient.WithDrainTimeout(cfg.DrainTimeout))
	}
	if cfg.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.Username, cfg.Password))
	}

	client, err := natsclient.NewClient(strings.Join(cfg.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}
	return client, nil
}

// loadHandlers builds the registry from the configured handler list followed
// by any remote services. A registry without exactly one base handler aborts
// startup.
func loadHandlers(ctx context.Context, cfg *config.Config, logger *slog.Logger, st store.Store) (*registry.Set, error) {
	catalog, err := componentregistry.NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("register handler factories: %w", err)
	}
	logger.Debug("Handler factories registered", "count", len(catalog.ListFactories()))

	httpClient, err := tlsutil.NewHTTPClient(cfg.TLS.Client)
	if err != nil {
		return nil, fmt.Errorf("load client TLS: %w", err)
	}

	deps := registry.Dependencies{
		Logger:     logger,
		HTTPClient: httpClient,
		Timeout:    cfg.Pipeline.HandlerTimeout,
		Retry:      errors.DefaultRetryConfig(),
		Store:      st,
	}

	sources := registry.Concat{registry.CatalogSource{Catalog: catalog, Entries: cfg.Handlers, Deps: deps}}
	if cfg.Remote != nil {
		sources = append(sources, remote.Source{Config: *cfg.Remote, Deps: deps})
	}

	set, err := registry.Load(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("load handler registry: %w", err)
	}
	return set, nil
}

// startNotifications builds the fire-and-forget sink. Without NATS, results go
// straight to the websocket relay. With NATS, they are published on the
// subject and, when consume is set, the relay is fed from the subscription.
func startNotifications(
	ctx context.Context,
	cfg config.NATSConfig,
	client *natsclient.Client,
	relay *notify.Relay,
	logger *slog.Logger,
	metricsRegistry *metric.MetricsRegistry,
) (*notify.AsyncSink, error) {
	var sinks notify.Fanout
	if client != nil {
		sinks = append(sinks, notify.NewNATSSink(client, cfg.Subject))
	}
	if client == nil || !cfg.Consume {
		sinks = append(sinks, relay)
	}

	if client != nil && cfg.Consume {
		consumer := notify.NewConsumer(client, cfg.Subject, logger, metricsRegistry.CoreMetrics(), relay)
		if err := consumer.Start(ctx); err != nil {
			return nil, fmt.Errorf("start notification consumer: %w", err)
		}
		logger.Info("Notification consumer started", "subject", cfg.Subject)
	}

	sink, err := notify.NewAsyncSink(sinks,
		notify.WithLogger(logger),
		notify.WithMetrics(metricsRegistry))
	if err != nil {
		return nil, fmt.Errorf("create notification sink: %w", err)
	}
	if err := sink.Start(ctx); err != nil {
		return nil, fmt.Errorf("start notification sink: %w", err)
	}
	return sink, nil
}

// serve blocks until ctx is cancelled or a server fails.
func (a *app) serve(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("HTTP gateway listening", "address", a.server.Addr, "tls", a.server.TLSConfig != nil)
		var err error
		if a.server.TLSConfig != nil {
			err = a.server.ListenAndServeTLS("", "")
		} else {
			err = a.server.ListenAndServe()
		}
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	if a.metricsServer != nil {
		go func() {
			a.logger.Info("Metrics server listening", "address", a.metricsServer.Address())
			if err := a.metricsServer.Start(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// shutdown releases resources in reverse order of creation. Nil fields are skipped.
func (a *app) shutdown(ctx context.Context, timeout time.Duration) {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Stop(ctx); err != nil {
			a.logger.Error("Metrics server shutdown failed", "error", err)
		}
	}
	if a.sink != nil {
		if err := a.sink.Stop(timeout); err != nil {
			a.logger.Warn("Notification sink did not drain", "error", err)
		}
	}
	if a.relay != nil {
		_ = a.relay.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Store close failed", "error", err)
		}
	}
	if a.nats != nil {
		_ = a.nats.Close(ctx)
	}
}
