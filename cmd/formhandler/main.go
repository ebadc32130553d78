// Package main serves one builtin handler as a remote handler service, so a
// gateway can reach it through the remote factory.
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/Ironwood-Cyber/decorator-demo/componentregistry"
	"github.com/Ironwood-Cyber/decorator-demo/config"
	gwhttp "github.com/Ironwood-Cyber/decorator-demo/gateway/http"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/handler/remote"
	"github.com/Ironwood-Cyber/decorator-demo/registry"
)

const appName = "formhandler"

type options struct {
	factory string
	config  string
	address string
	list    bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if stderrors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		"service", appName,
		"factory", opts.factory,
		"pid", os.Getpid(),
	)
	slog.SetDefault(logger)

	catalog, err := componentregistry.NewCatalog()
	if err != nil {
		return err
	}
	if opts.list {
		fmt.Println(strings.Join(servable(catalog), "\n"))
		return nil
	}

	h, err := buildHandler(catalog, opts, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              opts.address,
		Handler:           gwhttp.ServeHandler(h, gwhttp.WithServiceLogger(logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Handler service listening", "address", opts.address)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.StringVar(&opts.factory, "factory", "base-multiplier", "Handler factory to serve")
	fs.StringVar(&opts.config, "handler-config", "", "Raw JSON configuration passed to the factory")
	fs.StringVar(&opts.address, "addr", ":8081", "HTTP listen address")
	fs.BoolVar(&opts.list, "list", false, "List servable factories and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.config != "" && !json.Valid([]byte(opts.config)) {
		return opts, fmt.Errorf("handler-config is not valid JSON")
	}
	return opts, nil
}

// servable lists every factory except the remote adapter, which would only
// proxy to another service.
func servable(catalog *registry.Catalog) []string {
	var names []string
	for name := range catalog.ListFactories() {
		if name != remote.FactoryName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func buildHandler(catalog *registry.Catalog, opts options, logger *slog.Logger) (handler.Handler, error) {
	if opts.factory == remote.FactoryName {
		return nil, fmt.Errorf("factory %q cannot be served", opts.factory)
	}
	entry := config.HandlerConfig{Name: opts.factory, Factory: opts.factory}
	if opts.config != "" {
		entry.Config = json.RawMessage(opts.config)
	}
	d, err := catalog.Create(entry, registry.Dependencies{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("create handler %s: %w", opts.factory, err)
	}
	return d.Instance, nil
}
