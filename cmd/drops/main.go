package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/clonkbot/jumpman-drops-2b3785/internal/catalog"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/config"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/httpserver"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/i18n"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/platform/observability"
)

func main() {
	addr := flag.String("addr", "", "listen address, overrides DROPS_HTTP_ADDR")
	catalogFile := flag.String("catalog", "", "catalog YAML document, overrides DROPS_CATALOG_FILE")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", invalid.Fields())
		} else {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		}
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *catalogFile != "" {
		cfg.Catalog.File = *catalogFile
	}

	baseLogger, err := observability.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("drops")

	releases, site, err := loadCatalog(cfg.Catalog.File)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	logger.Info("catalog loaded", zap.Int("releases", releases.Len()), zap.String("source", catalogSource(cfg.Catalog.File)))

	bundle, err := i18n.Embedded(cfg.UI.DefaultLocale)
	if err != nil {
		logger.Fatal("failed to load locales", zap.Error(err), zap.String("default_locale", cfg.UI.DefaultLocale))
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:          cfg.Server.Addr,
		Catalog:          releases,
		Site:             site,
		Bundle:           bundle,
		Logger:           logger,
		SessionHashKey:   cfg.Session.HashKey,
		SessionBlockKey:  cfg.Session.BlockKey,
		CookieSecure:     cfg.Session.CookieSecure,
		CountdownRefresh: cfg.UI.CountdownRefresh,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
	})
	if err != nil {
		logger.Fatal("failed to build http server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("drops server listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("env", cfg.App.Environment),
		zap.Duration("countdown_refresh", cfg.UI.CountdownRefresh),
	)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		cancel()
		stop()
		_ = baseLogger.Sync()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func loadCatalog(path string) (*catalog.Catalog, catalog.Site, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func catalogSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
