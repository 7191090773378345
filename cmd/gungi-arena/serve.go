package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/gungi-arena/internal/arenabuilder"
	appcfg "github.com/park285/gungi-arena/internal/config"
	"github.com/park285/gungi-arena/internal/obslog"
)

type ServeCmd struct {
	Addr     string `short:"a" help:"Listen address (overrides LISTEN_ADDR)"`
	LogLevel string `short:"l" name:"log-level" help:"Log level (overrides LOG_LEVEL)"`
}

func (c *ServeCmd) Run() error {
	cfg, err := appcfg.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.Addr != "" {
		cfg.ListenAddr = c.Addr
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	logger, err := obslog.Init(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	deps, err := arenabuilder.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("arena init: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("shutdown_close_failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	deps.Store.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           deps.Gateway.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway_listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("gateway_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
