package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const registryLoadTimeout = 15 * time.Second

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	query := a.reconciler.Query()
	a.logger.Info("application-starting",
		zap.String("owner", query.Owner),
		zap.String("order-api", a.cfg.OrderAPIURL),
		zap.Duration("sync-interval", a.cfg.SyncInterval),
		zap.String("log-level", a.cfg.LogLevel))

	a.startComponents()

	a.logger.Info("application-started",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("storage", a.cfg.NotifyStorage))

	return a.waitForShutdown()
}

func (a *App) startComponents() {
	a.wg.Add(1)
	go a.runHTTPServer()

	a.wg.Add(1)
	go a.runHub()

	// Token lookups fall back to discovery until the registry is loaded.
	a.wg.Add(1)
	go a.runRegistryLoader()

	a.wg.Add(1)
	go a.runReconciler()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runHub() {
	defer a.wg.Done()
	a.hub.Run(a.ctx)
}

func (a *App) runReconciler() {
	defer a.wg.Done()
	a.reconciler.Run(a.ctx)
}

// runRegistryLoader loads the token registry, retrying every sync interval
// until it succeeds or the app stops.
func (a *App) runRegistryLoader() {
	defer a.wg.Done()

	for {
		ctx, cancel := context.WithTimeout(a.ctx, registryLoadTimeout)
		n, err := LoadRegistry(ctx, a.client, a.metadata)
		cancel()

		if err == nil {
			a.logger.Info("token-registry-loaded", zap.Int("tokens", n))
			return
		}
		a.logger.Warn("token-registry-load-failed", zap.Error(err))

		select {
		case <-a.ctx.Done():
			return
		case <-time.After(a.cfg.SyncInterval):
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
