package app

import (
	"context"
	"sync"

	"github.com/mselser95/ordersync/internal/execution"
	"github.com/mselser95/ordersync/internal/metadata"
	"github.com/mselser95/ordersync/internal/notify"
	"github.com/mselser95/ordersync/internal/orderapi"
	"github.com/mselser95/ordersync/internal/prices"
	"github.com/mselser95/ordersync/internal/reconcile"
	"github.com/mselser95/ordersync/internal/state"
	"github.com/mselser95/ordersync/internal/storage"
	"github.com/mselser95/ordersync/pkg/cache"
	"github.com/mselser95/ordersync/pkg/config"
	"github.com/mselser95/ordersync/pkg/healthprobe"
	"github.com/mselser95/ordersync/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	client        *orderapi.Client
	metadata      *metadata.Cache
	priceCache    cache.Cache
	prices        *prices.Service
	store         *state.Store
	hub           *notify.Hub
	reconciler    *reconcile.Reconciler
	executor      *execution.Executor
	storage       storage.Storage
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	Owner   string          // overrides OWNER_ADDRESS when set
	Storage storage.Storage // overrides NOTIFY_STORAGE when set
}
