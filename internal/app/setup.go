package app

import (
	"context"
	"fmt"

	"github.com/mselser95/ordersync/internal/execution"
	"github.com/mselser95/ordersync/internal/metadata"
	"github.com/mselser95/ordersync/internal/notify"
	"github.com/mselser95/ordersync/internal/orderapi"
	"github.com/mselser95/ordersync/internal/orders"
	"github.com/mselser95/ordersync/internal/prices"
	"github.com/mselser95/ordersync/internal/reconcile"
	"github.com/mselser95/ordersync/internal/state"
	"github.com/mselser95/ordersync/internal/storage"
	"github.com/mselser95/ordersync/internal/strategy"
	"github.com/mselser95/ordersync/pkg/cache"
	"github.com/mselser95/ordersync/pkg/config"
	"github.com/mselser95/ordersync/pkg/healthprobe"
	"github.com/mselser95/ordersync/pkg/httpserver"
	"github.com/mselser95/ordersync/pkg/signing"
	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

const priceCacheMaxItems = 1000

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	client, err := NewClient(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup order api client: %w", err)
	}

	metadataCache := NewMetadataCache(cfg, logger, client)

	priceCache, err := cache.NewRistrettoCache(cache.DefaultRistrettoConfig("prices", priceCacheMaxItems, logger))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup price cache: %w", err)
	}
	priceService := prices.NewService(client, priceCache, cfg.PriceCacheTTL, logger)

	transitionStorage := opts.Storage
	if transitionStorage == nil {
		transitionStorage, err = setupStorage(ctx, cfg, logger)
	}
	if err != nil {
		priceCache.Close()
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	store := state.NewStore(cfg.RecentUpdateWindow, logger)
	hub := notify.NewHub(logger)

	notifier := notify.Multi{
		notify.NewLogNotifier(logger),
		notify.NewRecorder(transitionStorage, logger),
		hub,
	}

	owner := cfg.OwnerAddress
	if opts.Owner != "" {
		owner = opts.Owner
	}

	reconciler := reconcile.New(
		reconcile.Config{
			SyncInterval: cfg.SyncInterval,
			Query:        QueryFromConfig(cfg, owner),
			Logger:       logger,
			OnCycle:      healthChecker.RecordSync,
		},
		orders.NewFetcher(client, logger),
		orders.NewEnricher(metadataCache, cfg.EnrichConcurrency, logger),
		store,
		notifier,
		strategy.NewGrouper(cfg.StrategyGroupWindow),
	)

	executor := execution.New(store, client, logger)

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		View:          store,
		Controller:    reconciler,
		Actions:       executor,
		Prices:        priceService,
		Stream:        hub.ServeWS,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		client:        client,
		metadata:      metadataCache,
		priceCache:    priceCache,
		prices:        priceService,
		store:         store,
		hub:           hub,
		reconciler:    reconciler,
		executor:      executor,
		storage:       transitionStorage,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// NewClient builds the order service client. Actions are signed when
// SIGNER_PRIVATE_KEY is set; otherwise the client is read-only.
func NewClient(cfg *config.Config, logger *zap.Logger) (*orderapi.Client, error) {
	clientCfg := orderapi.Config{
		BaseURL: cfg.OrderAPIURL,
		Timeout: cfg.OrderAPITimeout,
		Logger:  logger,
	}

	if cfg.SignerPrivateKey != "" {
		signer, err := signing.NewSigner(cfg.SignerPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("create signer: %w", err)
		}
		clientCfg.Signer = signer
		logger.Info("action-signer-loaded", zap.String("address", signer.Address()))
	} else {
		logger.Warn("action-signer-missing", zap.String("note", "cancel and execute are disabled"))
	}

	return orderapi.NewClient(clientCfg), nil
}

// NewMetadataCache builds a metadata cache with an empty registry. The
// registry is loaded separately with LoadRegistry.
func NewMetadataCache(cfg *config.Config, logger *zap.Logger, client *orderapi.Client) *metadata.Cache {
	return metadata.NewCache(metadata.Config{
		Registry:         metadata.NewStaticRegistry(nil),
		Discoverer:       client,
		DiscoveryTimeout: cfg.DiscoveryTimeout,
		Logger:           logger,
	})
}

// LoadRegistry fetches the known-token list and installs it in the cache.
func LoadRegistry(ctx context.Context, client *orderapi.Client, mc *metadata.Cache) (int, error) {
	registry, err := metadata.LoadRegistry(ctx, client)
	if err != nil {
		return 0, err
	}
	mc.ReplaceRegistry(registry)
	return registry.Len(), nil
}

// QueryFromConfig returns the initial listing query.
func QueryFromConfig(cfg *config.Config, owner string) types.OrderQuery {
	return types.OrderQuery{
		Owner:   owner,
		Page:    1,
		Limit:   cfg.PageSize,
		SortBy:  cfg.SortBy,
		SortDir: cfg.SortDir,
	}
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.NotifyStorage == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(ctx, &storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}
