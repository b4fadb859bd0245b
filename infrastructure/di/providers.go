package di

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"deployboard/application/auth"
	"deployboard/application/commands/bus"
	"deployboard/application/commands/handlers"
	"deployboard/application/configs"
	"deployboard/application/ports"
	"deployboard/application/workspace"
	"deployboard/domain/catalog"
	"deployboard/infrastructure/config"
	"deployboard/infrastructure/messaging"
	"deployboard/infrastructure/messaging/eventbridge"
	"deployboard/infrastructure/observability"
	"deployboard/infrastructure/persistence/expiring"
	"deployboard/infrastructure/persistence/kv"
	"deployboard/infrastructure/persistence/localstore"
	"deployboard/interfaces/http/rest"
	"deployboard/interfaces/websocket"
)

const metricsNamespace = "deployboard"

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Backend    kv.Store
	Store      *localstore.Store
	Workspace  *workspace.Workspace
	Auth       *auth.Service
	Configs    *configs.Registry
	CommandBus *bus.CommandBus
	Dispatcher *messaging.Dispatcher
	Hub        *websocket.Hub
	Forwarder  *eventbridge.Forwarder
	Collector  *observability.Collector
	Handler    http.Handler
}

// ProvideKVStore opens the configured backend. Badger is wrapped in a
// circuit breaker and closed on cleanup.
func ProvideKVStore(cfg *config.Config, logger *zap.Logger) (kv.Store, func(), error) {
	if cfg.Store.Driver != "badger" {
		return kv.NewMemoryStore(), func() {}, nil
	}
	db, err := kv.OpenBadger(kv.DefaultBadgerConfig(cfg.Store.BadgerPath), logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close badger", zap.Error(err))
		}
	}
	return kv.NewBreakerStore(db, kv.DefaultBreakerConfig(), logger), cleanup, nil
}

// ProvideCollector creates the Prometheus collector.
func ProvideCollector() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideExpiringStore wraps the backend with expiry envelopes.
func ProvideExpiringStore(backend kv.Store, cfg *config.Config, collector *observability.Collector, logger *zap.Logger) *expiring.Store {
	return expiring.New(backend,
		expiring.WithDefaultTTL(cfg.Store.DefaultTTL),
		expiring.WithObserver(collector),
		expiring.WithLogger(logger),
	)
}

// ProvideWorkspaceStore creates the editor's key layout over items.
func ProvideWorkspaceStore(items *expiring.Store, logger *zap.Logger) *localstore.Store {
	return localstore.New(items, logger)
}

// ProvideCatalog loads the catalog file, or the built-in catalog.
func ProvideCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.CatalogFile)
}

// ProvideDispatcher creates the in-process event bus.
func ProvideDispatcher(collector *observability.Collector, logger *zap.Logger) *messaging.Dispatcher {
	d := messaging.NewDispatcher(collector, logger)
	d.Subscribe(messaging.LogHandler(logger))
	return d
}

// ProvideHub starts the websocket hub and subscribes it to domain events.
func ProvideHub(dispatcher *messaging.Dispatcher, collector *observability.Collector, logger *zap.Logger) (*websocket.Hub, func()) {
	hub := websocket.NewHub(collector, logger)
	go hub.Run()
	dispatcher.Subscribe(hub)
	return hub, hub.Stop
}

// ProvideForwarder ships domain events to EventBridge when a bus name is
// configured. It returns nil otherwise.
func ProvideForwarder(ctx context.Context, cfg *config.Config, dispatcher *messaging.Dispatcher, logger *zap.Logger) (*eventbridge.Forwarder, func(), error) {
	if cfg.EventBusName == "" {
		return nil, func() {}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, nil, err
	}
	publisher := eventbridge.NewPublisher(newEventBridgeClient(awsCfg), cfg.EventBusName, cfg.EventSource, logger)
	forwarder := eventbridge.NewForwarder(publisher, 256, time.Second, logger)
	dispatcher.Subscribe(forwarder)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := forwarder.Close(ctx); err != nil {
			logger.Warn("event forwarder did not drain", zap.Error(err))
		}
	}
	return forwarder, cleanup, nil
}

func newEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideWorkspace creates the editor and streams its notices to the hub.
func ProvideWorkspace(
	store *localstore.Store,
	cat *catalog.Catalog,
	dispatcher *messaging.Dispatcher,
	collector *observability.Collector,
	hub *websocket.Hub,
	logger *zap.Logger,
) *workspace.Workspace {
	ws := workspace.New(workspace.Dependencies{
		Store:     store,
		Catalog:   cat,
		Publisher: dispatcher,
		Metrics:   collector,
		Logger:    logger,
	})
	ws.Notices().Subscribe(hub.Notice)
	return ws
}

// ProvideAuthService creates the login gate. Its notices share the
// workspace's board.
func ProvideAuthService(cfg *config.Config, store *localstore.Store, ws *workspace.Workspace, logger *zap.Logger) (*auth.Service, error) {
	tokens, err := auth.NewTokens(auth.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.JWTIssuer,
		TTL:    cfg.Auth.TokenTTL,
	})
	if err != nil {
		return nil, err
	}
	account := ports.Credentials{Username: cfg.Auth.Username, Password: cfg.Auth.Password}
	return auth.NewService(store, account, tokens, ws.Notices(), logger), nil
}

// ProvideConfigRegistry creates the configuration draft registry.
func ProvideConfigRegistry(ws *workspace.Workspace, logger *zap.Logger) *configs.Registry {
	return configs.NewRegistry(ws.Notices(), logger)
}

// ProvideCommandBus creates the command bus with every handler registered.
func ProvideCommandBus(ws *workspace.Workspace, registry *configs.Registry, authService *auth.Service, logger *zap.Logger) (*bus.CommandBus, error) {
	b := bus.NewCommandBus(
		bus.RecoveryMiddleware(logger),
		bus.LoggingMiddleware(logger),
	)
	if err := handlers.Register(b, ws, registry, authService, logger); err != nil {
		return nil, err
	}
	return b, nil
}

// ProvideHTTPHandler builds the router.
func ProvideHTTPHandler(
	cfg *config.Config,
	b *bus.CommandBus,
	ws *workspace.Workspace,
	authService *auth.Service,
	registry *configs.Registry,
	hub *websocket.Hub,
	collector *observability.Collector,
	logger *zap.Logger,
) http.Handler {
	deps := rest.Dependencies{
		Commands:    b,
		Workspace:   ws,
		Sessions:    authService,
		Configs:     registry,
		Authorizer:  authService,
		WebSocket:   websocket.NewServer(hub, authService, cfg.CORSOrigins, logger),
		Ready:       ws.Ready,
		CORSOrigins: cfg.CORSOrigins,
		ServiceName: metricsNamespace,
		Logger:      logger,
	}
	if cfg.EnableMetrics {
		deps.Metrics = collector
	}
	return rest.NewRouter(deps).Setup()
}
