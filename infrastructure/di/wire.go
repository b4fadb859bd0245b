//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"deployboard/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideKVStore,
	ProvideCollector,
	ProvideExpiringStore,
	ProvideWorkspaceStore,
	ProvideCatalog,
	ProvideDispatcher,
	ProvideHub,
	ProvideForwarder,
	ProvideWorkspace,
	ProvideAuthService,
	ProvideConfigRegistry,
	ProvideCommandBus,
	ProvideHTTPHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
