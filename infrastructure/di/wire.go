//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"flowsync-core/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAuditTrail,
	ProvideAuditSink,
	ProvideDocumentStore,
	ProvideDocumentWatcher,
	ProvideRegistry,
	ProvideApplier,
	ProvideEngine,
	ProvideRebalanceService,
	ProvideConditionalService,
	ProvideGraphService,
	ProvideGraphValidator,
	ProvideHandlers,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
