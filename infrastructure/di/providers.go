package di

import (
	"net/http"

	"go.uber.org/zap"

	"flowsync-core/application/services"
	"flowsync-core/application/sync"
	"flowsync-core/domain/core/validators"
	"flowsync-core/infrastructure/config"
	"flowsync-core/infrastructure/persistence/filedoc"
	"flowsync-core/interfaces/http/rest"
	"flowsync-core/interfaces/http/rest/handlers"
	"flowsync-core/pkg/audit"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Trail      *audit.MemorySink
	Store      *filedoc.Store
	Watcher    *config.DocumentWatcher
	Engine     *sync.Engine
	Rebalancer *services.RebalanceService
	Router     http.Handler
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAuditTrail creates the in-memory audit trail
func ProvideAuditTrail() *audit.MemorySink {
	return audit.NewMemorySink()
}

// ProvideAuditSink wraps the trail so every entry is also logged
func ProvideAuditSink(trail *audit.MemorySink, logger *zap.Logger) audit.Sink {
	return audit.NewZapSink(trail, logger)
}

// ProvideDocumentStore creates the file-backed document store
func ProvideDocumentStore(cfg *config.Config, logger *zap.Logger) (*filedoc.Store, error) {
	return filedoc.NewStore(cfg.DocumentDir, logger)
}

// ProvideDocumentWatcher creates the document directory watcher
func ProvideDocumentWatcher(cfg *config.Config, logger *zap.Logger) (*config.DocumentWatcher, error) {
	return config.NewDocumentWatcher(cfg.DocumentDir, logger)
}

// ProvideRegistry creates the mapping registry
func ProvideRegistry() *sync.Registry {
	return sync.NewRegistry()
}

// ProvideApplier creates the rule applier
func ProvideApplier(logger *zap.Logger) *sync.Applier {
	return sync.NewApplier(logger)
}

// ProvideEngine creates the reconciliation engine
func ProvideEngine(registry *sync.Registry, applier *sync.Applier, sink audit.Sink, logger *zap.Logger) *sync.Engine {
	return sync.NewEngine(registry, applier, sink, logger)
}

// ProvideRebalanceService creates the rebalance service
func ProvideRebalanceService(logger *zap.Logger, sink audit.Sink) *services.RebalanceService {
	return services.NewRebalanceService(logger, sink)
}

// ProvideConditionalService creates the conditional propagation service
func ProvideConditionalService(logger *zap.Logger, sink audit.Sink) *services.ConditionalService {
	return services.NewConditionalService(logger, sink)
}

// ProvideGraphService creates the graph mutation service
func ProvideGraphService(logger *zap.Logger, sink audit.Sink) *services.GraphService {
	return services.NewGraphService(logger, sink)
}

// ProvideGraphValidator creates the graph validator
func ProvideGraphValidator() *validators.GraphValidator {
	return validators.NewGraphValidator()
}

// ProvideHandlers groups the HTTP handlers for the router
func ProvideHandlers(
	engine *sync.Engine,
	graphs *services.GraphService,
	rebalancer *services.RebalanceService,
	conditional *services.ConditionalService,
	validator *validators.GraphValidator,
	store *filedoc.Store,
	trail *audit.MemorySink,
) rest.Handlers {
	return rest.Handlers{
		Sync:      handlers.NewSyncHandler(engine),
		Graph:     handlers.NewGraphHandler(graphs, rebalancer, conditional, validator),
		Documents: handlers.NewDocumentHandler(store),
		Audit:     handlers.NewAuditHandler(trail),
	}
}

// ProvideRouter builds the HTTP router
func ProvideRouter(cfg *config.Config, logger *zap.Logger, h rest.Handlers) http.Handler {
	return rest.NewRouter(cfg, logger, h)
}
