package sync

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"flowsync-core/domain/documents"
	"flowsync-core/pkg/audit"
)

// Engine is the entry point for reconciliation. Each handler resolves the
// rule list for its direction, applies it, tags the result with follow-up
// metadata, and writes one audit entry. Handlers edit the target document in
// place and report what they did through the Result.
type Engine struct {
	registry *Registry
	applier  *Applier
	sink     audit.Sink
	logger   *zap.Logger
}

// NewEngine creates an engine. The audit sink is required; pass
// audit.NopSink{} to discard the trail.
func NewEngine(registry *Registry, applier *Applier, sink audit.Sink, logger *zap.Logger) *Engine {
	return &Engine{
		registry: registry,
		applier:  applier,
		sink:     sink,
		logger:   logger,
	}
}

// HandleGraphInternal syncs between two graph-resident documents, e.g. the
// same edge in two chart revisions.
func (e *Engine) HandleGraphInternal(ctx context.Context, source, target documents.Document, op Operation, sub SubDestination, opts Options) (*Result, error) {
	return e.handle(ctx, DirectionGraphInternal, source, target, op, sub, opts)
}

// HandleGraphToFile pushes graph values out to a backing file document
func (e *Engine) HandleGraphToFile(ctx context.Context, source, target documents.Document, op Operation, sub SubDestination, opts Options) (*Result, error) {
	return e.handle(ctx, DirectionGraphToFile, source, target, op, sub, opts)
}

// HandleFileToGraph pulls file values into a graph-resident document
func (e *Engine) HandleFileToGraph(ctx context.Context, source, target documents.Document, op Operation, sub SubDestination, opts Options) (*Result, error) {
	return e.handle(ctx, DirectionFileToGraph, source, target, op, sub, opts)
}

// HandleExternalToGraph pulls an external feed payload into a graph-resident
// document.
func (e *Engine) HandleExternalToGraph(ctx context.Context, source, target documents.Document, op Operation, sub SubDestination, opts Options) (*Result, error) {
	return e.handle(ctx, DirectionExternalToGraph, source, target, op, sub, opts)
}

// HandleExternalToFile pushes an external feed payload into a backing file
func (e *Engine) HandleExternalToFile(ctx context.Context, source, target documents.Document, op Operation, sub SubDestination, opts Options) (*Result, error) {
	return e.handle(ctx, DirectionExternalToFile, source, target, op, sub, opts)
}

func (e *Engine) handle(ctx context.Context, direction Direction, source, target documents.Document, op Operation, sub SubDestination, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rules, err := e.registry.Rules(direction, op, sub)
	if err != nil {
		e.logger.Error("mapping lookup failed",
			zap.String("direction", string(direction)),
			zap.String("operation", string(op)),
			zap.String("subDestination", string(sub)),
			zap.Error(err))
		return nil, err
	}

	result := e.applier.Apply(source, target, rules, opts)
	e.tagFollowUps(direction, result)

	e.logger.Debug("sync applied",
		zap.String("direction", string(direction)),
		zap.String("operation", string(op)),
		zap.String("subDestination", string(sub)),
		zap.Int("changes", len(result.Changes)),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Int("errors", len(result.Errors)))

	details := map[string]interface{}{
		"changes":      len(result.Changes),
		"conflicts":    len(result.Conflicts),
		"errors":       len(result.Errors),
		"validateOnly": opts.ValidateOnly,
		"success":      result.Success,
	}
	// Caller-supplied metadata rides along on the trail entry; the reserved
	// counters above win on key collisions.
	for k, v := range opts.Metadata {
		if _, reserved := details[k]; !reserved {
			details[k] = v
		}
	}
	entry := audit.NewEntry(string(op), details)
	entry.Direction = string(direction)
	entry.SubDestination = string(sub)
	entry.UserID = opts.UserID
	e.sink.Append(entry)

	return result, nil
}

// tagFollowUps marks results whose changes invalidate derived distributions.
// The engine never rebalances on its own; the caller decides when to run the
// rebalancer over which scope.
func (e *Engine) tagFollowUps(direction Direction, result *Result) {
	if direction != DirectionFileToGraph && direction != DirectionExternalToGraph && direction != DirectionGraphInternal {
		return
	}
	for _, change := range result.Changes {
		if change.Field == "p.mean" {
			result.setMeta(MetaRequiresSiblingRebalance, true)
		}
		if change.Field == "case.variants" || strings.HasPrefix(change.Field, "case.variants.") {
			result.setMeta(MetaRequiresVariantRebalance, true)
		}
	}
}
