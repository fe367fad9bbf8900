package sync

import (
	"context"

	"flowsync-core/domain/core/entities"
	"flowsync-core/domain/documents"
	pkgerrors "flowsync-core/pkg/errors"
)

// Typed entry points for callers holding graph entities rather than raw
// documents. Each converts the entity through its document form, runs the
// sync, and decodes the result back, so the rule tables only ever see one
// representation.

// SyncEdgeFromFile applies a parameter file onto an edge and returns the
// updated edge. The input edge is not modified.
func (e *Engine) SyncEdgeFromFile(ctx context.Context, file documents.Document, edge *entities.Edge, op Operation, opts Options) (*entities.Edge, *Result, error) {
	target, err := documents.ToDocument(edge)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "failed to encode edge")
	}

	result, err := e.HandleFileToGraph(ctx, file, target, op, SubDestParameter, opts)
	if err != nil {
		return nil, nil, err
	}

	out := &entities.Edge{}
	if err := documents.FromDocument(target, out); err != nil {
		return nil, nil, pkgerrors.Wrap(err, "failed to decode edge")
	}
	return out, result, nil
}

// SyncEdgeToFile pushes an edge's parameter slot into a file document. The
// file is updated in place, matching the document-level handlers.
func (e *Engine) SyncEdgeToFile(ctx context.Context, edge *entities.Edge, file documents.Document, op Operation, opts Options) (*Result, error) {
	source, err := documents.ToDocument(edge)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to encode edge")
	}
	return e.HandleGraphToFile(ctx, source, file, op, SubDestParameter, opts)
}

// SyncNodeFromFile applies a case file onto a node and returns the updated
// node. The input node is not modified.
func (e *Engine) SyncNodeFromFile(ctx context.Context, file documents.Document, node *entities.Node, op Operation, sub SubDestination, opts Options) (*entities.Node, *Result, error) {
	target, err := documents.ToDocument(node)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "failed to encode node")
	}

	result, err := e.HandleFileToGraph(ctx, file, target, op, sub, opts)
	if err != nil {
		return nil, nil, err
	}

	out := &entities.Node{}
	if err := documents.FromDocument(target, out); err != nil {
		return nil, nil, pkgerrors.Wrap(err, "failed to decode node")
	}
	return out, result, nil
}
