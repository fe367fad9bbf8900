package services

import (
	"context"

	"go.uber.org/zap"

	"flowsync-core/domain/core/aggregates"
	"flowsync-core/domain/core/entities"
	"flowsync-core/pkg/audit"
)

// GraphService exposes the structural graph mutations with auditing. The
// aggregate methods already work copy-on-write; the service adds the trail
// entry and the user attribution the aggregate layer knows nothing about.
type GraphService struct {
	logger *zap.Logger
	sink   audit.Sink
}

// NewGraphService creates the service
func NewGraphService(logger *zap.Logger, sink audit.Sink) *GraphService {
	return &GraphService{logger: logger, sink: sink}
}

// CreateEdge adds an edge between two existing nodes
func (s *GraphService) CreateEdge(ctx context.Context, graph *aggregates.FlowGraph, fromRef, toRef, userID string) (*aggregates.FlowGraph, *entities.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	out, edge, err := graph.CreateEdge(fromRef, toRef)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("edge created",
		zap.String("edge", edge.ID),
		zap.String("from", fromRef),
		zap.String("to", toRef))
	s.record("CREATE_EDGE", userID, map[string]interface{}{
		"edge": edge.ID,
		"uuid": edge.UUID,
		"from": fromRef,
		"to":   toRef,
		"mean": edge.P.Mean,
	})
	return out, edge, nil
}

// DeleteNode removes a node and every edge touching it
func (s *GraphService) DeleteNode(ctx context.Context, graph *aggregates.FlowGraph, ref, userID string) (*aggregates.FlowGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	before := len(graph.Edges)
	out, err := graph.DeleteNode(ref)
	if err != nil {
		return nil, err
	}

	s.logger.Info("node deleted",
		zap.String("node", ref),
		zap.Int("edgesRemoved", before-len(out.Edges)))
	s.record("DELETE_NODE", userID, map[string]interface{}{
		"node":         ref,
		"edgesRemoved": before - len(out.Edges),
	})
	return out, nil
}

// RenameNodeID changes a node's human-readable id and rewrites every
// reference to it.
func (s *GraphService) RenameNodeID(ctx context.Context, graph *aggregates.FlowGraph, ref, newID, userID string) (*aggregates.FlowGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := graph.RenameNodeID(ref, newID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("node renamed",
		zap.String("node", ref),
		zap.String("newId", newID))
	s.record("RENAME_NODE", userID, map[string]interface{}{
		"node":  ref,
		"newId": newID,
	})
	return out, nil
}

// PasteSubgraph inserts a copied fragment with fresh identities
func (s *GraphService) PasteSubgraph(ctx context.Context, graph *aggregates.FlowGraph, sub *aggregates.FlowGraph, offsetX, offsetY float64, userID string) (*aggregates.FlowGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := graph.PasteSubgraph(sub, offsetX, offsetY)
	if err != nil {
		return nil, err
	}

	s.logger.Info("subgraph pasted",
		zap.Int("nodes", len(sub.Nodes)),
		zap.Int("edges", len(sub.Edges)))
	s.record("PASTE_SUBGRAPH", userID, map[string]interface{}{
		"nodes": len(sub.Nodes),
		"edges": len(sub.Edges),
	})
	return out, nil
}

func (s *GraphService) record(operation, userID string, details map[string]interface{}) {
	entry := audit.NewEntry(operation, details)
	entry.UserID = userID
	s.sink.Append(entry)
}
