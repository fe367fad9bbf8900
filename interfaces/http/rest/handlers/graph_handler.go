package handlers

import (
	"encoding/json"
	"net/http"

	"flowsync-core/application/services"
	"flowsync-core/domain/core/aggregates"
	"flowsync-core/domain/core/validators"
	"flowsync-core/interfaces/http/rest/middleware"
	"flowsync-core/pkg/common"
	pkgerrors "flowsync-core/pkg/errors"
)

// GraphHandler exposes the structural mutations, the rebalancers and the
// conditional propagator. Requests carry the whole graph and responses return
// the transformed copy.
type GraphHandler struct {
	graphs      *services.GraphService
	rebalancer  *services.RebalanceService
	conditional *services.ConditionalService
	validator   *validators.GraphValidator
}

// NewGraphHandler creates the handler
func NewGraphHandler(graphs *services.GraphService, rebalancer *services.RebalanceService, conditional *services.ConditionalService, validator *validators.GraphValidator) *GraphHandler {
	return &GraphHandler{
		graphs:      graphs,
		rebalancer:  rebalancer,
		conditional: conditional,
		validator:   validator,
	}
}

func decodeInto(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("invalid request body"))
		return false
	}
	return true
}

// Validate checks a graph and returns the issues found
func (h *GraphHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Graph *aggregates.FlowGraph `json:"graph"`
	}
	if !decodeInto(w, r, &req) {
		return
	}
	if req.Graph == nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("graph is required"))
		return
	}

	issues := h.validator.Validate(req.Graph)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"issues": issues,
		"valid":  !validators.HasErrors(issues),
	})
}

// CreateEdge adds an edge between two nodes
func (h *GraphHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Graph *aggregates.FlowGraph `json:"graph"`
		From  string                `json:"from"`
		To    string                `json:"to"`
	}
	if !decodeInto(w, r, &req) {
		return
	}
	if req.Graph == nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("graph is required"))
		return
	}

	out, edge, err := h.graphs.CreateEdge(r.Context(), req.Graph, req.From, req.To, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"graph": out,
		"edge":  edge,
	})
}

// DeleteNode removes a node and its edges
func (h *GraphHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Graph *aggregates.FlowGraph `json:"graph"`
		Node  string                `json:"node"`
	}
	if !decodeInto(w, r, &req) {
		return
	}
	if req.Graph == nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("graph is required"))
		return
	}

	out, err := h.graphs.DeleteNode(r.Context(), req.Graph, req.Node, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"graph": out})
}

// RenameNode changes a node's human-readable id
func (h *GraphHandler) RenameNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Graph *aggregates.FlowGraph `json:"graph"`
		Node  string                `json:"node"`
		NewID string                `json:"new_id"`
	}
	if !decodeInto(w, r, &req) {
		return
	}
	if req.Graph == nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("graph is required"))
		return
	}

	out, err := h.graphs.RenameNodeID(r.Context(), req.Graph, req.Node, req.NewID, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"graph": out})
}

// PasteSubgraph inserts a copied fragment
func (h *GraphHandler) PasteSubgraph(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Graph    *aggregates.FlowGraph `json:"graph"`
		Fragment *aggregates.FlowGraph `json:"fragment"`
		OffsetX  float64               `json:"offset_x"`
		OffsetY  float64               `json:"offset_y"`
	}
	if !decodeInto(w, r, &req) {
		return
	}
	if req.Graph == nil || req.Fragment == nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("graph and fragment are required"))
		return
	}

	out, err := h.graphs.PasteSubgraph(r.Context(), req.Graph, req.Fragment, req.OffsetX, req.OffsetY, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"graph": out})
}

// RebalanceSiblings normalizes the origin edge's sibling probabilities
func (h *GraphHandler) RebalanceSiblings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Graph *aggregates.FlowGraph `json:"graph"`
		Edge  string                `json:"edge"`
		Force bool                  `json:"force"`
	}
	if !decodeInto(w, r, &req) {
		return
	}
	if req.Graph == nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("graph is required"))
		return
	}

	result, err := h.rebalancer.RebalanceSiblings(r.Context(), req.Graph, req.Edge, req.Force)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	respondRebalance(w, result)
}

// RebalanceConditional normalizes one conditional branch family
func (h *GraphHandler) RebalanceConditional(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Graph     *aggregates.FlowGraph `json:"graph"`
		Edge      string                `json:"edge"`
		Condition string                `json:"condition"`
		Force     bool                  `json:"force"`
	}
	if !decodeInto(w, r, &req) {
		return
	}
	if req.Graph == nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("graph is required"))
		return
	}

	result, err := h.rebalancer.RebalanceConditional(r.Context(), req.Graph, req.Edge, req.Condition, req.Force)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	respondRebalance(w, result)
}

// RebalanceVariants normalizes a case node's variant weights
func (h *GraphHandler) RebalanceVariants(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Graph   *aggregates.FlowGraph `json:"graph"`
		Node    string                `json:"node"`
		Variant string                `json:"variant"`
		Force   bool                  `json:"force"`
	}
	if !decodeInto(w, r, &req) {
		return
	}
	if req.Graph == nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("graph is required"))
		return
	}

	result, err := h.rebalancer.RebalanceVariants(r.Context(), req.Graph, req.Node, req.Variant, req.Force)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	respondRebalance(w, result)
}

// PropagateConditionals mirrors an edge's conditional branches to siblings
func (h *GraphHandler) PropagateConditionals(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Graph              *aggregates.FlowGraph `json:"graph"`
		Edge               string                `json:"edge"`
		PreviousConditions []string              `json:"previous_conditions"`
	}
	if !decodeInto(w, r, &req) {
		return
	}
	if req.Graph == nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("graph is required"))
		return
	}

	result, err := h.conditional.Propagate(r.Context(), req.Graph, req.Edge, req.PreviousConditions)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"graph":   result.Graph,
		"added":   result.Added,
		"renamed": result.Renamed,
		"removed": result.Removed,
	})
}

func respondRebalance(w http.ResponseWriter, result *services.RebalanceResult) {
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"graph":    result.Graph,
		"adjusted": result.Adjusted,
		"warnings": result.Warnings,
	})
}
