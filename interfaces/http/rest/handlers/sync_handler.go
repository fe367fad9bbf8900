package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flowsync-core/application/sync"
	"flowsync-core/domain/documents"
	"flowsync-core/interfaces/http/rest/middleware"
	"flowsync-core/pkg/common"
	pkgerrors "flowsync-core/pkg/errors"
)

// SyncHandler exposes the reconciliation engine over HTTP. The caller sends
// both documents; the response carries the updated target plus the full
// change/conflict report, leaving persistence decisions to the caller.
type SyncHandler struct {
	engine *sync.Engine
}

// NewSyncHandler creates the handler
func NewSyncHandler(engine *sync.Engine) *SyncHandler {
	return &SyncHandler{engine: engine}
}

type syncRequest struct {
	Source         documents.Document `json:"source"`
	Target         documents.Document `json:"target"`
	Operation      string             `json:"operation"`
	SubDestination string             `json:"sub_destination"`
	Options        syncOptions        `json:"options"`
}

type syncOptions struct {
	ValidateOnly            bool `json:"validate_only"`
	StopOnError             bool `json:"stop_on_error"`
	IgnoreOverrideFlags     bool `json:"ignore_override_flags"`
	AllowPermissionFlagCopy bool `json:"allow_permission_flag_copy"`
}

type syncResponse struct {
	Result *sync.Result       `json:"result"`
	Target documents.Document `json:"target"`
}

// Handle runs one sync in the direction given by the URL
func (h *SyncHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if req.Target == nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("target document is required"))
		return
	}
	if req.Source == nil {
		req.Source = documents.Document{}
	}

	opts := sync.Options{
		ValidateOnly:            req.Options.ValidateOnly,
		StopOnError:             req.Options.StopOnError,
		IgnoreOverrideFlags:     req.Options.IgnoreOverrideFlags,
		AllowPermissionFlagCopy: req.Options.AllowPermissionFlagCopy,
		UserID:                  middleware.UserIDFromContext(r.Context()),
	}
	op := sync.Operation(req.Operation)
	sub := sync.SubDestination(req.SubDestination)

	var result *sync.Result
	var err error
	ctx := r.Context()
	switch sync.Direction(chi.URLParam(r, "direction")) {
	case sync.DirectionGraphInternal:
		result, err = h.engine.HandleGraphInternal(ctx, req.Source, req.Target, op, sub, opts)
	case sync.DirectionGraphToFile:
		result, err = h.engine.HandleGraphToFile(ctx, req.Source, req.Target, op, sub, opts)
	case sync.DirectionFileToGraph:
		result, err = h.engine.HandleFileToGraph(ctx, req.Source, req.Target, op, sub, opts)
	case sync.DirectionExternalToGraph:
		result, err = h.engine.HandleExternalToGraph(ctx, req.Source, req.Target, op, sub, opts)
	case sync.DirectionExternalToFile:
		result, err = h.engine.HandleExternalToFile(ctx, req.Source, req.Target, op, sub, opts)
	default:
		common.RespondAppError(w, pkgerrors.NewValidationError("unknown sync direction "+chi.URLParam(r, "direction")))
		return
	}
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, syncResponse{Result: result, Target: req.Target})
}
