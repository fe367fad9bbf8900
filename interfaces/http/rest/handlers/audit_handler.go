package handlers

import (
	"net/http"
	"strconv"

	"flowsync-core/pkg/audit"
	"flowsync-core/pkg/common"
)

// AuditHandler exposes the in-memory audit trail
type AuditHandler struct {
	trail *audit.MemorySink
}

// NewAuditHandler creates the handler
func NewAuditHandler(trail *audit.MemorySink) *AuditHandler {
	return &AuditHandler{trail: trail}
}

// List returns recorded entries, newest last. ?limit=N returns only the
// most recent N.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.trail.Entries()

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit >= 0 && limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
}
