package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flowsync-core/domain/documents"
	"flowsync-core/infrastructure/persistence/filedoc"
	"flowsync-core/pkg/common"
	pkgerrors "flowsync-core/pkg/errors"
)

// DocumentHandler exposes the parameter/case file store
type DocumentHandler struct {
	store *filedoc.Store
}

// NewDocumentHandler creates the handler
func NewDocumentHandler(store *filedoc.Store) *DocumentHandler {
	return &DocumentHandler{store: store}
}

// List returns the ids of all stored documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.List()
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"documents": ids})
}

// Get returns one document
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Load(chi.URLParam(r, "id"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, doc)
}

// Put creates or replaces one document
func (h *DocumentHandler) Put(w http.ResponseWriter, r *http.Request) {
	var doc documents.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("invalid document body"))
		return
	}

	if err := h.store.Save(chi.URLParam(r, "id"), doc); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, doc)
}

// Delete removes one document
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(chi.URLParam(r, "id")); err != nil {
		common.RespondAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
