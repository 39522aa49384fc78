package handlers

import (
	"fmt"
	"net/http"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/models"
	"github.com/bobmcallan/storage-inspector/internal/surface"
)

// WorkersHandler serves /api/service-workers.
type WorkersHandler struct {
	view   *surface.View
	logger *common.Logger
}

// NewWorkersHandler creates a service worker handler.
func NewWorkersHandler(view *surface.View, logger *common.Logger) *WorkersHandler {
	return &WorkersHandler{view: view, logger: logger}
}

// List handles GET /api/service-workers.
func (h *WorkersHandler) List(w http.ResponseWriter, r *http.Request) {
	workers, err := h.view.RefreshWorkers(r.Context())
	if err != nil {
		writeFailure(w, h.logger, "list_service_workers", err)
		return
	}
	WriteJSON(w, http.StatusOK, workers)
}

// Delete handles DELETE /api/service-workers?id=, unregistering the worker.
func (h *WorkersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeFailure(w, h.logger, "unregister_service_worker", fmt.Errorf("%w: id is required", models.ErrInvalidArgument))
		return
	}
	if err := h.view.Delete(r.Context(), models.RecordID{Category: models.CategoryServiceWorker, Key: id}); err != nil {
		writeFailure(w, h.logger, "unregister_service_worker", err)
		return
	}
	WriteJSON(w, http.StatusOK, h.view.Workers())
}

// CachesHandler serves /api/caches.
type CachesHandler struct {
	view   *surface.View
	logger *common.Logger
}

// NewCachesHandler creates a Cache Storage handler.
func NewCachesHandler(view *surface.View, logger *common.Logger) *CachesHandler {
	return &CachesHandler{view: view, logger: logger}
}

// List handles GET /api/caches.
func (h *CachesHandler) List(w http.ResponseWriter, r *http.Request) {
	caches, err := h.view.RefreshCaches(r.Context())
	if err != nil {
		writeFailure(w, h.logger, "list_caches", err)
		return
	}
	WriteJSON(w, http.StatusOK, caches)
}

// Delete handles DELETE /api/caches?name=.
func (h *CachesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeFailure(w, h.logger, "delete_cache", fmt.Errorf("%w: name is required", models.ErrInvalidArgument))
		return
	}
	if err := h.view.Delete(r.Context(), models.RecordID{Category: models.CategoryCache, Key: name}); err != nil {
		writeFailure(w, h.logger, "delete_cache", err)
		return
	}
	WriteJSON(w, http.StatusOK, h.view.Caches())
}
