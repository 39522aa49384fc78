package handlers

import (
	"fmt"
	"net/http"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/models"
	"github.com/bobmcallan/storage-inspector/internal/surface"
)

// StorageHandler serves /api/storage: cookie, localStorage and
// sessionStorage rows of the inspected tab.
type StorageHandler struct {
	view   *surface.View
	logger *common.Logger
}

// NewStorageHandler creates a storage handler over view.
func NewStorageHandler(view *surface.View, logger *common.Logger) *StorageHandler {
	return &StorageHandler{view: view, logger: logger}
}

// StorageWrite is the PUT /api/storage body.
type StorageWrite struct {
	Type   string `json:"type"`
	Key    string `json:"key"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// List handles GET /api/storage?type=&q=. The snapshot is refreshed first.
func (h *StorageHandler) List(w http.ResponseWriter, r *http.Request) {
	category, err := models.ParseItemFilter(r.URL.Query().Get("type"))
	if err != nil {
		writeFailure(w, h.logger, "list_storage", err)
		return
	}
	if _, err := h.view.Refresh(r.Context()); surface.Degraded(err) != nil {
		writeFailure(w, h.logger, "list_storage", err)
		return
	} else if err != nil {
		w.Header().Set(PartialHeader, "true")
	}

	rows := h.view.Rows(category, r.URL.Query().Get("q"))
	if rows == nil {
		rows = []models.StorageItem{}
	}
	WriteJSON(w, http.StatusOK, rows)
}

// Put handles PUT /api/storage, creating or overwriting one row.
func (h *StorageHandler) Put(w http.ResponseWriter, r *http.Request) {
	var body StorageWrite
	if !decodeJSON(w, r, &body) {
		return
	}
	category, err := models.ParseItemFilter(body.Type)
	if err == nil && category == "" {
		err = fmt.Errorf("%w: type is required", models.ErrInvalidArgument)
	}
	if err == nil && body.Key == "" {
		err = fmt.Errorf("%w: key is required", models.ErrInvalidArgument)
	}
	if err != nil {
		writeFailure(w, h.logger, "set_storage", err)
		return
	}

	item := models.StorageItem{
		Category: category,
		Key:      body.Key,
		Value:    body.Value,
		Domain:   body.Domain,
		Path:     body.Path,
	}
	if err := h.view.Facade().Set(r.Context(), item); err != nil {
		writeFailure(w, h.logger, "set_storage", err)
		return
	}
	if _, err := h.view.Refresh(r.Context()); surface.Degraded(err) != nil {
		writeFailure(w, h.logger, "set_storage", err)
		return
	}
	WriteJSON(w, http.StatusOK, h.view.Rows(category, ""))
}

// Delete handles DELETE /api/storage?type=&key=&domain=.
func (h *StorageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category, err := models.ParseItemFilter(q.Get("type"))
	if err == nil && category == "" {
		err = fmt.Errorf("%w: type is required", models.ErrInvalidArgument)
	}
	if err == nil && q.Get("key") == "" {
		err = fmt.Errorf("%w: key is required", models.ErrInvalidArgument)
	}
	if err != nil {
		writeFailure(w, h.logger, "delete_storage", err)
		return
	}

	id := models.RecordID{Category: category, Key: q.Get("key"), Domain: q.Get("domain")}
	if err := h.view.Delete(r.Context(), id); err != nil {
		writeFailure(w, h.logger, "delete_storage", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
