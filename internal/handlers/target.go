package handlers

import (
	"net/http"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/surface"
)

// TargetHandler reports the inspected tab.
type TargetHandler struct {
	view   *surface.View
	logger *common.Logger
}

// NewTargetHandler creates a target handler.
func NewTargetHandler(view *surface.View, logger *common.Logger) *TargetHandler {
	return &TargetHandler{view: view, logger: logger}
}

// ServeHTTP handles GET /api/target.
func (h *TargetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, h.view.Facade().Target())
}
