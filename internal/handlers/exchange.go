package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/exchange"
	"github.com/bobmcallan/storage-inspector/internal/surface"
)

// ExchangeHandler serves /api/export and /api/import.
type ExchangeHandler struct {
	view   *surface.View
	logger *common.Logger
	now    func() time.Time
}

// NewExchangeHandler creates an export/import handler.
func NewExchangeHandler(view *surface.View, logger *common.Logger) *ExchangeHandler {
	return &ExchangeHandler{view: view, logger: logger, now: time.Now}
}

// Export handles GET /api/export, downloading the current snapshot.
func (h *ExchangeHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if _, err := h.view.Refresh(r.Context()); surface.Degraded(err) != nil {
		writeFailure(w, h.logger, "export_storage", err)
		return
	} else if err != nil {
		w.Header().Set(PartialHeader, "true")
	}
	data, err := h.view.Export().Marshal()
	if err != nil {
		writeFailure(w, h.logger, "export_storage", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exchange.Filename(h.now())))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ImportResponse is the POST /api/import body.
type ImportResponse struct {
	Applied int      `json:"applied"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Import handles POST /api/import with an export document as the body.
func (h *ExchangeHandler) Import(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}

	res, err := h.view.Import(r.Context(), data)
	if err != nil {
		writeFailure(w, h.logger, "import_storage", err)
		return
	}
	WriteJSON(w, http.StatusOK, ImportResponse{Applied: res.Applied, Skipped: res.Skipped, Errors: res.Messages()})
}
