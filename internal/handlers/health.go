package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/surface"
)

// healthProbeTimeout bounds the host round trip made by a health check.
const healthProbeTimeout = 5 * time.Second

// HealthHandler reports whether the inspected tab still answers.
type HealthHandler struct {
	view   *surface.View
	logger *common.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(view *surface.View, logger *common.Logger) *HealthHandler {
	return &HealthHandler{view: view, logger: logger}
}

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status string `json:"status"`
	Target string `json:"target"`
	Error  string `json:"error,omitempty"`
}

// ServeHTTP handles GET /api/health. It lists cookies as a probe and
// answers 503 when the host cannot be reached.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	f := h.view.Facade()
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	status := HealthStatus{Status: "ok", Target: f.Target().URL}
	if _, err := f.ListCookies(ctx); err != nil {
		if h.logger != nil {
			h.logger.Warn().Err(err).Str("target", status.Target).Msg("health probe failed")
		}
		status.Status = "unreachable"
		status.Error = err.Error()
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}
