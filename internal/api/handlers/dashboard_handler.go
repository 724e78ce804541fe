package handlers

import (
	"net/http"

	"go.uber.org/zap"

	middleware "github.com/markdave123-py/researchhub/internal/api/middlewares"
	"github.com/markdave123-py/researchhub/internal/services"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
	log       *zap.Logger
}

func NewDashboardHandler(dashboard *services.DashboardService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, log: log}
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	out, err := h.dashboard.Summary(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
