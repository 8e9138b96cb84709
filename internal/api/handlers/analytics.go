package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kamalsharma29/crm-dashboard/internal/analytics"
	"github.com/kamalsharma29/crm-dashboard/internal/api/middleware"
)

type AnalyticsHandler struct {
	analytics *analytics.Service
	logger    *slog.Logger
}

func NewAnalyticsHandler(svc *analytics.Service, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: svc, logger: logger}
}

type AnalyticsResponse struct {
	Analytics *analytics.Report `json:"analytics"`
}

func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.Compute(r.Context(), middleware.GetPrincipal(r.Context()))
	if err != nil {
		if writeAuthzError(w, err) {
			return
		}
		internalError(w, r, h.logger, "computing analytics failed", err)
		return
	}

	writeJSON(w, http.StatusOK, AnalyticsResponse{Analytics: report})
}
