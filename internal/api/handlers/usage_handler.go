package handlers

import (
	"assistant-api/internal/services"
	"net/http"
	"strconv"
)

type UsageHandler struct {
	usageService  services.UsageService
	reportService services.UsageReportService
}

func NewUsageHandler(usageService services.UsageService, reportService services.UsageReportService) *UsageHandler {
	return &UsageHandler{
		usageService:  usageService,
		reportService: reportService,
	}
}

func (h *UsageHandler) GetDailyUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.usageService.DailyUsage(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, usage)
}

func (h *UsageHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	report, err := h.reportService.Report(r.Context(), services.ReportQuery{
		Range:   q.Get("range"),
		Model:   q.Get("model"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (h *UsageHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.usageService.ClearHistory(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
