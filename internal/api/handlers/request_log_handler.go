package handlers

import (
	"assistant-api/internal/services"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

type RequestLogHandler struct {
	logService services.RequestLogService
}

func NewRequestLogHandler(logService services.RequestLogService) *RequestLogHandler {
	return &RequestLogHandler{
		logService: logService,
	}
}

func (h *RequestLogHandler) GetSessionLogs(w http.ResponseWriter, r *http.Request) {
	from, to := getTimeRange(r)

	logs, err := h.logService.GetSessionLogs(r.Context(), mux.Vars(r)["sessionId"], from, to)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, logs)
}

func (h *RequestLogHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.logService.GetRecent(r.Context(), limit)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, logs)
}

func getTimeRange(r *http.Request) (time.Time, time.Time) {
	now := time.Now()
	from := now.AddDate(0, -1, 0) // Default to last 30 days
	to := now

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		if parsedFrom, err := time.Parse(time.RFC3339, fromStr); err == nil {
			from = parsedFrom
		}
	}

	if toStr := r.URL.Query().Get("to"); toStr != "" {
		if parsedTo, err := time.Parse(time.RFC3339, toStr); err == nil {
			to = parsedTo
		}
	}

	return from, to
}
