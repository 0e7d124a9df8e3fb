package handlers

import (
	"assistant-api/internal/services"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type SettingsHandler struct {
	usageService services.UsageService
}

func NewSettingsHandler(usageService services.UsageService) *SettingsHandler {
	return &SettingsHandler{usageService: usageService}
}

type setLimitRequest struct {
	Limit *int `json:"limit"`
}

func (h *SettingsHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	limits, err := h.usageService.Limits(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, limits)
}

func (h *SettingsHandler) SetLimit(w http.ResponseWriter, r *http.Request) {
	var req setLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Limit == nil {
		badRequest(w, "Request body must contain a numeric limit")
		return
	}

	if err := h.usageService.SetLimit(r.Context(), mux.Vars(r)["model"], *req.Limit); err != nil {
		respondWithError(w, err)
		return
	}

	limits, err := h.usageService.Limits(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, limits)
}
