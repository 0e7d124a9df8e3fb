package handlers

import (
	"assistant-api/internal/gemini"
	apperrors "assistant-api/internal/pkg/errors"
	"context"
	"net/http"
	"strings"
)

// ModelCatalog is the part of the Gemini client the model endpoints need.
type ModelCatalog interface {
	ListModels(ctx context.Context, apiKey string) ([]gemini.Model, error)
	ValidateKey(ctx context.Context, apiKey string) error
}

type ModelHandler struct {
	catalog ModelCatalog
	apiKey  string
}

func NewModelHandler(catalog ModelCatalog, apiKey string) *ModelHandler {
	return &ModelHandler{
		catalog: catalog,
		apiKey:  apiKey,
	}
}

type modelSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *ModelHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" {
		badRequest(w, "No API key is configured on the server")
		return
	}

	list, err := h.catalog.ListModels(r.Context(), h.apiKey)
	if err != nil {
		respondWithJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "Failed to list models: " + err.Error(), Code: apperrors.CodeUpstream})
		return
	}

	out := make([]modelSummary, 0, len(list))
	for _, m := range list {
		out = append(out, modelSummary{ID: strings.TrimPrefix(m.Name, "models/"), Name: m.DisplayName})
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"models": out})
}

func (h *ModelHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" {
		respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{"valid": false, "message": "No API key is configured on the server"})
		return
	}
	if err := h.catalog.ValidateKey(r.Context(), h.apiKey); err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{"valid": false, "message": "API key validation failed: " + err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"valid": true, "message": "The server API key is valid"})
}
