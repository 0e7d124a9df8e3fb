package handlers

import (
	"assistant-api/internal/logger"
	apperrors "assistant-api/internal/pkg/errors"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// StatusClientClosedRequest is returned when the client cancelled a generation.
const StatusClientClosedRequest = 499

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func statusForCode(code string) int {
	switch code {
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeSessionBusy:
		return http.StatusConflict
	case apperrors.CodeQuotaExhausted:
		return http.StatusTooManyRequests
	case apperrors.CodeCancelled:
		return StatusClientClosedRequest
	case apperrors.CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError maps an application error to its HTTP status and JSON body.
func respondWithError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := statusForCode(code)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.LogEvent(logrus.ErrorLevel, "Request failed", logrus.Fields{"error": err.Error()})
		message = "Internal Server Error"
	}
	respondWithJSON(w, status, ErrorResponse{Message: message, Code: code})
}

func badRequest(w http.ResponseWriter, message string) {
	respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Message: message, Code: apperrors.CodeInvalidInput})
}
