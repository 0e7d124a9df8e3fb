package handlers

import (
	"assistant-api/internal/middleware"
	"assistant-api/internal/services"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type ChatHandler struct {
	chatService services.ChatService
	guard       *middleware.SessionGuard
}

func NewChatHandler(chatService services.ChatService, guard *middleware.SessionGuard) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		guard:       guard,
	}
}

// Send runs one chat turn. It is mounted behind SessionGuard.Guard.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req services.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	req.SessionID = mux.Vars(r)["sessionId"]
	req.RequestID = middleware.RequestIDFromContext(r.Context())

	reply, err := h.chatService.Send(r.Context(), req)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, reply)
}

func (h *ChatHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	cancelled := h.guard.Cancel(mux.Vars(r)["sessionId"])
	respondWithJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}
