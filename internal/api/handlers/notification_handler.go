package handlers

import (
	"assistant-api/internal/services"
	"net/http"
	"strconv"
)

type NotificationHandler struct {
	feed *services.NotificationFeed
}

func NewNotificationHandler(feed *services.NotificationFeed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// List returns notifications newer than the optional ?after= id.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	var after int64
	if v := r.URL.Query().Get("after"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(w, "after must be an integer")
			return
		}
		after = parsed
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"notifications": h.feed.Since(after)})
}
