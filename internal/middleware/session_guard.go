package middleware

import (
	"assistant-api/internal/logger"
	apperrors "assistant-api/internal/pkg/errors"
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// SessionGuard allows one in-flight generation per session and lets a
// separate request cancel it.
type SessionGuard struct {
	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

func NewSessionGuard() *SessionGuard {
	return &SessionGuard{
		inflight: make(map[string]context.CancelFunc),
	}
}

// Acquire registers sessionID as busy and returns a context that Cancel can abort.
// The release func must be called once the request has finished.
func (g *SessionGuard) Acquire(ctx context.Context, sessionID string) (context.Context, func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inflight[sessionID]; busy {
		return nil, nil, apperrors.New(apperrors.ErrSessionBusy, apperrors.CodeSessionBusy,
			"a response is already being generated for this session")
	}

	ctx, cancel := context.WithCancel(ctx)
	g.inflight[sessionID] = cancel

	release := func() {
		g.mu.Lock()
		delete(g.inflight, sessionID)
		g.mu.Unlock()
		cancel()
	}
	return ctx, release, nil
}

// Cancel aborts the in-flight request of sessionID and reports whether there was one.
func (g *SessionGuard) Cancel(sessionID string) bool {
	g.mu.Lock()
	cancel, ok := g.inflight[sessionID]
	g.mu.Unlock()

	if ok {
		cancel()
		logger.LogEvent(logrus.InfoLevel, "Generation cancel requested", logrus.Fields{"session_id": sessionID})
	}
	return ok
}

func (g *SessionGuard) Busy(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[sessionID]
	return ok
}

// Guard wraps routes carrying a {sessionId} variable.
func (g *SessionGuard) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := mux.Vars(r)["sessionId"]
		if sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx, release, err := g.Acquire(r.Context(), sessionID)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{
				"message": err.Error(),
				"code":    apperrors.CodeSessionBusy,
			})
			return
		}
		defer release()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
