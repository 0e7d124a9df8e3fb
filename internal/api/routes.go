package api

import (
	"assistant-api/internal/api/controllers"
	"assistant-api/internal/api/handlers"
	"assistant-api/internal/middleware"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Chat          *handlers.ChatHandler
	Usage         *handlers.UsageHandler
	Settings      *handlers.SettingsHandler
	Notifications *handlers.NotificationHandler
	Models        *handlers.ModelHandler
	RequestLogs   *handlers.RequestLogHandler
	Guard         *middleware.SessionGuard
}

func SetupRoutes(db *gorm.DB, stateStore controllers.Pinger, h Handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	router.HandleFunc("/health", controllers.HealthCheckHandler(db, stateStore)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	apiRouter := router.PathPrefix("/api").Subrouter()

	apiRouter.Handle("/sessions/{sessionId}/chat", h.Guard.Guard(http.HandlerFunc(h.Chat.Send))).Methods("POST")
	apiRouter.HandleFunc("/sessions/{sessionId}/cancel", h.Chat.Cancel).Methods("POST")
	apiRouter.HandleFunc("/sessions/{sessionId}/requests", h.RequestLogs.GetSessionLogs).Methods("GET")
	apiRouter.HandleFunc("/requests", h.RequestLogs.GetRecent).Methods("GET")

	apiRouter.HandleFunc("/usage/daily", h.Usage.GetDailyUsage).Methods("GET")
	apiRouter.HandleFunc("/usage/report", h.Usage.GetReport).Methods("GET")
	apiRouter.HandleFunc("/usage", h.Usage.ClearHistory).Methods("DELETE")

	apiRouter.HandleFunc("/settings/limits", h.Settings.GetLimits).Methods("GET")
	apiRouter.HandleFunc("/settings/limits/{model}", h.Settings.SetLimit).Methods("PUT")

	apiRouter.HandleFunc("/notifications", h.Notifications.List).Methods("GET")

	apiRouter.HandleFunc("/models", h.Models.ListModels).Methods("POST")
	apiRouter.HandleFunc("/validate", h.Models.Validate).Methods("POST")

	return router
}
