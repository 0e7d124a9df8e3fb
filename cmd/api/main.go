package main

import (
	"assistant-api/internal/api"
	"assistant-api/internal/api/handlers"
	"assistant-api/internal/config"
	"assistant-api/internal/db"
	"assistant-api/internal/gemini"
	"assistant-api/internal/logger"
	"assistant-api/internal/middleware"
	"assistant-api/internal/models"
	"assistant-api/internal/repository"
	"assistant-api/internal/services"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.LogEvent(logrus.WarnLevel, "No .env file loaded", logrus.Fields{"error": err.Error()})
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatalf("Invalid configuration: %v", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		logger.Logger.Fatalf("Failed to open log file: %v", err)
	}

	// Initialize database connection
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Logger.Fatalf("Failed to connect to database: %v", err)
	}

	stateStore, err := repository.NewRedisStateStore(cfg.Cache)
	if err != nil {
		logger.Logger.Fatalf("Failed to connect to state store: %v", err)
	}

	// Initialize repositories
	usageRecordRepo := repository.NewUsageRecordRepository(database)
	requestLogRepo := repository.NewRequestLogRepository(database)

	// Initialize services
	feed := services.NewNotificationFeed(cfg.Dispatcher.Notifications.FeedSize)
	sinks := services.MultiSink{services.LogSink{}}
	if cfg.Dispatcher.Notifications.Enabled {
		sinks = append(sinks, feed)
	}

	usageService := services.NewUsageService(
		stateStore,
		usageRecordRepo,
		services.NewThresholdNotifier(sinks),
		services.WithDefaultLimits(cfg.Dispatcher.Limits),
	)
	reportService := services.NewUsageReportService(usageRecordRepo, cfg.Dispatcher.Costs)
	requestLogService := services.NewRequestLogService(requestLogRepo)

	geminiClient := gemini.NewClient(cfg.Dispatcher.Gemini.BaseURL, cfg.Dispatcher.Gemini.Timeout())
	dispatcher := services.NewDispatcher(
		geminiClient,
		usageService,
		cfg.Dispatcher.Keys.Primary,
		cfg.Dispatcher.Keys.Fallbacks,
	)
	chatService := services.NewChatService(dispatcher, requestLogService, cfg.Dispatcher.Generation)

	// Initialize handlers
	guard := middleware.NewSessionGuard()
	router := api.SetupRoutes(database, stateStore, api.Handlers{
		Chat:          handlers.NewChatHandler(chatService, guard),
		Usage:         handlers.NewUsageHandler(usageService, reportService),
		Settings:      handlers.NewSettingsHandler(usageService),
		Notifications: handlers.NewNotificationHandler(feed),
		Models:        handlers.NewModelHandler(geminiClient, firstKey(cfg.Dispatcher.Keys)),
		RequestLogs:   handlers.NewRequestLogHandler(requestLogService),
		Guard:         guard,
	})

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			middleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			middleware.RequestIDHeader,
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	// WriteTimeout must outlast the upstream generation timeout.
	srv := &http.Server{
		Handler:      corsMiddleware.Handler(router),
		Addr:         ":" + cfg.Port,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Dispatcher.Gemini.Timeout() + 30*time.Second,
	}

	go func() {
		logger.LogEvent(logrus.InfoLevel, "Server starting", logrus.Fields{
			"port":          cfg.Port,
			"fallback_keys": len(cfg.Dispatcher.Keys.Fallbacks),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.LogEvent(logrus.ErrorLevel, "Graceful shutdown failed", logrus.Fields{"error": err.Error()})
	}
	logger.LogEvent(logrus.InfoLevel, "Server stopped", nil)
}

// firstKey is the key used for catalogue and validation calls.
func firstKey(keys config.KeysConfig) string {
	candidates := models.CandidateKeys(keys.Primary, keys.Fallbacks)
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}
