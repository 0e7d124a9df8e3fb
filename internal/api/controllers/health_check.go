package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"gorm.io/gorm"
)

// Pinger is any dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthCheckResponse struct {
	Status           string            `json:"status"`
	Database         string            `json:"database"`
	ExternalServices map[string]string `json:"external_services"`
}

// HealthCheckHandler checks API health, the database connection and the state store
func HealthCheckHandler(db *gorm.DB, stateStore Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		response := HealthCheckResponse{
			Status:           "API is running",
			ExternalServices: make(map[string]string),
		}
		code := http.StatusOK

		if err := pingDatabase(ctx, db); err != nil {
			response.Database = "Database connection failed"
			code = http.StatusInternalServerError
		} else {
			response.Database = "Database connection is healthy"
		}

		response.ExternalServices["State store"] = checkExternalService(ctx, stateStore)
		if response.ExternalServices["State store"] != "Available" {
			code = http.StatusInternalServerError
		}

		respondWithJSON(w, code, response)
	}
}

func pingDatabase(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// checkExternalService checks the status of a dependency
func checkExternalService(ctx context.Context, p Pinger) string {
	if p == nil {
		return "Not configured"
	}
	if err := p.Ping(ctx); err != nil {
		return "Unreachable"
	}
	return "Available"
}
