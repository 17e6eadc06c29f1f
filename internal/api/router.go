package api

import (
	"net/http"

	"tour-planner-service/internal/api/handlers"
	"tour-planner-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an
// http.Handler. This is the API composition root (handlers stay unaware of
// concrete adapters).
func NewRouter(planner *services.Planner) http.Handler {
	mux := http.NewServeMux()

	sessionHandler := &handlers.SessionHandler{Planner: planner}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("POST /sessions", sessionHandler.Start)
	mux.HandleFunc("PATCH /sessions/{id}", sessionHandler.Update)
	mux.HandleFunc("GET /sessions/{id}/itinerary", sessionHandler.Get)

	return loggingMiddleware(mux)
}
