package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter erstellt den HTTP-Router mit allen Endpoints
func NewRouter(h *Handler, staticPath string) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	// System
	api.HandleFunc("/health", h.HealthCheck).Methods("GET")
	api.HandleFunc("/models", h.GetModels).Methods("GET")

	// Katalog
	api.HandleFunc("/subjects", h.GetSubjects).Methods("GET")
	api.HandleFunc("/difficulties", h.GetDifficulties).Methods("GET")

	// Navigation
	api.HandleFunc("/state", h.GetState).Methods("GET")
	api.HandleFunc("/navigation/subject", h.SelectSubject).Methods("POST")
	api.HandleFunc("/navigation/difficulty", h.SelectDifficulty).Methods("POST")
	api.HandleFunc("/navigation/activity", h.SelectActivity).Methods("POST")
	api.HandleFunc("/navigation/back", h.Back).Methods("POST")
	api.HandleFunc("/navigation/retry", h.Retry).Methods("POST")

	// Quiz
	api.HandleFunc("/quiz/answer", h.SubmitAnswer).Methods("POST")

	// Fortschritt und Diagnose
	api.HandleFunc("/progress", h.GetProgress).Methods("GET")
	api.HandleFunc("/generations", h.GetGenerations).Methods("GET")
	api.HandleFunc("/images/{id}", h.GetImage).Methods("GET")

	// Audio-Hinweise und Zustand live
	api.HandleFunc("/ws", h.Socket).Methods("GET")

	// Statische Dateien (Frontend)
	if staticPath != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticPath)))
	}

	// CORS für lokale Entwicklung
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	return c.Handler(r)
}
