package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"lernabenteuer/internal/llm"
	"lernabenteuer/internal/logger"
	"lernabenteuer/internal/models"
	"lernabenteuer/internal/navigation"
	"lernabenteuer/internal/realtime"
	"lernabenteuer/internal/storage"
)

// Handler verwaltet alle API-Endpunkte
type Handler struct {
	nav     *navigation.Controller
	store   storage.Storage
	backend llm.Backend
	hub     *realtime.Hub
	log     *logger.Logger
}

// NewHandler erstellt einen neuen API-Handler
func NewHandler(nav *navigation.Controller, store storage.Storage, backend llm.Backend, hub *realtime.Hub, log *logger.Logger) *Handler {
	return &Handler{
		nav:     nav,
		store:   store,
		backend: backend,
		hub:     hub,
		log:     log.With("component", "API"),
	}
}

// Response-Helper
func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// transitionError übersetzt Navigationsfehler in HTTP-Status
func transitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, navigation.ErrInvalidTransition), errors.Is(err, navigation.ErrRetryNotAllowed):
		errorResponse(w, err.Error(), http.StatusConflict)
	default:
		errorResponse(w, err.Error(), http.StatusBadRequest)
	}
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// === System ===

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":            "ok",
		"backend_available": false,
		"timestamp":         time.Now(),
	}
	if h.backend != nil {
		resp["backend"] = h.backend.Name()
		resp["backend_available"] = h.backend.Available()

		if p, ok := h.backend.(llm.Pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			resp["backend_reachable"] = p.Ping(ctx) == nil
		}
	}
	jsonResponse(w, resp, http.StatusOK)
}

// GetModels listet lokale Modelle, falls das Backend das unterstützt
func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	lister, ok := h.backend.(interface {
		GetModels(ctx context.Context) ([]llm.ModelInfo, error)
	})
	if !ok {
		errorResponse(w, "Backend listet keine Modelle", http.StatusNotImplemented)
		return
	}
	list, err := lister.GetModels(r.Context())
	if err != nil {
		errorResponse(w, "Konnte Modelle nicht abrufen", http.StatusServiceUnavailable)
		return
	}
	jsonResponse(w, map[string]interface{}{"models": list}, http.StatusOK)
}

// === Katalog ===

func (h *Handler) GetSubjects(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, models.Subjects, http.StatusOK)
}

func (h *Handler) GetDifficulties(w http.ResponseWriter, r *http.Request) {
	type difficulty struct {
		ID    models.Difficulty `json:"id"`
		Label string            `json:"label"`
	}
	out := make([]difficulty, 0, len(models.Difficulties))
	for _, d := range models.Difficulties {
		out = append(out, difficulty{ID: d, Label: d.Label()})
	}
	jsonResponse(w, out, http.StatusOK)
}

// === Navigation ===

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.nav.Snapshot(), http.StatusOK)
}

func (h *Handler) SelectSubject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
	}
	if err := decode(r, &req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}
	subject, err := models.ParseSubjectID(req.Subject)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.nav.SelectSubject(subject); err != nil {
		transitionError(w, err)
		return
	}
	jsonResponse(w, h.nav.Snapshot(), http.StatusOK)
}

func (h *Handler) SelectDifficulty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Difficulty string `json:"difficulty"`
	}
	if err := decode(r, &req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}
	difficulty, err := models.ParseDifficulty(req.Difficulty)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.nav.SelectDifficulty(difficulty); err != nil {
		transitionError(w, err)
		return
	}
	jsonResponse(w, h.nav.Snapshot(), http.StatusOK)
}

func (h *Handler) SelectActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Activity string `json:"activity"`
	}
	if err := decode(r, &req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}
	activity, err := models.ParseActivityType(req.Activity)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	done, err := h.nav.SelectActivity(activity)
	if err != nil {
		transitionError(w, err)
		return
	}
	h.respondGeneration(w, r, done)
}

func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	done, err := h.nav.Retry()
	if err != nil {
		transitionError(w, err)
		return
	}
	h.respondGeneration(w, r, done)
}

// respondGeneration antwortet sofort mit 202 oder wartet mit ?wait=true auf
// das Ergebnis.
func (h *Handler) respondGeneration(w http.ResponseWriter, r *http.Request, done <-chan struct{}) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); !wait {
		jsonResponse(w, h.nav.Snapshot(), http.StatusAccepted)
		return
	}
	select {
	case <-done:
		jsonResponse(w, h.nav.Snapshot(), http.StatusOK)
	case <-r.Context().Done():
		// Client weg; Generierung läuft weiter
	}
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	if err := h.nav.Back(); err != nil {
		transitionError(w, err)
		return
	}
	jsonResponse(w, h.nav.Snapshot(), http.StatusOK)
}

// === Quiz ===

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ordinal *int `json:"ordinal"`
		Option  *int `json:"option"`
	}
	if err := decode(r, &req); err != nil || req.Ordinal == nil || req.Option == nil {
		errorResponse(w, "ordinal und option erforderlich", http.StatusBadRequest)
		return
	}

	answer, recorded, err := h.nav.SelectOption(*req.Ordinal, *req.Option)
	if err != nil {
		transitionError(w, err)
		return
	}

	resp := map[string]interface{}{
		"recorded": recorded,
		"quiz":     h.nav.Snapshot().Quiz,
	}
	if recorded {
		resp["answer"] = answer
	}
	jsonResponse(w, resp, http.StatusOK)
}

// === Fortschritt ===

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress := h.nav.Progress()

	perSubject := make(map[models.SubjectID]int, len(models.Subjects))
	for _, s := range models.Subjects {
		perSubject[s.ID] = progress.CompletedCount(s.ID)
	}

	entries := progress.Entries()
	if entries == nil {
		entries = []models.ProgressEntry{}
	}
	jsonResponse(w, map[string]interface{}{
		"completed":   entries,
		"per_subject": perSubject,
	}, http.StatusOK)
}

func (h *Handler) GetGenerations(w http.ResponseWriter, r *http.Request) {
	limit := getQueryInt(r, "limit", 20)
	entries, err := h.store.RecentGenerations(limit)
	if err != nil {
		h.log.Error("Generierungsprotokoll nicht lesbar", "error", err)
		errorResponse(w, "Fehler beim Laden", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.GenerationLogEntry{}
	}
	jsonResponse(w, entries, http.StatusOK)
}

func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	img, err := h.store.GetImage(id)
	if errors.Is(err, storage.ErrNotFound) {
		errorResponse(w, "Bild nicht gefunden", http.StatusNotFound)
		return
	}
	if err != nil {
		errorResponse(w, "Fehler beim Laden", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data)
}

// === Realtime ===

func (h *Handler) Socket(w http.ResponseWriter, r *http.Request) {
	initial := &realtime.Message{Event: realtime.EventState, Data: h.nav.Snapshot()}
	h.hub.ServeWS(w, r, initial)
}

func getQueryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}
