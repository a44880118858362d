package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/trunghieu0211/flashdeck-journey/pkg/logger"
	"github.com/trunghieu0211/flashdeck-journey/pkg/study"
)

// Server holds the dependencies for the HTTP API.
type Server struct {
	manager    *study.SessionManager
	aggregator *study.Aggregator
	router     *http.ServeMux
	validate   *validator.Validate
	now        func() time.Time
}

// NewServer creates and configures a new server. A nil now falls back to
// the wall clock.
func NewServer(manager *study.SessionManager, aggregator *study.Aggregator, now func() time.Time) *Server {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	s := &Server{
		manager:    manager,
		aggregator: aggregator,
		router:     http.NewServeMux(),
		validate:   validator.New(),
		now:        now,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.router.ServeHTTP(rec, r)
	logger.Debug("http request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration_ms", time.Since(start).Milliseconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// routes sets up the routing for the server. Every /api route requires an
// X-User-ID header identifying the caller.
func (s *Server) routes() {
	s.router.HandleFunc("GET /api/categories", s.withUser(s.handleListCategories))
	s.router.HandleFunc("POST /api/categories", s.withUser(s.handleCreateCategory))
	s.router.HandleFunc("DELETE /api/categories/{categoryID}", s.withUser(s.handleDeleteCategory))

	s.router.HandleFunc("GET /api/decks", s.withUser(s.handleListDecks))
	s.router.HandleFunc("POST /api/decks", s.withUser(s.handleCreateDeck))
	s.router.HandleFunc("GET /api/decks/{deckID}", s.withUser(s.handleGetDeck))
	s.router.HandleFunc("PUT /api/decks/{deckID}", s.withUser(s.handleUpdateDeck))
	s.router.HandleFunc("DELETE /api/decks/{deckID}", s.withUser(s.handleDeleteDeck))

	s.router.HandleFunc("GET /api/decks/{deckID}/cards", s.withUser(s.handleListCards))
	s.router.HandleFunc("POST /api/decks/{deckID}/cards", s.withUser(s.handleCreateCard))
	s.router.HandleFunc("GET /api/cards/{cardID}", s.withUser(s.handleGetCard))
	s.router.HandleFunc("PUT /api/cards/{cardID}", s.withUser(s.handleUpdateCard))
	s.router.HandleFunc("DELETE /api/cards/{cardID}", s.withUser(s.handleDeleteCard))

	s.router.HandleFunc("POST /api/decks/{deckID}/study", s.withUser(s.handleStartStudy))
	s.router.HandleFunc("GET /api/decks/{deckID}/study", s.withUser(s.handleResumeStudy))
	s.router.HandleFunc("DELETE /api/decks/{deckID}/study", s.withUser(s.handleAbandonStudy))
	s.router.HandleFunc("POST /api/decks/{deckID}/study/grade", s.withUser(s.handleSubmitGrade))
	s.router.HandleFunc("POST /api/decks/{deckID}/study/grade/{index}", s.withUser(s.handleRegrade))
	s.router.HandleFunc("GET /api/decks/{deckID}/study/summary", s.withUser(s.handleStudySummary))

	s.router.HandleFunc("GET /api/stats", s.withUser(s.handleStats))
	s.router.HandleFunc("GET /api/settings", s.withUser(s.handleGetSettings))
	s.router.HandleFunc("PUT /api/settings", s.withUser(s.handleUpdateSettings))

	s.router.HandleFunc("POST /api/decks/{deckID}/import", s.withUser(s.handleImportCards))
	s.router.HandleFunc("GET /api/decks/{deckID}/export", s.withUser(s.handleExportCards))
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// withUser extracts the caller identity from the X-User-ID header.
func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}
		next(w, r, userID)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON parses the request body into dst and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// respondStudyError maps the study package's sentinel errors onto HTTP
// statuses.
func respondStudyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, study.ErrInvalidGrade), errors.Is(err, study.ErrInvalidIndex):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, study.ErrDeckNotFound):
		respondError(w, http.StatusNotFound, "deck not found")
	case errors.Is(err, study.ErrEmptyDeck):
		respondError(w, http.StatusUnprocessableEntity, "deck has no cards")
	case errors.Is(err, study.ErrSessionCompleted), errors.Is(err, study.ErrNoActiveSession):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, study.ErrStoreUnavailable):
		logger.Error("study store unavailable", "error", err)
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusServiceUnavailable, "storage temporarily unavailable, retry")
	default:
		logger.Error("unexpected study error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	logger.Error("database error", "error", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}
