package web

import (
	"net/http"
	"strconv"

	"github.com/trunghieu0211/flashdeck-journey/pkg/db"
	"github.com/trunghieu0211/flashdeck-journey/pkg/study"
)

// studyResponse pairs the session position with the card awaiting a
// grade. Card is null once the session is complete.
type studyResponse struct {
	Session study.Snapshot `json:"session"`
	Card    *db.Card       `json:"card"`
}

func (s *Server) handleStartStudy(w http.ResponseWriter, r *http.Request, userID string) {
	snap, card, err := s.manager.Start(userID, r.PathValue("deckID"))
	if err != nil {
		respondStudyError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, studyResponse{Session: snap, Card: card})
}

func (s *Server) handleResumeStudy(w http.ResponseWriter, r *http.Request, userID string) {
	snap, card, err := s.manager.Resume(userID, r.PathValue("deckID"))
	if err != nil {
		respondStudyError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, studyResponse{Session: snap, Card: card})
}

func (s *Server) handleAbandonStudy(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.manager.Abandon(userID, r.PathValue("deckID")); err != nil {
		respondStudyError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type gradePayload struct {
	Grade study.Grade `json:"grade" validate:"required"`
}

func (s *Server) handleSubmitGrade(w http.ResponseWriter, r *http.Request, userID string) {
	var payload gradePayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	snap, card, err := s.manager.SubmitGrade(userID, r.PathValue("deckID"), payload.Grade)
	if err != nil {
		respondStudyError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, studyResponse{Session: snap, Card: card})
}

func (s *Server) handleRegrade(w http.ResponseWriter, r *http.Request, userID string) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid position")
		return
	}
	var payload gradePayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	snap, err := s.manager.Regrade(userID, r.PathValue("deckID"), index, payload.Grade)
	if err != nil {
		respondStudyError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, studyResponse{Session: snap})
}

func (s *Server) handleStudySummary(w http.ResponseWriter, r *http.Request, userID string) {
	summary, err := s.manager.Summary(userID, r.PathValue("deckID"))
	if err != nil {
		respondStudyError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

type statsResponse struct {
	DueToday     int   `json:"dueToday"`
	StudiedToday int   `json:"studiedToday"`
	Streak       int   `json:"streak"`
	TotalDecks   int64 `json:"totalDecks"`
	TotalCards   int64 `json:"totalCards"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, userID string) {
	now := s.now()
	deckIDs := r.URL.Query()["deck"]

	due, err := s.aggregator.CardsDueToday(userID, deckIDs, now)
	if err != nil {
		respondStudyError(w, err)
		return
	}
	studied, err := s.aggregator.StudiedToday(userID, now)
	if err != nil {
		respondStudyError(w, err)
		return
	}
	streak, err := s.aggregator.Streak(userID, now)
	if err != nil {
		respondStudyError(w, err)
		return
	}

	stats := statsResponse{DueToday: due, StudiedToday: studied, Streak: streak}
	if err := db.DB.Model(&db.Deck{}).Where("user_id = ?", userID).Count(&stats.TotalDecks).Error; err != nil {
		respondStoreError(w, err)
		return
	}
	if err := db.DB.Model(&db.Card{}).
		Joins("JOIN decks ON decks.id = cards.deck_id").
		Where("decks.user_id = ?", userID).
		Count(&stats.TotalCards).Error; err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type settingsPayload struct {
	SessionLimit        int `json:"sessionLimit" validate:"gte=0,lte=1000"`
	TimezoneOffsetHours int `json:"timezoneOffsetHours" validate:"gte=-12,lte=14"`
	MasteryOverride     int `json:"masteryOverride" validate:"gte=0,lte=100"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request, userID string) {
	settings, err := db.GetUserSettings(userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request, userID string) {
	var payload settingsPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	settings := db.UserSettings{
		UserID:              userID,
		SessionLimit:        payload.SessionLimit,
		TimezoneOffsetHours: payload.TimezoneOffsetHours,
		MasteryOverride:     payload.MasteryOverride,
	}
	if err := db.SaveUserSettings(&settings); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}
