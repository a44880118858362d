package web

import (
	"fmt"
	"io"
	"net/http"

	"github.com/trunghieu0211/flashdeck-journey/pkg/db"
	"github.com/trunghieu0211/flashdeck-journey/pkg/importexport"
	"github.com/trunghieu0211/flashdeck-journey/pkg/logger"
)

const maxImportSize = 5 << 20 // 5 MiB

type importResponse struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// handleImportCards accepts a CSV body and merges it into the deck.
func (s *Server) handleImportCards(w http.ResponseWriter, r *http.Request, userID string) {
	deck, err := db.GetDeck(userID, r.PathValue("deckID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "import file too large")
		return
	}
	if len(body) == 0 {
		respondError(w, http.StatusBadRequest, "empty import file")
		return
	}

	inputs, skipped, err := importexport.ParseCardsCSV(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("malformed CSV: %v", err))
		return
	}
	if len(inputs) == 0 {
		respondError(w, http.StatusBadRequest, "no valid card rows found")
		return
	}

	inserted, updated, err := importexport.UpsertCards(deck.ID, inputs)
	if err != nil {
		logger.Error("failed to import cards", "deck_id", deck.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "import failed")
		return
	}
	logger.Info("imported cards", "deck_id", deck.ID, "inserted", inserted, "updated", updated, "skipped", skipped)
	respondJSON(w, http.StatusOK, importResponse{Inserted: inserted, Updated: updated, Skipped: skipped})
}

// handleExportCards streams the deck as a CSV download.
func (s *Server) handleExportCards(w http.ResponseWriter, r *http.Request, userID string) {
	deck, err := db.GetDeck(userID, r.PathValue("deckID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	cards, err := db.GetCardsForDeck(userID, deck.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	data, err := importexport.BuildExportCSV(cards)
	if err != nil {
		logger.Error("failed to build export", "deck_id", deck.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := importexport.ExportFilename(deck.Title, s.now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Error("failed to write export", "deck_id", deck.ID, "error", err)
	}
}
