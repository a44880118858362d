package web

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/trunghieu0211/flashdeck-journey/pkg/db"
	"github.com/trunghieu0211/flashdeck-journey/pkg/logger"
)

type categoryPayload struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, userID string) {
	var categories []db.Category
	if err := db.DB.Order("name ASC").Find(&categories).Error; err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, userID string) {
	var payload categoryPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	category := db.Category{Name: payload.Name}
	if err := db.DB.Create(&category).Error; err != nil {
		logger.Error("failed to create category", "name", payload.Name, "error", err)
		respondError(w, http.StatusConflict, "category already exists")
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, userID string) {
	var category db.Category
	if err := db.DB.Where("id = ?", r.PathValue("categoryID")).First(&category).Error; err != nil {
		respondStoreError(w, err)
		return
	}
	if err := db.DB.Delete(&category).Error; err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type deckPayload struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Category    string `json:"category" validate:"max=100"`
}

// deckView is a deck enriched with study statistics for list pages.
type deckView struct {
	db.Deck
	CardCount     int64      `json:"cardCount"`
	ProgressPct   int        `json:"progressPct"`
	DueToday      int        `json:"dueToday"`
	LastStudiedAt *time.Time `json:"lastStudiedAt"`
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request, userID string) {
	var decks []db.Deck
	query := db.DB.Where("user_id = ?", userID)
	if category := r.URL.Query().Get("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Order("created_at ASC, id ASC").Find(&decks).Error; err != nil {
		respondStoreError(w, err)
		return
	}

	now := s.now()
	views := make([]deckView, 0, len(decks))
	for _, deck := range decks {
		view, err := s.buildDeckView(userID, deck, now)
		if err != nil {
			respondStudyError(w, err)
			return
		}
		views = append(views, view)
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) buildDeckView(userID string, deck db.Deck, now time.Time) (deckView, error) {
	view := deckView{Deck: deck}

	if err := db.DB.Model(&db.Card{}).Where("deck_id = ?", deck.ID).Count(&view.CardCount).Error; err != nil {
		return view, err
	}
	pct, err := s.aggregator.DeckProgress(userID, deck.ID)
	if err != nil {
		return view, err
	}
	view.ProgressPct = pct

	due, err := s.aggregator.CardsDueToday(userID, []string{deck.ID}, now)
	if err != nil {
		return view, err
	}
	view.DueToday = due

	last, err := s.aggregator.LastStudiedAt(userID, deck.ID)
	if err != nil {
		return view, err
	}
	view.LastStudiedAt = last
	return view, nil
}

func (s *Server) handleCreateDeck(w http.ResponseWriter, r *http.Request, userID string) {
	var payload deckPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	deck := db.Deck{
		UserID:      userID,
		Title:       payload.Title,
		Description: payload.Description,
		Category:    payload.Category,
	}
	if err := db.DB.Create(&deck).Error; err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, deck)
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request, userID string) {
	deck, err := db.GetDeck(userID, r.PathValue("deckID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	view, err := s.buildDeckView(userID, *deck, s.now())
	if err != nil {
		respondStudyError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateDeck(w http.ResponseWriter, r *http.Request, userID string) {
	deck, err := db.GetDeck(userID, r.PathValue("deckID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	var payload deckPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	deck.Title = payload.Title
	deck.Description = payload.Description
	deck.Category = payload.Category
	if err := db.DB.Save(deck).Error; err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, deck)
}

func (s *Server) handleDeleteDeck(w http.ResponseWriter, r *http.Request, userID string) {
	deck, err := db.GetDeck(userID, r.PathValue("deckID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if err := s.manager.Abandon(userID, deck.ID); err != nil {
		logger.Error("failed to abandon session on deck delete", "deck_id", deck.ID, "error", err)
	}
	if err := db.DB.Delete(deck).Error; err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type cardPayload struct {
	Front   string `json:"front" validate:"required,max=2000"`
	Back    string `json:"back" validate:"required,max=2000"`
	Example string `json:"example" validate:"max=2000"`
	Notes   string `json:"notes" validate:"max=2000"`
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request, userID string) {
	cards, err := db.GetCardsForDeck(userID, r.PathValue("deckID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request, userID string) {
	deck, err := db.GetDeck(userID, r.PathValue("deckID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	var payload cardPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}

	var maxPosition int
	row := db.DB.Model(&db.Card{}).Where("deck_id = ?", deck.ID).Select("COALESCE(MAX(position), -1)").Row()
	if err := row.Scan(&maxPosition); err != nil {
		respondStoreError(w, err)
		return
	}

	card := db.Card{
		DeckID:   deck.ID,
		Front:    payload.Front,
		Back:     payload.Back,
		Example:  payload.Example,
		Notes:    payload.Notes,
		Position: maxPosition + 1,
	}
	if err := db.DB.Create(&card).Error; err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, card)
}

// ownedCard loads a card and checks the deck it belongs to is the user's.
func ownedCard(userID, cardID string) (*db.Card, error) {
	var card db.Card
	if err := db.DB.Where("id = ?", cardID).First(&card).Error; err != nil {
		return nil, err
	}
	if _, err := db.GetDeck(userID, card.DeckID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request, userID string) {
	card, err := ownedCard(userID, r.PathValue("cardID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request, userID string) {
	card, err := ownedCard(userID, r.PathValue("cardID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	var payload cardPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	card.Front = payload.Front
	card.Back = payload.Back
	card.Example = payload.Example
	card.Notes = payload.Notes
	if err := db.DB.Save(card).Error; err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request, userID string) {
	card, err := ownedCard(userID, r.PathValue("cardID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if err := db.DB.Delete(card).Error; err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
