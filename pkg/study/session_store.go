package study

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/trunghieu0211/flashdeck-journey/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func buildSessionState(session *Session, expiresAt time.Time) (*db.StudySessionState, error) {
	if session == nil {
		return nil, errors.New("nil session")
	}
	cardIDs := make([]string, len(session.queue))
	for i, card := range session.queue {
		cardIDs[i] = card.ID
	}
	rawIDs, err := json.Marshal(cardIDs)
	if err != nil {
		return nil, err
	}
	rawOutcomes, err := json.Marshal(session.outcomes)
	if err != nil {
		return nil, err
	}
	return &db.StudySessionState{
		UserID:         session.userID,
		DeckID:         session.deckID,
		CardIDs:        datatypes.JSON(rawIDs),
		CurrentIndex:   session.currentIndex,
		Outcomes:       datatypes.JSON(rawOutcomes),
		StartedAt:      session.startedAt,
		LastActivityAt: session.lastActivityAt,
		ExpiresAt:      expiresAt,
	}, nil
}

func upsertSessionState(state *db.StudySessionState) error {
	var existing db.StudySessionState
	err := db.DB.Where("user_id = ? AND deck_id = ?", state.UserID, state.DeckID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.DB.Create(state).Error
	}
	if err != nil {
		return err
	}
	state.ID = existing.ID
	state.CreatedAt = existing.CreatedAt
	return db.DB.Save(state).Error
}

// loadSessionState rebuilds an in-memory session from its checkpoint,
// re-fetching card content in the checkpointed queue order. Cards deleted
// since the checkpoint are skipped.
func loadSessionState(userID, deckID string) (*Session, error) {
	var state db.StudySessionState
	err := db.DB.Where("user_id = ? AND deck_id = ?", userID, deckID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load session checkpoint: %v", ErrStoreUnavailable, err)
	}

	var cardIDs []string
	if err := json.Unmarshal(state.CardIDs, &cardIDs); err != nil {
		return nil, fmt.Errorf("corrupt session checkpoint: %w", err)
	}
	outcomes := make(map[string]Grade)
	if len(state.Outcomes) > 0 {
		if err := json.Unmarshal(state.Outcomes, &outcomes); err != nil {
			return nil, fmt.Errorf("corrupt session checkpoint: %w", err)
		}
	}

	var cards []db.Card
	if len(cardIDs) > 0 {
		if err := db.DB.Where("id IN ?", cardIDs).Find(&cards).Error; err != nil {
			return nil, fmt.Errorf("%w: load session cards: %v", ErrStoreUnavailable, err)
		}
	}
	cardByID := make(map[string]db.Card, len(cards))
	for _, card := range cards {
		cardByID[card.ID] = card
	}

	queue := make([]db.Card, 0, len(cardIDs))
	currentIndex := state.CurrentIndex
	for i, id := range cardIDs {
		card, ok := cardByID[id]
		if !ok {
			if i < state.CurrentIndex {
				currentIndex--
			}
			continue
		}
		queue = append(queue, card)
	}
	if currentIndex < 0 {
		currentIndex = 0
	}
	if currentIndex > len(queue) {
		currentIndex = len(queue)
	}

	return &Session{
		userID:         userID,
		deckID:         deckID,
		queue:          queue,
		currentIndex:   currentIndex,
		outcomes:       outcomes,
		startedAt:      state.StartedAt,
		lastActivityAt: state.LastActivityAt,
	}, nil
}

func deleteSessionState(userID, deckID string) error {
	return db.DB.Where("user_id = ? AND deck_id = ?", userID, deckID).Delete(&db.StudySessionState{}).Error
}
