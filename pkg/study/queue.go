package study

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/trunghieu0211/flashdeck-journey/pkg/db"
	"gorm.io/gorm"
)

// BuildQueue selects the cards of a deck that are due for review at now:
// every card with no review record, plus every card whose due date has
// passed. Never-studied cards come first (stable by card ID), then studied
// cards by ascending due date, card ID as the final tie-break. A positive
// limit truncates the queue.
//
// A deck with cards but nothing due yields an empty queue, which is a
// valid, immediately-complete session rather than an error.
func BuildQueue(userID, deckID string, now time.Time, limit int) ([]db.Card, error) {
	cards, err := db.GetCardsForDeck(userID, deckID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDeckNotFound, deckID)
		}
		return nil, fmt.Errorf("%w: load cards: %v", ErrStoreUnavailable, err)
	}
	if len(cards) == 0 {
		return nil, ErrEmptyDeck
	}

	var records []db.ReviewRecord
	if err := db.DB.Where("user_id = ? AND deck_id = ?", userID, deckID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("%w: load review records: %v", ErrStoreUnavailable, err)
	}
	recordByCard := make(map[string]db.ReviewRecord, len(records))
	for _, rec := range records {
		recordByCard[rec.CardID] = rec
	}

	queue := make([]db.Card, 0, len(cards))
	for _, card := range cards {
		rec, studied := recordByCard[card.ID]
		if !studied || !rec.DueAt.After(now) {
			queue = append(queue, card)
		}
	}

	sort.SliceStable(queue, func(i, j int) bool {
		ri, iStudied := recordByCard[queue[i].ID]
		rj, jStudied := recordByCard[queue[j].ID]
		if iStudied != jStudied {
			return !iStudied // never-studied first
		}
		if !iStudied {
			return queue[i].ID < queue[j].ID
		}
		if !ri.DueAt.Equal(rj.DueAt) {
			return ri.DueAt.Before(rj.DueAt)
		}
		return queue[i].ID < queue[j].ID
	})

	if limit > 0 && len(queue) > limit {
		queue = queue[:limit]
	}
	return queue, nil
}
