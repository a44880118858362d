package db

import (
	"errors"

	"gorm.io/gorm"
)

// GetDeck returns the user's deck or gorm.ErrRecordNotFound.
func GetDeck(userID, deckID string) (*Deck, error) {
	var deck Deck
	if err := DB.Where("id = ? AND user_id = ?", deckID, userID).First(&deck).Error; err != nil {
		return nil, err
	}
	return &deck, nil
}

// GetCardsForDeck returns the deck's cards in authoring order. A missing
// deck is gorm.ErrRecordNotFound; a deck with no cards is an empty slice.
func GetCardsForDeck(userID, deckID string) ([]Card, error) {
	if _, err := GetDeck(userID, deckID); err != nil {
		return nil, err
	}
	var cards []Card
	if err := DB.Where("deck_id = ?", deckID).Order("position ASC, id ASC").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// GetReviewRecord returns the scheduling state for (userID, cardID), or
// (nil, nil) when the card has never been studied.
func GetReviewRecord(userID, cardID string) (*ReviewRecord, error) {
	var rec ReviewRecord
	err := DB.Where("user_id = ? AND card_id = ?", userID, cardID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutReviewRecord upserts the record keyed by (user_id, card_id).
func PutReviewRecord(rec *ReviewRecord) error {
	if rec.ID != 0 {
		return DB.Save(rec).Error
	}
	var existing ReviewRecord
	err := DB.Where("user_id = ? AND card_id = ?", rec.UserID, rec.CardID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DB.Create(rec).Error
	}
	if err != nil {
		return err
	}
	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	return DB.Save(rec).Error
}

func AppendReviewLog(entry *ReviewLog) error {
	return DB.Create(entry).Error
}

// GetUserSettings loads the user's settings, falling back to zero values
// for users who never saved any.
func GetUserSettings(userID string) (UserSettings, error) {
	var settings UserSettings
	err := DB.Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UserSettings{UserID: userID}, nil
	}
	if err != nil {
		return UserSettings{UserID: userID}, err
	}
	return settings, nil
}

// SaveUserSettings upserts the per-user settings row.
func SaveUserSettings(settings *UserSettings) error {
	var existing UserSettings
	err := DB.Where("user_id = ?", settings.UserID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DB.Create(settings).Error
	}
	if err != nil {
		return err
	}
	settings.ID = existing.ID
	return DB.Save(settings).Error
}
