package db

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestGetCardsForDeck(t *testing.T) {
	setupDB(t)

	deck := Deck{UserID: "user-1", Title: "Spanish"}
	if err := DB.Create(&deck).Error; err != nil {
		t.Fatalf("failed to create deck: %v", err)
	}
	for i, front := range []string{"uno", "dos", "tres"} {
		card := Card{DeckID: deck.ID, Front: front, Back: front, Position: i}
		if err := DB.Create(&card).Error; err != nil {
			t.Fatalf("failed to create card: %v", err)
		}
	}

	cards, err := GetCardsForDeck("user-1", deck.ID)
	if err != nil {
		t.Fatalf("GetCardsForDeck failed: %v", err)
	}
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}
	if cards[0].Front != "uno" || cards[2].Front != "tres" {
		t.Fatalf("expected cards in position order, got %+v", cards)
	}

	if _, err := GetCardsForDeck("user-1", "missing-deck"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found for missing deck, got %v", err)
	}
	if _, err := GetCardsForDeck("other-user", deck.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found for foreign deck, got %v", err)
	}
}

func TestReviewRecordRoundTrip(t *testing.T) {
	setupDB(t)

	got, err := GetReviewRecord("user-1", "card-1")
	if err != nil {
		t.Fatalf("GetReviewRecord failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil record for never-studied card, got %+v", got)
	}

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rec := ReviewRecord{
		UserID:          "user-1",
		CardID:          "card-1",
		DeckID:          "deck-1",
		RepetitionCount: 2,
		EaseFactor:      2.5,
		IntervalDays:    6,
		DueAt:           now.AddDate(0, 0, 6),
		LastReviewedAt:  &now,
	}
	if err := PutReviewRecord(&rec); err != nil {
		t.Fatalf("PutReviewRecord failed: %v", err)
	}

	got, err = GetReviewRecord("user-1", "card-1")
	if err != nil {
		t.Fatalf("GetReviewRecord failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored record")
	}
	if got.RepetitionCount != 2 || got.IntervalDays != 6 || got.EaseFactor != 2.5 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if !got.DueAt.Equal(rec.DueAt) {
		t.Fatalf("due date mismatch: got %v want %v", got.DueAt, rec.DueAt)
	}

	// Upsert with a fresh struct must update the same row, not insert.
	update := ReviewRecord{
		UserID:          "user-1",
		CardID:          "card-1",
		DeckID:          "deck-1",
		RepetitionCount: 3,
		EaseFactor:      2.65,
		IntervalDays:    15,
		DueAt:           now.AddDate(0, 0, 15),
		LastReviewedAt:  &now,
	}
	if err := PutReviewRecord(&update); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	var count int64
	DB.Model(&ReviewRecord{}).Where("user_id = ? AND card_id = ?", "user-1", "card-1").Count(&count)
	if count != 1 {
		t.Fatalf("expected a single row per (user, card), got %d", count)
	}
	got, _ = GetReviewRecord("user-1", "card-1")
	if got.RepetitionCount != 3 || got.IntervalDays != 15 {
		t.Fatalf("expected updated record, got %+v", got)
	}
}

func TestUserSettingsDefaultsAndSave(t *testing.T) {
	setupDB(t)

	settings, err := GetUserSettings("user-9")
	if err != nil {
		t.Fatalf("GetUserSettings failed: %v", err)
	}
	if settings.SessionLimit != 0 || settings.TimezoneOffsetHours != 0 {
		t.Fatalf("expected zero-value defaults, got %+v", settings)
	}

	settings.SessionLimit = 20
	settings.TimezoneOffsetHours = 7
	if err := SaveUserSettings(&settings); err != nil {
		t.Fatalf("SaveUserSettings failed: %v", err)
	}

	settings.SessionLimit = 25
	if err := SaveUserSettings(&settings); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	reloaded, err := GetUserSettings("user-9")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.SessionLimit != 25 || reloaded.TimezoneOffsetHours != 7 {
		t.Fatalf("expected saved settings, got %+v", reloaded)
	}
	var count int64
	DB.Model(&UserSettings{}).Where("user_id = ?", "user-9").Count(&count)
	if count != 1 {
		t.Fatalf("expected one settings row, got %d", count)
	}
}
