package study

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/trunghieu0211/flashdeck-journey/pkg/config"
	"github.com/trunghieu0211/flashdeck-journey/pkg/db"
	"gorm.io/gorm"
)

// Aggregator derives dashboard statistics from review records and the
// review log. Every operation is read-only and deterministic given the
// store contents; "today" is the user's local day, taken from their
// timezone offset setting.
type Aggregator struct {
	cfg config.StudyConfig
}

func NewAggregator(cfg config.StudyConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// CardsDueToday counts cards due by the end of the user's local day:
// review records whose due date has arrived plus cards never studied.
// With no deck filter it spans all of the user's decks.
func (a *Aggregator) CardsDueToday(userID string, deckIDs []string, now time.Time) (int, error) {
	loc, err := userLocation(userID)
	if err != nil {
		return 0, err
	}
	_, dayEnd := localDayBounds(now, loc)

	dueQuery := db.DB.Model(&db.ReviewRecord{}).
		Where("user_id = ? AND due_at < ?", userID, dayEnd)
	if len(deckIDs) > 0 {
		dueQuery = dueQuery.Where("deck_id IN ?", deckIDs)
	}
	var due int64
	if err := dueQuery.Count(&due).Error; err != nil {
		return 0, fmt.Errorf("%w: count due records: %v", ErrStoreUnavailable, err)
	}

	unseenQuery := db.DB.Model(&db.Card{}).
		Joins("JOIN decks ON decks.id = cards.deck_id").
		Where("decks.user_id = ?", userID).
		Where("cards.id NOT IN (?)", db.DB.Model(&db.ReviewRecord{}).Select("card_id").Where("user_id = ?", userID))
	if len(deckIDs) > 0 {
		unseenQuery = unseenQuery.Where("cards.deck_id IN ?", deckIDs)
	}
	var unseen int64
	if err := unseenQuery.Count(&unseen).Error; err != nil {
		return 0, fmt.Errorf("%w: count unseen cards: %v", ErrStoreUnavailable, err)
	}

	return int(due + unseen), nil
}

// DeckProgress is the percentage of the deck's cards at or above the
// mastery threshold, rounded to the nearest integer. An empty deck is 0%.
func (a *Aggregator) DeckProgress(userID, deckID string) (int, error) {
	threshold := a.masteryThreshold(userID)

	var total int64
	if err := db.DB.Model(&db.Card{}).Where("deck_id = ?", deckID).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("%w: count cards: %v", ErrStoreUnavailable, err)
	}
	if total == 0 {
		return 0, nil
	}

	var mastered int64
	if err := db.DB.Model(&db.ReviewRecord{}).
		Where("user_id = ? AND deck_id = ? AND repetition_count >= ?", userID, deckID, threshold).
		Count(&mastered).Error; err != nil {
		return 0, fmt.Errorf("%w: count mastered: %v", ErrStoreUnavailable, err)
	}

	return int(math.Round(float64(mastered) / float64(total) * 100)), nil
}

// Streak is the number of consecutive local days with at least one grading
// event, ending today or yesterday. Any gap longer than one day resets it
// to zero.
func (a *Aggregator) Streak(userID string, now time.Time) (int, error) {
	loc, err := userLocation(userID)
	if err != nil {
		return 0, err
	}

	var entries []db.ReviewLog
	if err := db.DB.
		Select("reviewed_at").
		Where("user_id = ?", userID).
		Find(&entries).Error; err != nil {
		return 0, fmt.Errorf("%w: load review log: %v", ErrStoreUnavailable, err)
	}

	days := make(map[string]bool, len(entries))
	for _, entry := range entries {
		days[entry.ReviewedAt.In(loc).Format("2006-01-02")] = true
	}

	day := now.In(loc)
	if !days[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1) // an unbroken streak may simply not include today yet
	}

	streak := 0
	for days[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak, nil
}

// StudiedToday counts the distinct cards graded during the user's local
// today.
func (a *Aggregator) StudiedToday(userID string, now time.Time) (int, error) {
	loc, err := userLocation(userID)
	if err != nil {
		return 0, err
	}
	dayStart, dayEnd := localDayBounds(now, loc)

	var count int64
	if err := db.DB.Model(&db.ReviewLog{}).
		Where("user_id = ? AND reviewed_at >= ? AND reviewed_at < ?", userID, dayStart, dayEnd).
		Distinct("card_id").
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: count studied today: %v", ErrStoreUnavailable, err)
	}
	return int(count), nil
}

// LastStudiedAt returns the raw timestamp of the most recent grading event
// in the deck, or nil if the deck was never studied. Formatting relative
// labels is the client's concern.
func (a *Aggregator) LastStudiedAt(userID, deckID string) (*time.Time, error) {
	var entry db.ReviewLog
	err := db.DB.
		Where("user_id = ? AND deck_id = ?", userID, deckID).
		Order("reviewed_at DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load last review: %v", ErrStoreUnavailable, err)
	}
	return &entry.ReviewedAt, nil
}

func (a *Aggregator) masteryThreshold(userID string) int {
	settings, err := db.GetUserSettings(userID)
	if err == nil && settings.MasteryOverride > 0 {
		return settings.MasteryOverride
	}
	return a.cfg.MasteryThreshold
}

func userLocation(userID string) (*time.Location, error) {
	settings, err := db.GetUserSettings(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load user settings: %v", ErrStoreUnavailable, err)
	}
	if settings.TimezoneOffsetHours == 0 {
		return time.UTC, nil
	}
	return time.FixedZone("user", settings.TimezoneOffsetHours*3600), nil
}

func localDayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
