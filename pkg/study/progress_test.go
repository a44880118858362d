package study

import (
	"testing"
	"time"

	"github.com/trunghieu0211/flashdeck-journey/pkg/config"
	"github.com/trunghieu0211/flashdeck-journey/pkg/db"
	"github.com/trunghieu0211/flashdeck-journey/pkg/internal/testutil"
)

func newTestAggregator() *Aggregator {
	return NewAggregator(config.Default().Study)
}

func logReview(t *testing.T, userID, cardID, deckID string, at time.Time) {
	t.Helper()
	entry := db.ReviewLog{
		UserID: userID, CardID: cardID, DeckID: deckID,
		Grade: "good", ReviewedAt: at, IntervalDays: 1, EaseFactor: db.DefaultEase,
	}
	if err := db.DB.Create(&entry).Error; err != nil {
		t.Fatalf("failed to create review log: %v", err)
	}
}

func TestStreakConsecutiveDays(t *testing.T) {
	testutil.SetupTestDB(t)
	a := newTestAggregator()

	logReview(t, "user-1", "card-1", "deck-1", day(5))
	logReview(t, "user-1", "card-2", "deck-1", day(6))
	logReview(t, "user-1", "card-3", "deck-1", day(7))

	streak, err := a.Streak("user-1", day(7))
	if err != nil {
		t.Fatalf("Streak failed: %v", err)
	}
	if streak != 3 {
		t.Fatalf("expected streak 3, got %d", streak)
	}
}

func TestStreakGapResets(t *testing.T) {
	testutil.SetupTestDB(t)
	a := newTestAggregator()

	logReview(t, "user-1", "card-1", "deck-1", day(5))
	logReview(t, "user-1", "card-2", "deck-1", day(7))

	streak, err := a.Streak("user-1", day(7))
	if err != nil {
		t.Fatalf("Streak failed: %v", err)
	}
	if streak != 1 {
		t.Fatalf("expected streak 1 after gap, got %d", streak)
	}
}

func TestStreakEndingYesterdayStillCounts(t *testing.T) {
	testutil.SetupTestDB(t)
	a := newTestAggregator()

	logReview(t, "user-1", "card-1", "deck-1", day(5))
	logReview(t, "user-1", "card-2", "deck-1", day(6))

	streak, err := a.Streak("user-1", day(7))
	if err != nil {
		t.Fatalf("Streak failed: %v", err)
	}
	if streak != 2 {
		t.Fatalf("expected streak 2 when studied through yesterday, got %d", streak)
	}
}

func TestStreakNoEvents(t *testing.T) {
	testutil.SetupTestDB(t)
	a := newTestAggregator()

	streak, err := a.Streak("user-1", day(7))
	if err != nil {
		t.Fatalf("Streak failed: %v", err)
	}
	if streak != 0 {
		t.Fatalf("expected streak 0, got %d", streak)
	}
}

func TestStreakStaleRunResets(t *testing.T) {
	testutil.SetupTestDB(t)
	a := newTestAggregator()

	logReview(t, "user-1", "card-1", "deck-1", day(1))
	logReview(t, "user-1", "card-2", "deck-1", day(2))

	streak, err := a.Streak("user-1", day(7))
	if err != nil {
		t.Fatalf("Streak failed: %v", err)
	}
	if streak != 0 {
		t.Fatalf("expected streak 0 for a run ending before yesterday, got %d", streak)
	}
}

func TestDeckProgress(t *testing.T) {
	testutil.SetupTestDB(t)
	a := newTestAggregator()
	deck := createDeck(t, "user-1", "Spanish")

	cards := []db.Card{
		createCard(t, deck.ID, "card-a", "a"),
		createCard(t, deck.ID, "card-b", "b"),
		createCard(t, deck.ID, "card-c", "c"),
		createCard(t, deck.ID, "card-d", "d"),
	}
	// Two mastered, one in progress, one never studied.
	createRecord(t, "user-1", cards[0], day(20), 3)
	createRecord(t, "user-1", cards[1], day(20), 2)
	createRecord(t, "user-1", cards[2], day(20), 1)

	pct, err := a.DeckProgress("user-1", deck.ID)
	if err != nil {
		t.Fatalf("DeckProgress failed: %v", err)
	}
	if pct != 50 {
		t.Fatalf("expected 50%%, got %d%%", pct)
	}

	// Idempotent with no intervening writes.
	again, err := a.DeckProgress("user-1", deck.ID)
	if err != nil {
		t.Fatalf("DeckProgress failed: %v", err)
	}
	if again != pct {
		t.Fatalf("expected identical result, got %d then %d", pct, again)
	}
}

func TestDeckProgressEmptyDeck(t *testing.T) {
	testutil.SetupTestDB(t)
	a := newTestAggregator()
	deck := createDeck(t, "user-1", "Empty")

	pct, err := a.DeckProgress("user-1", deck.ID)
	if err != nil {
		t.Fatalf("DeckProgress failed: %v", err)
	}
	if pct != 0 {
		t.Fatalf("expected 0%% for empty deck, got %d%%", pct)
	}
}

func TestDeckProgressMasteryOverride(t *testing.T) {
	testutil.SetupTestDB(t)
	a := newTestAggregator()
	deck := createDeck(t, "user-1", "Spanish")
	card := createCard(t, deck.ID, "card-a", "a")
	createRecord(t, "user-1", card, day(20), 2)

	if err := db.SaveUserSettings(&db.UserSettings{UserID: "user-1", MasteryOverride: 5}); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	pct, err := a.DeckProgress("user-1", deck.ID)
	if err != nil {
		t.Fatalf("DeckProgress failed: %v", err)
	}
	if pct != 0 {
		t.Fatalf("expected 0%% with raised threshold, got %d%%", pct)
	}
}

func TestCardsDueToday(t *testing.T) {
	testutil.SetupTestDB(t)
	a := newTestAggregator()
	deck := createDeck(t, "user-1", "Spanish")

	overdue := createCard(t, deck.ID, "card-a", "a")
	dueLaterToday := createCard(t, deck.ID, "card-b", "b")
	future := createCard(t, deck.ID, "card-c", "c")
	createCard(t, deck.ID, "card-d", "d") // never studied

	now := time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)
	createRecord(t, "user-1", overdue, now.AddDate(0, 0, -2), 2)
	createRecord(t, "user-1", dueLaterToday, now.Add(8*time.Hour), 2)
	createRecord(t, "user-1", future, now.AddDate(0, 0, 5), 2)

	count, err := a.CardsDueToday("user-1", nil, now)
	if err != nil {
		t.Fatalf("CardsDueToday failed: %v", err)
	}
	// overdue + due later today + never studied
	if count != 3 {
		t.Fatalf("expected 3 cards due today, got %d", count)
	}

	scoped, err := a.CardsDueToday("user-1", []string{deck.ID}, now)
	if err != nil {
		t.Fatalf("CardsDueToday failed: %v", err)
	}
	if scoped != count {
		t.Fatalf("deck filter should match, got %d vs %d", scoped, count)
	}

	none, err := a.CardsDueToday("user-1", []string{"other-deck"}, now)
	if err != nil {
		t.Fatalf("CardsDueToday failed: %v", err)
	}
	if none != 0 {
		t.Fatalf("expected 0 for foreign deck filter, got %d", none)
	}
}

func TestStudiedToday(t *testing.T) {
	testutil.SetupTestDB(t)
	a := newTestAggregator()

	now := time.Date(2025, 4, 10, 20, 0, 0, 0, time.UTC)
	logReview(t, "user-1", "card-a", "deck-1", now.Add(-2*time.Hour))
	logReview(t, "user-1", "card-a", "deck-1", now.Add(-1*time.Hour)) // same card twice
	logReview(t, "user-1", "card-b", "deck-1", now.Add(-30*time.Minute))
	logReview(t, "user-1", "card-c", "deck-1", now.AddDate(0, 0, -1))

	count, err := a.StudiedToday("user-1", now)
	if err != nil {
		t.Fatalf("StudiedToday failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 distinct cards studied today, got %d", count)
	}
}

func TestStreakHonorsTimezoneOffset(t *testing.T) {
	testutil.SetupTestDB(t)
	a := newTestAggregator()

	// 23:00 UTC is already the next day at UTC+7.
	if err := db.SaveUserSettings(&db.UserSettings{UserID: "user-1", TimezoneOffsetHours: 7}); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}
	eveningUTC := time.Date(2025, 4, 9, 23, 0, 0, 0, time.UTC)
	logReview(t, "user-1", "card-a", "deck-1", eveningUTC)

	now := time.Date(2025, 4, 10, 1, 0, 0, 0, time.UTC) // same local day at UTC+7
	streak, err := a.Streak("user-1", now)
	if err != nil {
		t.Fatalf("Streak failed: %v", err)
	}
	if streak != 1 {
		t.Fatalf("expected streak 1 in user timezone, got %d", streak)
	}
}

func TestLastStudiedAt(t *testing.T) {
	testutil.SetupTestDB(t)
	a := newTestAggregator()

	last, err := a.LastStudiedAt("user-1", "deck-1")
	if err != nil {
		t.Fatalf("LastStudiedAt failed: %v", err)
	}
	if last != nil {
		t.Fatalf("expected nil for never-studied deck, got %v", last)
	}

	logReview(t, "user-1", "card-a", "deck-1", day(3))
	logReview(t, "user-1", "card-b", "deck-1", day(5))

	last, err = a.LastStudiedAt("user-1", "deck-1")
	if err != nil {
		t.Fatalf("LastStudiedAt failed: %v", err)
	}
	if last == nil || !last.Equal(day(5)) {
		t.Fatalf("expected most recent review timestamp, got %v", last)
	}
}
