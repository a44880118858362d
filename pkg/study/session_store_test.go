package study

import (
	"testing"

	"github.com/trunghieu0211/flashdeck-journey/pkg/db"
	"github.com/trunghieu0211/flashdeck-journey/pkg/internal/testutil"
)

func TestLoadSessionStateSkipsDeletedCards(t *testing.T) {
	testutil.SetupTestDB(t)
	deck := seedDeck(t, "user-1", "card-a", "card-b", "card-c")

	m := newTestManager(day(0))
	if _, _, err := m.Start("user-1", deck.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, _, err := m.SubmitGrade("user-1", deck.ID, GradeGood); err != nil {
		t.Fatalf("SubmitGrade failed: %v", err)
	}

	// The already-graded card disappears between checkpoint and resume.
	if err := db.DB.Delete(&db.Card{ID: "card-a", DeckID: deck.ID}).Error; err != nil {
		t.Fatalf("failed to delete card: %v", err)
	}

	session, err := loadSessionState("user-1", deck.ID)
	if err != nil {
		t.Fatalf("loadSessionState failed: %v", err)
	}
	if len(session.queue) != 2 {
		t.Fatalf("expected deleted card dropped from queue, got %d cards", len(session.queue))
	}
	if session.currentIndex != 0 {
		t.Fatalf("expected index shifted for the dropped graded card, got %d", session.currentIndex)
	}
	if got := session.current(); got == nil || got.ID != "card-b" {
		t.Fatalf("expected card-b current, got %+v", got)
	}
}

func TestLoadSessionStateMissing(t *testing.T) {
	testutil.SetupTestDB(t)

	if _, err := loadSessionState("user-1", "deck-x"); err != ErrNoActiveSession {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}
