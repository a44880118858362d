package study

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trunghieu0211/flashdeck-journey/pkg/config"
	"github.com/trunghieu0211/flashdeck-journey/pkg/db"
	"github.com/trunghieu0211/flashdeck-journey/pkg/logger"
)

const (
	SessionSweeperInterval = 10 * time.Minute
	defaultSessionTimeout  = time.Hour
)

// Session is one pass through a deck's due cards. It lives in memory for
// the duration of the session and is checkpointed to the database after
// every mutation so a reload can resume it.
type Session struct {
	userID         string
	deckID         string
	queue          []db.Card
	currentIndex   int
	outcomes       map[string]Grade
	startedAt      time.Time
	lastActivityAt time.Time
}

func (s *Session) complete() bool {
	return s.currentIndex >= len(s.queue)
}

// Snapshot is the caller-facing view of a session's position.
type Snapshot struct {
	DeckID       string    `json:"deckId"`
	Total        int       `json:"total"`
	CurrentIndex int       `json:"currentIndex"`
	Completed    bool      `json:"completed"`
	StartedAt    time.Time `json:"startedAt"`
}

// Summary tallies the grades recorded so far. It is consistent with the
// session's outcomes at call time; Graded == Total once the session is
// complete.
type Summary struct {
	Again  int `json:"again"`
	Hard   int `json:"hard"`
	Good   int `json:"good"`
	Easy   int `json:"easy"`
	Graded int `json:"graded"`
	Total  int `json:"total"`
}

// SessionManager owns every live session, keyed by (user, deck). All
// mutations run under its mutex, so two grade submissions for the same
// session can never interleave.
type SessionManager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	scheduler *Scheduler
	limit     int
	timeout   time.Duration
	now       func() time.Time
}

func NewSessionManager(scheduler *Scheduler, cfg config.StudyConfig, now func() time.Time) *SessionManager {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	timeout := time.Duration(cfg.SessionTimeoutMin) * time.Minute
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}
	return &SessionManager{
		sessions:  make(map[string]*Session),
		scheduler: scheduler,
		limit:     cfg.SessionLimit,
		timeout:   timeout,
		now:       now,
	}
}

func sessionKey(userID, deckID string) string {
	return userID + "|" + deckID
}

// Start builds the due-card queue and replaces any existing session for
// this (user, deck). A deck with cards but none due starts an
// immediately-complete session.
func (m *SessionManager) Start(userID, deckID string) (Snapshot, *db.Card, error) {
	now := m.now()

	limit := m.limit
	settings, err := db.GetUserSettings(userID)
	if err != nil {
		logger.Error("failed to load user settings", "user_id", userID, "error", err)
	} else if settings.SessionLimit > 0 {
		limit = settings.SessionLimit
	}

	queue, err := BuildQueue(userID, deckID, now, limit)
	if err != nil {
		return Snapshot{}, nil, err
	}

	session := &Session{
		userID:         userID,
		deckID:         deckID,
		queue:          queue,
		outcomes:       make(map[string]Grade),
		startedAt:      now,
		lastActivityAt: now,
	}

	m.mu.Lock()
	m.sessions[sessionKey(userID, deckID)] = session
	m.mu.Unlock()

	m.checkpoint(session)
	return m.snapshotOf(session), session.current(), nil
}

// Resume returns the live session for (user, deck), rebuilding it from the
// database checkpoint if the process restarted.
func (m *SessionManager) Resume(userID, deckID string) (Snapshot, *db.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, err := m.sessionLocked(userID, deckID)
	if err != nil {
		return Snapshot{}, nil, err
	}
	return m.snapshotOf(session), session.current(), nil
}

// SubmitGrade grades the current card. The review record write must
// succeed before the session advances: on a store failure the position and
// outcomes are unchanged, so the caller can retry the same card.
func (m *SessionManager) SubmitGrade(userID, deckID string, grade Grade) (Snapshot, *db.Card, error) {
	if !grade.Valid() {
		return Snapshot{}, nil, fmt.Errorf("%w: %q", ErrInvalidGrade, grade)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.sessionLocked(userID, deckID)
	if err != nil {
		return Snapshot{}, nil, err
	}
	if session.complete() {
		return m.snapshotOf(session), nil, ErrSessionCompleted
	}

	now := m.now()
	card := session.queue[session.currentIndex]
	if err := m.gradeCard(session, card, grade, now); err != nil {
		return m.snapshotOf(session), session.current(), err
	}

	session.outcomes[card.ID] = grade
	session.currentIndex++
	session.lastActivityAt = now

	if session.complete() {
		if err := deleteSessionState(userID, deckID); err != nil {
			logger.Error("failed to delete session checkpoint", "user_id", userID, "deck_id", deckID, "error", err)
		}
	} else {
		m.checkpoint(session)
	}
	return m.snapshotOf(session), session.current(), nil
}

// Regrade updates the outcome of an already-graded queue position in
// place. It never appends to the queue and never moves the current
// position.
func (m *SessionManager) Regrade(userID, deckID string, index int, grade Grade) (Snapshot, error) {
	if !grade.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidGrade, grade)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.sessionLocked(userID, deckID)
	if err != nil {
		return Snapshot{}, err
	}
	if index < 0 || index >= session.currentIndex {
		return m.snapshotOf(session), fmt.Errorf("%w: position %d", ErrInvalidIndex, index)
	}

	now := m.now()
	card := session.queue[index]
	if err := m.gradeCard(session, card, grade, now); err != nil {
		return m.snapshotOf(session), err
	}

	session.outcomes[card.ID] = grade
	session.lastActivityAt = now
	if !session.complete() {
		m.checkpoint(session)
	}
	return m.snapshotOf(session), nil
}

// gradeCard runs the scheduler and persists the result. Called with the
// manager lock held.
func (m *SessionManager) gradeCard(session *Session, card db.Card, grade Grade, now time.Time) error {
	record, err := db.GetReviewRecord(session.userID, card.ID)
	if err != nil {
		return fmt.Errorf("%w: load review record: %v", ErrStoreUnavailable, err)
	}
	if record == nil {
		record = m.scheduler.NewRecord(session.userID, card.ID, session.deckID, now)
	}
	if err := m.scheduler.Apply(record, grade, now); err != nil {
		return err
	}
	if err := db.PutReviewRecord(record); err != nil {
		return fmt.Errorf("%w: save review record: %v", ErrStoreUnavailable, err)
	}

	entry := &db.ReviewLog{
		UserID:       session.userID,
		CardID:       card.ID,
		DeckID:       session.deckID,
		Grade:        string(grade),
		ReviewedAt:   now,
		IntervalDays: record.IntervalDays,
		EaseFactor:   record.EaseFactor,
	}
	if err := db.AppendReviewLog(entry); err != nil {
		// The scheduling state is already saved; history is advisory.
		logger.Error("failed to append review log", "user_id", session.userID, "card_id", card.ID, "error", err)
	}
	return nil
}

// CurrentCard returns the card awaiting a grade, or nil when the session
// is complete.
func (m *SessionManager) CurrentCard(userID, deckID string) (*db.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, err := m.sessionLocked(userID, deckID)
	if err != nil {
		return nil, err
	}
	return session.current(), nil
}

func (m *SessionManager) IsComplete(userID, deckID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, err := m.sessionLocked(userID, deckID)
	if err != nil {
		return false, err
	}
	return session.complete(), nil
}

func (m *SessionManager) Summary(userID, deckID string) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, err := m.sessionLocked(userID, deckID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Total: len(session.queue), Graded: len(session.outcomes)}
	for _, grade := range session.outcomes {
		switch grade {
		case GradeAgain:
			summary.Again++
		case GradeHard:
			summary.Hard++
		case GradeGood:
			summary.Good++
		case GradeEasy:
			summary.Easy++
		}
	}
	return summary, nil
}

// Abandon drops the session and its checkpoint. Grades already persisted
// stay persisted.
func (m *SessionManager) Abandon(userID, deckID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionKey(userID, deckID))
	m.mu.Unlock()
	if err := deleteSessionState(userID, deckID); err != nil {
		return fmt.Errorf("%w: delete session checkpoint: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (m *SessionManager) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(SessionSweeperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepInactive(m.now())
		}
	}
}

func (m *SessionManager) SweepInactive(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, session := range m.sessions {
		if session == nil || now.Sub(session.lastActivityAt) > m.timeout {
			delete(m.sessions, key)
		}
	}
}

// sessionLocked finds the in-memory session or restores it from its
// checkpoint. Called with the manager lock held.
func (m *SessionManager) sessionLocked(userID, deckID string) (*Session, error) {
	if session := m.sessions[sessionKey(userID, deckID)]; session != nil {
		return session, nil
	}
	session, err := loadSessionState(userID, deckID)
	if err != nil {
		return nil, err
	}
	m.sessions[sessionKey(userID, deckID)] = session
	return session, nil
}

func (m *SessionManager) snapshotOf(session *Session) Snapshot {
	return Snapshot{
		DeckID:       session.deckID,
		Total:        len(session.queue),
		CurrentIndex: session.currentIndex,
		Completed:    session.complete(),
		StartedAt:    session.startedAt,
	}
}

func (m *SessionManager) checkpoint(session *Session) {
	state, err := buildSessionState(session, session.lastActivityAt.Add(m.timeout))
	if err != nil {
		logger.Error("failed to build session checkpoint", "user_id", session.userID, "deck_id", session.deckID, "error", err)
		return
	}
	if err := upsertSessionState(state); err != nil {
		logger.Error("failed to persist session checkpoint", "user_id", session.userID, "deck_id", session.deckID, "error", err)
	}
}

func (s *Session) current() *db.Card {
	if s.complete() {
		return nil
	}
	card := s.queue[s.currentIndex]
	return &card
}
