package study

import "errors"

// Sentinel errors for the study core. Check with errors.Is.
var (
	// ErrInvalidGrade is a programmer error: a grade outside the
	// again/hard/good/easy set reached the scheduler.
	ErrInvalidGrade = errors.New("study: invalid grade")

	// ErrEmptyDeck means the deck has no cards at all. Distinct from a
	// deck whose cards are simply not due, which starts an
	// immediately-complete session.
	ErrEmptyDeck = errors.New("study: deck has no cards")

	// ErrDeckNotFound means the referenced deck does not exist (or is
	// owned by another user). Not retryable.
	ErrDeckNotFound = errors.New("study: deck not found")

	// ErrSessionCompleted guards against grading past the end of the
	// queue (UI double-submit).
	ErrSessionCompleted = errors.New("study: session already completed")

	// ErrNoActiveSession means no session exists for the (user, deck)
	// key, in memory or checkpointed.
	ErrNoActiveSession = errors.New("study: no active session")

	// ErrStoreUnavailable wraps transient persistence failures. The
	// session position is preserved so the same grade can be retried.
	ErrStoreUnavailable = errors.New("study: store unavailable")

	// ErrInvalidIndex means a regrade addressed a queue position that
	// has not been graded yet.
	ErrInvalidIndex = errors.New("study: index not graded yet")
)

// IsRetryable reports whether the caller should retry the same call
// without losing state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
