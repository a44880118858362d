package study

import (
	"fmt"
	"math"
	"time"

	"github.com/trunghieu0211/flashdeck-journey/pkg/config"
	"github.com/trunghieu0211/flashdeck-journey/pkg/db"
)

// Scheduler is the SM-2 style state transition from a review record and a
// grade to the next review record. It is pure: no I/O, no global clock;
// the review timestamp is always a parameter. All constants come from
// configuration.
type Scheduler struct {
	cfg config.StudyConfig
}

func NewScheduler(cfg config.StudyConfig) *Scheduler {
	return &Scheduler{cfg: cfg}
}

// NewRecord is the state of a card that has never been studied: zero
// repetitions, the initial ease, due immediately.
func (s *Scheduler) NewRecord(userID, cardID, deckID string, now time.Time) *db.ReviewRecord {
	return &db.ReviewRecord{
		UserID:          userID,
		CardID:          cardID,
		DeckID:          deckID,
		RepetitionCount: 0,
		EaseFactor:      s.cfg.InitialEase,
		IntervalDays:    0,
		DueAt:           now,
	}
}

// Apply mutates rec in place with the outcome of grading it at now.
//
// Again resets the repetition streak and schedules a short relearn
// interval; the other grades grow the interval through the 1-day / 6-day /
// interval-times-ease ladder. The interval for established cards is
// computed from the ease carried into this review; the grade's ease
// adjustment applies afterwards. Ease never drops below the floor.
func (s *Scheduler) Apply(rec *db.ReviewRecord, grade Grade, now time.Time) error {
	switch grade {
	case GradeAgain:
		rec.RepetitionCount = 0
		rec.IntervalDays = s.cfg.RelearnIntervalDays
		rec.EaseFactor = s.clampEase(rec.EaseFactor - s.cfg.AgainPenalty)

	case GradeHard, GradeGood, GradeEasy:
		rec.RepetitionCount++
		switch {
		case rec.RepetitionCount == 1:
			rec.IntervalDays = s.cfg.FirstIntervalDays
		case rec.RepetitionCount == 2:
			rec.IntervalDays = s.cfg.SecondIntervalDays
		default:
			rec.IntervalDays = maxInt(1, int(math.Round(float64(rec.IntervalDays)*rec.EaseFactor)))
		}
		switch grade {
		case GradeHard:
			rec.EaseFactor = s.clampEase(rec.EaseFactor - s.cfg.HardPenalty)
		case GradeEasy:
			rec.EaseFactor += s.cfg.EasyBonus
		}

	default:
		return fmt.Errorf("%w: %q", ErrInvalidGrade, grade)
	}

	rec.DueAt = now.AddDate(0, 0, rec.IntervalDays)
	reviewedAt := now
	rec.LastReviewedAt = &reviewedAt
	gradeName := string(grade)
	rec.LastGrade = &gradeName
	return nil
}

func (s *Scheduler) clampEase(ease float64) float64 {
	if ease < s.cfg.EaseFloor {
		return s.cfg.EaseFloor
	}
	return ease
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
