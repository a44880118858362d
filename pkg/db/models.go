// pkg/db/models.go
package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultEase = 2.5

type Category struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

type Deck struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	UserID      string `gorm:"index;not null"`
	Title       string `gorm:"not null"`
	Description string
	Category    string `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Card content is immutable from the study core's point of view: only the
// deck-authoring endpoints touch Front/Back/Example/Notes.
type Card struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	DeckID    string `gorm:"index;not null"`
	Front     string `gorm:"not null"`
	Back      string `gorm:"not null"`
	Example   string
	Notes     string
	Position  int `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReviewRecord is the per-(user, card) scheduling state. A card with no row
// here has never been studied and is due immediately.
type ReviewRecord struct {
	ID              uint      `gorm:"primaryKey"`
	UserID          string    `gorm:"not null;uniqueIndex:idx_review_user_card;index:idx_review_user_due"`
	CardID          string    `gorm:"not null;uniqueIndex:idx_review_user_card"`
	DeckID          string    `gorm:"index;not null"` // denormalized for due-card queries
	RepetitionCount int       `gorm:"not null;default:0"`
	EaseFactor      float64   `gorm:"not null;default:2.5"`
	IntervalDays    int       `gorm:"not null;default:0"`
	DueAt           time.Time `gorm:"index:idx_review_user_due"`
	LastReviewedAt  *time.Time
	LastGrade       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReviewLog is an append-only journal of grading events. Streak and
// studied-today statistics are derived from it.
type ReviewLog struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       string    `gorm:"index:idx_review_log_user_time;not null"`
	CardID       string    `gorm:"index;not null"`
	DeckID       string    `gorm:"index;not null"`
	Grade        string    `gorm:"not null"`
	ReviewedAt   time.Time `gorm:"index:idx_review_log_user_time;not null"`
	IntervalDays int       `gorm:"not null"`
	EaseFactor   float64   `gorm:"not null"`
}

type UserSettings struct {
	ID                  uint   `gorm:"primaryKey"`
	UserID              string `gorm:"uniqueIndex;not null"`
	SessionLimit        int    `gorm:"not null;default:0"` // 0 = whole deck
	TimezoneOffsetHours int    `gorm:"not null;default:0"`
	MasteryOverride     int    `gorm:"not null;default:0"` // 0 = use server default
}

// StudySessionState is the persisted checkpoint of an in-memory study
// session, so an interrupted session can resume where it left off.
type StudySessionState struct {
	ID             uint           `gorm:"primaryKey"`
	UserID         string         `gorm:"not null;uniqueIndex:idx_study_session_user_deck"`
	DeckID         string         `gorm:"not null;uniqueIndex:idx_study_session_user_deck"`
	CardIDs        datatypes.JSON `gorm:"not null"`
	CurrentIndex   int            `gorm:"not null;default:0"`
	Outcomes       datatypes.JSON `gorm:"not null"`
	StartedAt      time.Time      `gorm:"not null"`
	LastActivityAt time.Time      `gorm:"not null"`
	ExpiresAt      time.Time      `gorm:"not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (d *Deck) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Deleting a deck removes its cards; deleting a card removes its scheduling
// state and history.
func (d *Deck) AfterDelete(tx *gorm.DB) error {
	var cards []Card
	if err := tx.Where("deck_id = ?", d.ID).Find(&cards).Error; err != nil {
		return err
	}
	for _, card := range cards {
		if err := tx.Delete(&card).Error; err != nil {
			return err
		}
	}
	return tx.Where("user_id = ? AND deck_id = ?", d.UserID, d.ID).Delete(&StudySessionState{}).Error
}

func (c *Card) AfterDelete(tx *gorm.DB) error {
	if err := tx.Where("card_id = ?", c.ID).Delete(&ReviewRecord{}).Error; err != nil {
		return err
	}
	return tx.Where("card_id = ?", c.ID).Delete(&ReviewLog{}).Error
}
