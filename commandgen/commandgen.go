// Package commandgen drafts natural-language automation command lists
// from a plain-English goal using an LLM, so operators can seed run
// items without writing every step by hand. Drafts are persisted for
// audit.
package commandgen

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/automation-bridge/run"
)

var (
	// ErrDraftNotFound is returned when a command draft is not found.
	ErrDraftNotFound = errors.New("command draft not found")

	// ErrEmptyGoal is returned when the goal is empty after sanitization.
	ErrEmptyGoal = errors.New("goal is required")

	// ErrGoalTooLong is returned when the goal exceeds the maximum length.
	ErrGoalTooLong = errors.New("goal exceeds maximum length")

	// ErrURLTooLong is returned when the target URL exceeds the maximum length.
	ErrURLTooLong = errors.New("target URL exceeds maximum length")

	// ErrSuspiciousGoal is returned when the goal contains patterns
	// associated with prompt injection.
	ErrSuspiciousGoal = errors.New("goal contains suspicious patterns")

	// ErrInvalidModelID is returned when model_id is not set.
	ErrInvalidModelID = errors.New("model_id is required")

	// ErrInvalidDraftStatus is returned when the draft status is invalid.
	ErrInvalidDraftStatus = errors.New("invalid draft status")

	// ErrNoCommands is returned when a completed draft has no commands,
	// or when the model output contains none.
	ErrNoCommands = errors.New("no commands generated")
)

// DraftStatus represents the status of command drafting.
type DraftStatus string

const (
	StatusPending    DraftStatus = "pending"
	StatusGenerating DraftStatus = "generating"
	StatusCompleted  DraftStatus = "completed"
	StatusFailed     DraftStatus = "failed"
)

// IsValid checks if the draft status is valid.
func (s DraftStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Draft is one AI drafting request and its result. The goal and target
// URL are stored as submitted; the generated commands are the sanitized
// model output.
type Draft struct {
	ID           uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	Goal         string         `json:"goal" gorm:"type:text;not null"`
	TargetURL    string         `json:"target_url,omitempty" gorm:"type:varchar(2048)"`
	ModelID      string         `json:"model_id" gorm:"type:varchar(100);not null"`
	Commands     run.StringList `json:"commands,omitempty" gorm:"type:json"`
	Status       DraftStatus    `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	ErrorMessage *string        `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TableName sets the table name for the Draft model.
func (d *Draft) TableName() string {
	return "command_drafts"
}

// BeforeCreate hook to generate UUID before creating a new draft
func (d *Draft) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Validate checks if the draft has valid required fields.
func (d *Draft) Validate() error {
	if d.Goal == "" {
		return ErrEmptyGoal
	}
	if d.ModelID == "" {
		return ErrInvalidModelID
	}
	if !d.Status.IsValid() {
		return ErrInvalidDraftStatus
	}
	// Commands are only required once drafting has completed.
	if d.Status == StatusCompleted && len(d.Commands) == 0 {
		return ErrNoCommands
	}
	return nil
}
