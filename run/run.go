package run

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/automation-bridge/batch"
)

var (
	// ErrRunNotFound is returned when a run is not found.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidPolicy is returned when the failure policy is unknown.
	ErrInvalidPolicy = errors.New("invalid failure policy")

	// ErrNoItems is returned when a run carries no items.
	ErrNoItems = errors.New("run must have at least one item")

	// ErrInvalidStatus is returned when status is invalid.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrRunAlreadyStarted is returned when trying to start an already started run.
	ErrRunAlreadyStarted = errors.New("run already started")

	// ErrRunNotRunning is returned when trying to complete a run that's not running.
	ErrRunNotRunning = errors.New("run is not running")

	// ErrNoPendingRuns is returned when no run is waiting to be claimed.
	ErrNoPendingRuns = errors.New("no pending runs")
)

// Status represents the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsFinal checks if the status is a final status (can't be changed).
func (s Status) IsFinal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Run represents one submitted batch of automation requests. Items belong to
// exactly one run and are processed in item_index order.
type Run struct {
	ID     uuid.UUID    `json:"id" gorm:"type:char(36);primaryKey"`
	Status Status       `json:"status" gorm:"type:varchar(20);not null;default:'pending';index:idx_runs_status"`
	Policy batch.Policy `json:"policy" gorm:"type:varchar(20);not null;default:'continue'"`
	// CredentialName selects the engine API key for this run. Empty means
	// the service's configured default key.
	CredentialName string     `json:"credential_name,omitempty" gorm:"type:varchar(255)"`
	TotalItems     int        `json:"total_items" gorm:"not null"`
	CompletedItems int        `json:"completed_items" gorm:"not null;default:0"`
	FailedItems    int        `json:"failed_items" gorm:"not null;default:0"`
	IssueURL       string     `json:"issue_url,omitempty" gorm:"type:varchar(512)"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating a new run
func (r *Run) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Validate checks if the run has valid required fields.
func (r *Run) Validate() error {
	if !r.Policy.IsValid() {
		return ErrInvalidPolicy
	}
	if r.TotalItems <= 0 {
		return ErrNoItems
	}
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Start sets the started_at timestamp and changes status to running.
// Returns an error if the run has already been started.
func (r *Run) Start() error {
	if r.StartedAt != nil {
		return ErrRunAlreadyStarted
	}
	now := time.Now()
	r.StartedAt = &now
	r.Status = StatusRunning
	return nil
}

// Complete sets the completed_at timestamp, the final status, and the item
// tallies. Returns an error if the run is not currently running.
func (r *Run) Complete(status Status, completedItems, failedItems int) error {
	if r.Status != StatusRunning {
		return ErrRunNotRunning
	}
	if !status.IsFinal() {
		return ErrInvalidStatus
	}
	now := time.Now()
	r.CompletedAt = &now
	r.Status = status
	r.CompletedItems = completedItems
	r.FailedItems = failedItems
	return nil
}
