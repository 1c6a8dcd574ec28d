package run

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/automation-bridge/automation"
)

var (
	// ErrItemNotFound is returned when an item is not found.
	ErrItemNotFound = errors.New("run item not found")

	// ErrInvalidRunID is returned when run_id is not set.
	ErrInvalidRunID = errors.New("run_id is required")

	// ErrInvalidItemStatus is returned when item status is invalid.
	ErrInvalidItemStatus = errors.New("invalid item status")

	// ErrItemAlreadyStarted is returned when trying to start an already started item.
	ErrItemAlreadyStarted = errors.New("item already started")

	// ErrItemNotRunning is returned when recording an outcome for an item that's not running.
	ErrItemNotRunning = errors.New("item is not running")

	// ErrItemNotPending is returned when skipping an item that already ran.
	ErrItemNotPending = errors.New("item is not pending")
)

// ItemStatus represents the lifecycle state of one item.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusRunning   ItemStatus = "running"
	ItemStatusSucceeded ItemStatus = "succeeded"
	ItemStatusFailed    ItemStatus = "failed"
	// ItemStatusSkipped marks items after the aborting one in a fail-fast run.
	ItemStatusSkipped ItemStatus = "skipped"
)

// IsValid checks if the item status is valid.
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusPending, ItemStatusRunning, ItemStatusSucceeded, ItemStatusFailed, ItemStatusSkipped:
		return true
	default:
		return false
	}
}

// IsFinal checks if the item status is a final status.
func (s ItemStatus) IsFinal() bool {
	return s == ItemStatusSucceeded || s == ItemStatusFailed || s == ItemStatusSkipped
}

// StringList is a custom type for JSON string array columns.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan StringList: not a byte slice")
	}
	var list []string
	if err := json.Unmarshal(bytes, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

// Item is one automation request inside a run, snapshotted at submission
// time, plus its recorded outcome. item_index preserves submission order.
type Item struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	RunID     uuid.UUID `json:"run_id" gorm:"type:char(36);not null;index:idx_items_run_id"`
	ItemIndex int       `json:"index" gorm:"column:item_index;not null"`

	Operation          automation.Operation `json:"operation" gorm:"type:varchar(50);not null"`
	TargetURL          string               `json:"url" gorm:"type:varchar(2048)"`
	Commands           StringList           `json:"commands" gorm:"type:json"`
	SchemaText         string               `json:"schema,omitempty" gorm:"type:text"`
	Headless           bool                 `json:"headless" gorm:"not null;default:true"`
	TimeoutSeconds     int                  `json:"timeout" gorm:"not null"`
	CaptureScreenshots bool                 `json:"capture_screenshots" gorm:"not null;default:true"`
	DetailedLogging    bool                 `json:"detailed_logging" gorm:"not null;default:true"`
	IncludeStackTrace  bool                 `json:"include_stack_trace" gorm:"not null;default:false"`

	Status         ItemStatus             `json:"status" gorm:"type:varchar(20);not null;default:'pending';index:idx_items_status"`
	Payload        automation.JSONMap     `json:"payload,omitempty" gorm:"type:json"`
	ExecutionLogs  StringList             `json:"execution_logs,omitempty" gorm:"type:json"`
	FailureKind    automation.FailureKind `json:"failure_kind,omitempty" gorm:"type:varchar(30)"`
	FailureMessage string                 `json:"failure_message,omitempty" gorm:"type:text"`
	RawOutput      string                 `json:"raw_output,omitempty" gorm:"type:text"`
	StackTrace     string                 `json:"stack_trace,omitempty" gorm:"type:text"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  *int64     `json:"duration_ms,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating a new item
func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for GORM.
func (i *Item) TableName() string {
	return "run_items"
}

// NewItem snapshots one validated request into an item of the given run.
func NewItem(runID uuid.UUID, index int, req *automation.Request) (*Item, error) {
	schemaText := ""
	if req.Schema != nil {
		raw, err := json.Marshal(req.Schema)
		if err != nil {
			return nil, err
		}
		schemaText = string(raw)
	}

	return &Item{
		RunID:              runID,
		ItemIndex:          index,
		Operation:          req.Operation,
		TargetURL:          req.TargetURL,
		Commands:           StringList(req.Commands),
		SchemaText:         schemaText,
		Headless:           req.Headless,
		TimeoutSeconds:     req.Timeout,
		CaptureScreenshots: req.Options.CaptureScreenshots,
		DetailedLogging:    req.Options.DetailedLogging,
		IncludeStackTrace:  req.Options.IncludeStackTrace,
		Status:             ItemStatusPending,
	}, nil
}

// Validate checks if the item has valid required fields.
func (i *Item) Validate() error {
	if i.RunID == uuid.Nil {
		return ErrInvalidRunID
	}
	if !i.Status.IsValid() {
		return ErrInvalidItemStatus
	}
	return nil
}

// Request rebuilds the automation request from the stored snapshot.
func (i *Item) Request() (*automation.Request, error) {
	schema, err := automation.ParseSchema(i.SchemaText)
	if err != nil {
		return nil, err
	}

	return &automation.Request{
		Operation: i.Operation,
		TargetURL: i.TargetURL,
		Commands:  []string(i.Commands),
		Schema:    schema,
		Headless:  i.Headless,
		Timeout:   i.TimeoutSeconds,
		Options: automation.Options{
			CaptureScreenshots: i.CaptureScreenshots,
			DetailedLogging:    i.DetailedLogging,
			IncludeStackTrace:  i.IncludeStackTrace,
		},
	}, nil
}

// Start sets the started_at timestamp and changes status to running.
func (i *Item) Start() error {
	if i.StartedAt != nil {
		return ErrItemAlreadyStarted
	}
	now := time.Now()
	i.StartedAt = &now
	i.Status = ItemStatusRunning
	return nil
}

// RecordOutcome attaches the invocation outcome and finalizes the item. An
// item's outcome is recorded exactly once.
func (i *Item) RecordOutcome(outcome automation.Outcome) error {
	if i.Status != ItemStatusRunning {
		return ErrItemNotRunning
	}

	now := time.Now()
	i.CompletedAt = &now
	if i.StartedAt != nil {
		duration := now.Sub(*i.StartedAt).Milliseconds()
		i.DurationMS = &duration
	}

	i.ExecutionLogs = StringList(outcome.Logs)

	if outcome.Success {
		i.Status = ItemStatusSucceeded
		i.Payload = outcome.Payload
		return nil
	}

	i.Status = ItemStatusFailed
	i.FailureKind = outcome.Failure.Kind
	i.FailureMessage = outcome.Failure.Message
	i.RawOutput = outcome.Failure.RawOutput
	i.StackTrace = outcome.Failure.StackTrace
	return nil
}

// MarkSkipped finalizes an item that will never run because an earlier item
// aborted a fail-fast run.
func (i *Item) MarkSkipped() error {
	if i.Status != ItemStatusPending {
		return ErrItemNotPending
	}
	now := time.Now()
	i.Status = ItemStatusSkipped
	i.CompletedAt = &now
	return nil
}
