// Package credential stores named secrets encrypted at rest. The engine API
// key and issue-tracker tokens live here; plaintext exists only in memory on
// the invocation or notification call path.
package credential

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrCredentialNotFound is returned when a credential is not found.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrInvalidName is returned when name is empty.
	ErrInvalidName = errors.New("name is required")

	// ErrInvalidKind is returned when the credential kind is unknown.
	ErrInvalidKind = errors.New("invalid credential kind")

	// ErrEmptySecret is returned when the encrypted secret blob is empty.
	ErrEmptySecret = errors.New("encrypted secret is required")

	// ErrDuplicateName is returned when a credential name is already taken.
	ErrDuplicateName = errors.New("credential name already exists")
)

// Kind classifies what a credential's secret set unlocks.
type Kind string

const (
	// KindEngine holds the automation engine API key.
	KindEngine Kind = "engine"
	// KindIssueTracker holds an issue tracker token for failure notification.
	KindIssueTracker Kind = "issue_tracker"
	// KindWebhook holds an optional shared secret for webhook notification.
	KindWebhook Kind = "webhook"
)

// IsValid checks if the kind is valid.
func (k Kind) IsValid() bool {
	switch k {
	case KindEngine, KindIssueTracker, KindWebhook:
		return true
	default:
		return false
	}
}

// Well-known keys inside a decrypted secret set.
const (
	SecretAPIKey = "api_key"
	SecretToken  = "token"
	SecretShared = "secret"
)

// Credential is a named encrypted secret set. The blob is AES-GCM ciphertext
// of a JSON map; it is never returned by the API.
type Credential struct {
	ID              uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name            string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_credentials_name"`
	Kind            Kind      `json:"kind" gorm:"type:varchar(20);not null"`
	EncryptedSecret []byte    `json:"-" gorm:"type:blob;not null"`
	IsActive        bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating a new credential
func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Validate checks if the credential has valid required fields.
func (c *Credential) Validate() error {
	if c.Name == "" {
		return ErrInvalidName
	}
	if !c.Kind.IsValid() {
		return ErrInvalidKind
	}
	if len(c.EncryptedSecret) == 0 {
		return ErrEmptySecret
	}
	return nil
}
