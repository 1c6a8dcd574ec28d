package run

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrAssetNotFound is returned when an asset is not found.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrInvalidAssetType is returned when asset type is invalid.
	ErrInvalidAssetType = errors.New("invalid asset type")

	// ErrInvalidItemID is returned when item_id is not set.
	ErrInvalidItemID = errors.New("item_id is required")

	// ErrInvalidBlobKey is returned when blob_key is empty.
	ErrInvalidBlobKey = errors.New("blob_key is required")

	// ErrInvalidFileName is returned when file_name is empty.
	ErrInvalidFileName = errors.New("file_name is required")
)

// AssetType represents the type of asset captured during an invocation.
type AssetType string

const (
	AssetTypeScreenshot AssetType = "screenshot"
	AssetTypeLog        AssetType = "log"
	AssetTypeRawOutput  AssetType = "raw_output"
)

// IsValid checks if the asset type is valid.
func (at AssetType) IsValid() bool {
	switch at {
	case AssetTypeScreenshot, AssetTypeLog, AssetTypeRawOutput:
		return true
	default:
		return false
	}
}

// Asset is one artifact produced by an item's invocation and archived in
// blob storage under its blob key.
type Asset struct {
	ID         uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	RunID      uuid.UUID `json:"run_id" gorm:"type:char(36);not null;index:idx_assets_run_id"`
	ItemID     uuid.UUID `json:"item_id" gorm:"type:char(36);not null;index:idx_assets_item_id"`
	AssetType  AssetType `json:"asset_type" gorm:"type:varchar(20);not null"`
	BlobKey    string    `json:"blob_key" gorm:"type:varchar(512);not null"`
	FileName   string    `json:"file_name" gorm:"type:varchar(255);not null"`
	FileSize   int64     `json:"file_size" gorm:"not null"`
	MimeType   string    `json:"mime_type,omitempty" gorm:"type:varchar(128)"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// BeforeCreate hook to generate UUID before creating a new asset
func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for GORM.
func (a *Asset) TableName() string {
	return "run_assets"
}

// Validate checks if the asset has valid required fields.
func (a *Asset) Validate() error {
	if a.RunID == uuid.Nil {
		return ErrInvalidRunID
	}
	if a.ItemID == uuid.Nil {
		return ErrInvalidItemID
	}
	if !a.AssetType.IsValid() {
		return ErrInvalidAssetType
	}
	if a.BlobKey == "" {
		return ErrInvalidBlobKey
	}
	if a.FileName == "" {
		return ErrInvalidFileName
	}
	return nil
}
