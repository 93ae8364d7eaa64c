package media

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending   = "pending"
	StatusCommitted = "committed"
)

// Owner entity types a committed upload may attach to.
const (
	OwnerActor   = "actor"
	OwnerInput   = "input"
	OwnerAccount = "account"
)

// MaxPerOwner caps an owner's total committed media.
const MaxPerOwner = 10

// SessionTTL bounds how long a staged upload may stay pending.
const SessionTTL = 24 * time.Hour

// Media is an uploaded object. It starts pending under an upload session and
// is either committed to a final owner or deleted before expires_at.
type Media struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`

	UploadSessionID *string `gorm:"type:uuid;index" json:"upload_session_id,omitempty"`
	UploadedBy      string  `gorm:"type:uuid;not null;index" json:"uploaded_by"`

	Status string `gorm:"type:text;not null;default:'pending'" json:"status"`

	OwnerType *string `gorm:"index:idx_media_owner,priority:1" json:"owner_type,omitempty"`
	OwnerID   *string `gorm:"type:uuid;index:idx_media_owner,priority:2" json:"owner_id,omitempty"`

	FileName    string `json:"file_name"`
	ContentType string `gorm:"not null" json:"content_type"`
	StorageKey  string `gorm:"not null;uniqueIndex" json:"storage_key"`

	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func ValidOwnerType(t string) bool {
	switch t {
	case OwnerActor, OwnerInput, OwnerAccount:
		return true
	}
	return false
}
