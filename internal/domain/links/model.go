package links

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRevoked  = "revoked"
)

// Metadata keys on links auto-created by the claim engine.
const (
	MetaAutoCreatedBy = "auto_created_by"
	MetaClaimToken    = "claim_token"
)

// AccountLink is one directed edge of a family-to-family relationship.
// An accepted relationship is always stored as two rows, one per direction,
// created and deleted together. A pending request is a single row whose
// linked_account_id is the recipient.
type AccountLink struct {
	ID              string `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID       string `gorm:"type:uuid;not null;index:idx_links_pair,priority:1" json:"account_id"`
	LinkedAccountID string `gorm:"type:uuid;not null;index:idx_links_pair,priority:2" json:"linked_account_id"`
	AppID           string `gorm:"not null;index" json:"app_id"`

	Status    string `gorm:"type:text;not null;default:'pending'" json:"status"`
	CreatedBy string `gorm:"type:uuid;not null" json:"created_by"`

	Metadata datatypes.JSONMap `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *AccountLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
