package accounts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Metadata key set by a soft delete. Accounts are never hard-deleted.
const MetaDeleted = "deleted"

type Account struct {
	ID    string `gorm:"type:uuid;primaryKey" json:"id"`
	AppID string `gorm:"not null;index:idx_accounts_app" json:"app_id"`

	DisplayName *string           `json:"display_name,omitempty"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate keeps ids assigned by the identity provider; one is generated
// only when none was supplied.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *Account) IsDeleted() bool {
	if a.Metadata == nil {
		return false
	}
	v, ok := a.Metadata[MetaDeleted].(bool)
	return ok && v
}
