package actors

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TypeChild     = "child"
	TypePet       = "pet"
	TypeAdult     = "adult"
	TypeCharacter = "character"
	TypeOther     = "other"
)

// Provenance metadata keys stamped by a claim.
const (
	MetaPreviousOwner    = "previous_owner_id"
	MetaClaimedFromToken = "claimed_from_token"
	MetaClaimedAt        = "claimed_at"
)

// MaxMedia is the per-actor cap on committed media attachments.
const MaxMedia = 10

type Actor struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID string `gorm:"type:uuid;not null;index:idx_actors_account" json:"account_id"`
	AppID     string `gorm:"not null;index:idx_actors_app" json:"app_id"`

	Name string `gorm:"not null" json:"name"`
	Type string `gorm:"type:text;not null;default:'child'" json:"type"`

	IsClaimable bool              `gorm:"not null;default:false;index" json:"is_claimable"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Actor) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func ValidType(t string) bool {
	switch t {
	case TypeChild, TypePet, TypeAdult, TypeCharacter, TypeOther:
		return true
	}
	return false
}
