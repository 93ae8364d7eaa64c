package shares

import "time"

// SharedView grants token-scoped access to one story, independent of account
// identity. Immutable after creation except for expiry.
type SharedView struct {
	Token   string `gorm:"primaryKey" json:"token"`
	StoryID string `gorm:"type:uuid;not null;index" json:"story_id"`
	AppID   string `gorm:"not null" json:"app_id"`

	CreatedBy string `gorm:"type:uuid;not null" json:"created_by"`

	CanView            bool `gorm:"not null;default:true" json:"can_view"`
	CanClaimCharacters bool `gorm:"not null;default:false" json:"can_claim_characters"`
	CanRepersonalize   bool `gorm:"not null;default:false" json:"can_repersonalize"`
	CanDownload        bool `gorm:"not null;default:false" json:"can_download"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (v *SharedView) Expired(now time.Time) bool {
	return v.ExpiresAt != nil && now.After(*v.ExpiresAt)
}
