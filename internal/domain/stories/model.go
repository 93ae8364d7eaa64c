package stories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusPending    = "pending"
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Provenance metadata keys on inputs created by personalize.
const (
	MetaPersonalizedFrom = "personalized_from"
	MetaSharedViewToken  = "shared_view_token"
)

// StoryInput holds the prompt and options a story is generated from.
type StoryInput struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID string `gorm:"type:uuid;not null;index" json:"account_id"`
	AppID     string `gorm:"not null" json:"app_id"`

	Prompt   string            `gorm:"type:text;not null" json:"prompt"`
	Metadata datatypes.JSONMap `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Story is a generated work. Status transitions to completed or failed exactly
// once per generation attempt; regenerate reopens a terminal story and bumps
// the generation counter.
type Story struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID string `gorm:"type:uuid;not null;index" json:"account_id"`
	AppID     string `gorm:"not null;index" json:"app_id"`

	InputID string      `gorm:"type:uuid;not null;index" json:"input_id"`
	Input   *StoryInput `gorm:"foreignKey:InputID" json:"input,omitempty"`

	Status          string `gorm:"type:text;not null;default:'pending';index" json:"status"`
	GenerationCount int    `gorm:"not null;default:1" json:"generation_count"`

	TokensUsed int64 `gorm:"not null;default:0" json:"tokens_used"`
	CostCents  int64 `gorm:"not null;default:0" json:"cost_cents"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailReason  *string    `json:"fail_reason,omitempty"`

	Cast  []StoryActor `gorm:"foreignKey:StoryID;constraint:OnDelete:CASCADE;" json:"cast,omitempty"`
	Pages []StoryPage  `gorm:"foreignKey:StoryID;constraint:OnDelete:CASCADE;" json:"pages,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoryActor defines which actors appear in a story. Rewritten wholesale
// whenever the cast changes.
type StoryActor struct {
	StoryID         string `gorm:"type:uuid;primaryKey" json:"story_id"`
	ActorID         string `gorm:"type:uuid;primaryKey;index" json:"actor_id"`
	IsMainCharacter bool   `gorm:"not null;default:false" json:"is_main_character"`

	CreatedAt time.Time `json:"created_at"`
}

// StoryPage is derived output of one generation attempt. Deleted on regenerate.
type StoryPage struct {
	ID      string `gorm:"type:uuid;primaryKey" json:"id"`
	StoryID string `gorm:"type:uuid;not null;index" json:"story_id"`

	PageNumber int    `gorm:"not null" json:"page_number"`
	Text       string `gorm:"type:text" json:"text"`
	ImageKey   string `json:"image_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (i *StoryInput) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (s *Story) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (p *StoryPage) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
