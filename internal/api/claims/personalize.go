package claims

import (
	"errors"
	"time"

	"storyshare-app/internal/domain/actors"
	"storyshare-app/internal/domain/apperr"
	"storyshare-app/internal/domain/stories"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultMaxCastSize bounds how many actors a personalized story carries.
const DefaultMaxCastSize = 3

type PersonalizeResult struct {
	Claimed []actors.Actor `json:"claimed_actors"`
	Story   stories.Story  `json:"story"`
}

// ClaimAndPersonalize claims every claimable actor on the shared story and
// creates a new story for the claimant: claimed actors plus up to
// maxCastSize-claimed of the claimant's own actors, all main characters, a
// copied input with provenance, and a fresh generating story. One
// transaction; the caller enqueues generation only after it commits.
func ClaimAndPersonalize(db *gorm.DB, token, claimantID string, maxCastSize int) (*PersonalizeResult, error) {
	if maxCastSize <= 0 {
		maxCastSize = DefaultMaxCastSize
	}

	var out PersonalizeResult
	err := db.Transaction(func(tx *gorm.DB) error {
		sv, err := resolveClaimToken(tx, token)
		if err != nil {
			return err
		}

		var src stories.Story
		if err := tx.First(&src, "id = ?", sv.StoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "shared story not found")
			}
			return err
		}

		var claimables []actors.Actor
		if err := tx.Model(&actors.Actor{}).
			Joins("JOIN story_actors ON story_actors.actor_id = actors.id").
			Where("story_actors.story_id = ?", src.ID).
			Where("actors.app_id = ?", sv.AppID).
			Where("actors.is_claimable = ? AND actors.account_id <> ?", true, claimantID).
			Find(&claimables).Error; err != nil {
			return err
		}
		if len(claimables) == 0 {
			return apperr.New(apperr.InvalidState, "story has no claimable actors")
		}

		ids := make([]string, len(claimables))
		for i, a := range claimables {
			ids[i] = a.ID
		}
		claimed, err := claimActorsTx(tx, sv, ids, claimantID)
		if err != nil {
			return err
		}

		cast := append([]actors.Actor{}, claimed...)
		if fill := maxCastSize - len(claimed); fill > 0 {
			var own []actors.Actor
			if err := tx.
				Where("account_id = ? AND app_id = ?", claimantID, sv.AppID).
				Where("id NOT IN ?", ids).
				Order("created_at ASC").
				Limit(fill).
				Find(&own).Error; err != nil {
				return err
			}
			cast = append(cast, own...)
		}

		var srcInput stories.StoryInput
		if err := tx.First(&srcInput, "id = ?", src.InputID).Error; err != nil {
			return err
		}
		inputMeta := datatypes.JSONMap{}
		for k, v := range srcInput.Metadata {
			inputMeta[k] = v
		}
		inputMeta[stories.MetaPersonalizedFrom] = src.ID
		inputMeta[stories.MetaSharedViewToken] = sv.Token

		newInput := stories.StoryInput{
			AccountID: claimantID,
			AppID:     sv.AppID,
			Prompt:    srcInput.Prompt,
			Metadata:  inputMeta,
		}
		if err := tx.Create(&newInput).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		story := stories.Story{
			AccountID:       claimantID,
			AppID:           sv.AppID,
			InputID:         newInput.ID,
			Status:          stories.StatusGenerating,
			GenerationCount: 1,
			StartedAt:       &now,
		}
		if err := tx.Create(&story).Error; err != nil {
			return err
		}

		for _, a := range cast {
			row := stories.StoryActor{
				StoryID:         story.ID,
				ActorID:         a.ID,
				IsMainCharacter: true,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		out = PersonalizeResult{Claimed: claimed, Story: story}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
