package stories

import (
	"errors"
	"time"

	"storyshare-app/internal/domain/apperr"
	"storyshare-app/internal/domain/stories"

	"gorm.io/gorm"
)

type PageResult struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	ImageKey   string `json:"image_key,omitempty"`
}

type CompletionResult struct {
	Pages      []PageResult `json:"pages"`
	TokensUsed int64        `json:"tokens_used"`
	CostCents  int64        `json:"cost_cents"`
}

// StartGeneration creates a story in generating for the given input. The
// caller enqueues the generation job after the transaction commits.
func StartGeneration(db *gorm.DB, inputID, accountID string) (*stories.Story, error) {
	var story stories.Story
	err := db.Transaction(func(tx *gorm.DB) error {
		var input stories.StoryInput
		if err := tx.First(&input, "id = ?", inputID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "input not found")
			}
			return err
		}
		if accountID != "" && input.AccountID != accountID {
			return apperr.New(apperr.Forbidden, "input belongs to another account")
		}

		now := time.Now().UTC()
		story = stories.Story{
			AccountID:       input.AccountID,
			AppID:           input.AppID,
			InputID:         input.ID,
			Status:          stories.StatusGenerating,
			GenerationCount: 1,
			StartedAt:       &now,
		}
		return tx.Create(&story).Error
	})
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// MarkCompleted records the result of a generation attempt. The caller must
// name the attempt it is reporting on. A stale signal, where the story is
// already terminal or the counter moved on after a regenerate, is a no-op,
// not an error.
func MarkCompleted(db *gorm.DB, storyID string, generation int, result CompletionResult) (*stories.Story, error) {
	if generation < 1 {
		return nil, apperr.New(apperr.InvalidArgument, "generation counter is required")
	}

	var story stories.Story
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&story, "id = ?", storyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "story not found")
			}
			return err
		}
		if stale(&story, generation) {
			return nil
		}

		now := time.Now().UTC()
		if err := tx.Model(&stories.Story{}).
			Where("id = ?", story.ID).
			Updates(map[string]interface{}{
				"status":       stories.StatusCompleted,
				"completed_at": now,
				"fail_reason":  nil,
				"tokens_used":  result.TokensUsed,
				"cost_cents":   result.CostCents,
			}).Error; err != nil {
			return err
		}

		for _, p := range result.Pages {
			page := stories.StoryPage{
				StoryID:    story.ID,
				PageNumber: p.PageNumber,
				Text:       p.Text,
				ImageKey:   p.ImageKey,
			}
			if err := tx.Create(&page).Error; err != nil {
				return err
			}
		}

		story.Status = stories.StatusCompleted
		story.CompletedAt = &now
		story.TokensUsed = result.TokensUsed
		story.CostCents = result.CostCents
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// MarkFailed records a failed generation attempt, with the same counter
// requirement and stale-signal guard as MarkCompleted.
func MarkFailed(db *gorm.DB, storyID string, generation int, reason string) (*stories.Story, error) {
	if generation < 1 {
		return nil, apperr.New(apperr.InvalidArgument, "generation counter is required")
	}

	var story stories.Story
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&story, "id = ?", storyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "story not found")
			}
			return err
		}
		if stale(&story, generation) {
			return nil
		}

		now := time.Now().UTC()
		if err := tx.Model(&stories.Story{}).
			Where("id = ?", story.ID).
			Updates(map[string]interface{}{
				"status":       stories.StatusFailed,
				"completed_at": now,
				"fail_reason":  reason,
			}).Error; err != nil {
			return err
		}

		story.Status = stories.StatusFailed
		story.CompletedAt = &now
		story.FailReason = &reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// Regenerate reopens a terminal story: derived pages are deleted, accounting
// cleared, the generation counter incremented, and generating re-stamped with
// a fresh started_at. The caller enqueues after commit.
func Regenerate(db *gorm.DB, storyID, accountID string) (*stories.Story, error) {
	var story stories.Story
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&story, "id = ?", storyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "story not found")
			}
			return err
		}
		if accountID != "" && story.AccountID != accountID {
			return apperr.New(apperr.Forbidden, "story belongs to another account")
		}
		if !stories.Terminal(story.Status) {
			return apperr.New(apperr.InvalidState, "story is not in a terminal state")
		}

		if err := tx.Where("story_id = ?", story.ID).
			Delete(&stories.StoryPage{}).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Model(&stories.Story{}).
			Where("id = ?", story.ID).
			Updates(map[string]interface{}{
				"status":           stories.StatusGenerating,
				"generation_count": gorm.Expr("generation_count + 1"),
				"started_at":       now,
				"completed_at":     nil,
				"fail_reason":      nil,
				"tokens_used":      0,
				"cost_cents":       0,
			}).Error; err != nil {
			return err
		}

		return tx.First(&story, "id = ?", story.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// stale reports whether a completion signal refers to an attempt that is no
// longer current.
func stale(story *stories.Story, generation int) bool {
	return generation != story.GenerationCount || stories.Terminal(story.Status)
}
