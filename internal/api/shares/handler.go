package shares

import (
	"errors"
	"net/http"
	"time"

	"storyshare-app/database"
	"storyshare-app/internal/api/respond"
	"storyshare-app/internal/domain/apperr"
	"storyshare-app/internal/domain/shares"
	"storyshare-app/internal/domain/stories"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func mustIdentity(c *gin.Context) (accountID, appID string, ok bool) {
	accountID = c.GetString("account_id")
	appID = c.GetString("app_id")
	if accountID == "" || appID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", "", false
	}
	return accountID, appID, true
}

type CreateSharedViewRequest struct {
	StoryID            string `json:"story_id" binding:"required"`
	CanClaimCharacters bool   `json:"can_claim_characters"`
	CanRepersonalize   bool   `json:"can_repersonalize"`
	CanDownload        bool   `json:"can_download"`
	TTLHours           int    `json:"ttl_hours"`
}

// CreateSharedView issues a share token for a story the caller owns.
func CreateSharedView(c *gin.Context) {
	accountID, appID, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req CreateSharedViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var view shares.SharedView
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var story stories.Story
		if err := tx.First(&story, "id = ? AND app_id = ?", req.StoryID, appID).Error; err != nil {
			return err
		}
		if story.AccountID != accountID {
			return apperr.New(apperr.Forbidden, "story belongs to another account")
		}

		view = shares.SharedView{
			Token:              uuid.NewString(),
			StoryID:            story.ID,
			AppID:              appID,
			CreatedBy:          accountID,
			CanView:            true,
			CanClaimCharacters: req.CanClaimCharacters,
			CanRepersonalize:   req.CanRepersonalize,
			CanDownload:        req.CanDownload,
		}
		if req.TTLHours > 0 {
			exp := time.Now().UTC().Add(time.Duration(req.TTLHours) * time.Hour)
			view.ExpiresAt = &exp
		}
		return tx.Create(&view).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Story not found"})
			return
		}
		respond.Err(c, err, "Failed to create shared view")
		return
	}

	c.JSON(http.StatusCreated, view)
}

// GetSharedView resolves a token to the shared story. No account identity is
// required; the token is the grant.
func GetSharedView(c *gin.Context) {
	token := c.Param("token")

	var view shares.SharedView
	if err := database.DB.First(&view, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Shared view not found"})
			return
		}
		respond.Err(c, err, "Failed to load shared view")
		return
	}
	if view.Expired(time.Now()) || !view.CanView {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shared view not found"})
		return
	}

	var story stories.Story
	err := database.DB.
		Preload("Cast").
		Preload("Pages", func(db *gorm.DB) *gorm.DB {
			return db.Order("page_number ASC")
		}).
		First(&story, "id = ?", view.StoryID).Error
	if err != nil {
		respond.Err(c, err, "Failed to load shared story")
		return
	}

	c.JSON(http.StatusOK, gin.H{"shared_view": view, "story": story})
}
