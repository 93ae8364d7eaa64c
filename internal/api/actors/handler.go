package actors

import (
	"errors"
	"net/http"

	"storyshare-app/database"
	linksapi "storyshare-app/internal/api/links"
	"storyshare-app/internal/api/respond"
	"storyshare-app/internal/domain/actors"
	"storyshare-app/internal/domain/apperr"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
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

type CreateActorRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Type        string                 `json:"type"`
	IsClaimable bool                   `json:"is_claimable"`
	Metadata    map[string]interface{} `json:"metadata"`
}

func CreateActor(c *gin.Context) {
	accountID, appID, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req CreateActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = actors.TypeChild
	}
	if !actors.ValidType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown actor type"})
		return
	}

	a := actors.Actor{
		AccountID:   accountID,
		AppID:       appID,
		Name:        req.Name,
		Type:        req.Type,
		IsClaimable: req.IsClaimable,
		Metadata:    datatypes.JSONMap(req.Metadata),
	}
	if err := database.DB.Create(&a).Error; err != nil {
		respond.Err(c, err, "Failed to create actor")
		return
	}

	c.JSON(http.StatusCreated, a)
}

// ListActors returns every actor accessible to the caller: its own, plus
// non-claimable actors of accepted-linked accounts.
func ListActors(c *gin.Context) {
	accountID, appID, ok := mustIdentity(c)
	if !ok {
		return
	}

	out, err := linksapi.ListAccessibleActors(database.DB, accountID, appID)
	if err != nil {
		respond.Err(c, err, "Failed to load actors")
		return
	}

	c.JSON(http.StatusOK, gin.H{"actors": out})
}

func GetActorByID(c *gin.Context) {
	id := c.Param("id")

	accountID, appID, ok := mustIdentity(c)
	if !ok {
		return
	}

	var a actors.Actor
	err := linksapi.AccessibleActorQuery(database.DB, accountID, appID).
		Where("actors.id = ?", id).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
			return
		}
		respond.Err(c, err, "Failed to load actor")
		return
	}

	c.JSON(http.StatusOK, a)
}

type UpdateActorRequest struct {
	Name        *string                `json:"name"`
	Type        *string                `json:"type"`
	IsClaimable *bool                  `json:"is_claimable"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// UpdateActor mutates an owned actor. Ownership itself only changes through
// the claim engine.
func UpdateActor(c *gin.Context) {
	id := c.Param("id")

	accountID, _, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req UpdateActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var a actors.Actor
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&a, "id = ? AND account_id = ?", id, accountID).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Type != nil {
			if !actors.ValidType(*req.Type) {
				return apperr.New(apperr.InvalidArgument, "unknown actor type")
			}
			updates["type"] = *req.Type
		}
		if req.IsClaimable != nil {
			updates["is_claimable"] = *req.IsClaimable
		}
		if req.Metadata != nil {
			meta := a.Metadata
			if meta == nil {
				meta = datatypes.JSONMap{}
			}
			for k, v := range req.Metadata {
				meta[k] = v
			}
			updates["metadata"] = meta
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&actors.Actor{}).
			Where("id = ? AND account_id = ?", a.ID, accountID).
			Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&a, "id = ?", a.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
			return
		}
		respond.Err(c, err, "Failed to update actor")
		return
	}

	c.JSON(http.StatusOK, a)
}

func DeleteActor(c *gin.Context) {
	id := c.Param("id")

	accountID, _, ok := mustIdentity(c)
	if !ok {
		return
	}

	res := database.DB.Delete(&actors.Actor{}, "id = ? AND account_id = ?", id, accountID)
	if res.Error != nil {
		respond.Err(c, res.Error, "Failed to delete actor")
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
