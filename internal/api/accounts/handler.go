package accounts

import (
	"errors"
	"net/http"

	"storyshare-app/database"
	"storyshare-app/internal/api/respond"
	"storyshare-app/internal/domain/accounts"

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

// GetCurrentAccount returns the caller's account, creating it on first
// authenticated request for this app.
func GetCurrentAccount(c *gin.Context) {
	accountID, appID, ok := mustIdentity(c)
	if !ok {
		return
	}

	var acct accounts.Account
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.First(&acct, "id = ? AND app_id = ?", accountID, appID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		acct = accounts.Account{ID: accountID, AppID: appID, Metadata: datatypes.JSONMap{}}
		if email, exists := c.Get("email"); exists {
			acct.Metadata["email"] = email
		}
		return tx.Create(&acct).Error
	})
	if err != nil {
		respond.Err(c, err, "Failed to load account")
		return
	}

	c.JSON(http.StatusOK, acct)
}

type UpdateAccountRequest struct {
	DisplayName *string                `json:"display_name"`
	Metadata    map[string]interface{} `json:"metadata"`
}

func UpdateCurrentAccount(c *gin.Context) {
	accountID, appID, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var acct accounts.Account
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&acct, "id = ? AND app_id = ?", accountID, appID).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if req.DisplayName != nil {
			updates["display_name"] = *req.DisplayName
		}
		if req.Metadata != nil {
			meta := acct.Metadata
			if meta == nil {
				meta = datatypes.JSONMap{}
			}
			for k, v := range req.Metadata {
				meta[k] = v
			}
			updates["metadata"] = meta
			acct.Metadata = meta
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&accounts.Account{}).
			Where("id = ?", acct.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&acct, "id = ?", acct.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		respond.Err(c, err, "Failed to update account")
		return
	}

	c.JSON(http.StatusOK, acct)
}

// DeleteCurrentAccount soft-deletes via a metadata flag. Accounts are never
// hard-deleted.
func DeleteCurrentAccount(c *gin.Context) {
	accountID, appID, ok := mustIdentity(c)
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var acct accounts.Account
		if err := tx.First(&acct, "id = ? AND app_id = ?", accountID, appID).Error; err != nil {
			return err
		}
		meta := acct.Metadata
		if meta == nil {
			meta = datatypes.JSONMap{}
		}
		meta[accounts.MetaDeleted] = true
		return tx.Model(&accounts.Account{}).
			Where("id = ?", acct.ID).
			Update("metadata", meta).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		respond.Err(c, err, "Failed to delete account")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
