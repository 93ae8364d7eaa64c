package links

import (
	"net/http"

	"storyshare-app/database"
	"storyshare-app/internal/api/respond"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
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

type RequestLinkRequest struct {
	TargetAccountID string                 `json:"target_account_id"`
	TargetEmail     string                 `json:"target_email"`
	Metadata        map[string]interface{} `json:"metadata"`
}

func RequestLinkHandler(c *gin.Context) {
	accountID, appID, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req RequestLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := RequestLink(database.DB, accountID, req.TargetAccountID, req.TargetEmail, appID,
		datatypes.JSONMap(req.Metadata))
	if err != nil {
		respond.Err(c, err, "Failed to create link request")
		return
	}

	c.JSON(http.StatusCreated, link)
}

type RespondToLinkRequest struct {
	Decision string `json:"decision" binding:"required"`
}

func RespondToLinkHandler(c *gin.Context) {
	id := c.Param("id")

	accountID, _, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req RespondToLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := RespondToLink(database.DB, id, accountID, req.Decision)
	if err != nil {
		respond.Err(c, err, "Failed to respond to link")
		return
	}

	c.JSON(http.StatusOK, link)
}

func UnlinkHandler(c *gin.Context) {
	id := c.Param("id")

	accountID, _, ok := mustIdentity(c)
	if !ok {
		return
	}

	if err := Unlink(database.DB, id, accountID); err != nil {
		respond.Err(c, err, "Failed to unlink")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "unlinked"})
}

func ListLinksHandler(c *gin.Context) {
	accountID, appID, ok := mustIdentity(c)
	if !ok {
		return
	}

	out, err := ListLinks(database.DB, accountID, appID)
	if err != nil {
		respond.Err(c, err, "Failed to load links")
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": out})
}
