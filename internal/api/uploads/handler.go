package uploads

import (
	"net/http"

	"storyshare-app/database"
	"storyshare-app/internal/api/respond"
	"storyshare-app/internal/infra/storage"

	"github.com/gin-gonic/gin"
)

// Store is wired at route registration.
var Store storage.Store

func mustAccount(c *gin.Context) (string, bool) {
	accountID := c.GetString("account_id")
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return accountID, true
}

type OpenSessionRequest struct {
	Files []FileSpec `json:"files" binding:"required"`
}

func OpenSessionHandler(c *gin.Context) {
	accountID, ok := mustAccount(c)
	if !ok {
		return
	}

	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := OpenSession(database.DB, Store, accountID, req.Files)
	if err != nil {
		respond.Err(c, err, "Failed to open upload session")
		return
	}

	c.JSON(http.StatusCreated, result)
}

type CommitSessionRequest struct {
	OwnerType string `json:"owner_type" binding:"required"`
	OwnerID   string `json:"owner_id" binding:"required"`
}

func CommitSessionHandler(c *gin.Context) {
	sessionID := c.Param("id")

	accountID, ok := mustAccount(c)
	if !ok {
		return
	}

	var req CommitSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	committed, err := CommitSession(database.DB, sessionID, req.OwnerType, req.OwnerID, accountID)
	if err != nil {
		respond.Err(c, err, "Failed to commit upload session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"media": committed})
}

func CancelSessionHandler(c *gin.Context) {
	sessionID := c.Param("id")

	accountID, ok := mustAccount(c)
	if !ok {
		return
	}

	if err := CancelSession(database.DB, Store, sessionID, accountID); err != nil {
		respond.Err(c, err, "Failed to cancel upload session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
