package claims

import (
	"net/http"

	"storyshare-app/database"
	"storyshare-app/internal/api/respond"
	"storyshare-app/internal/infra/dispatch"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Dispatcher is wired at route registration. Enqueues run only after the
// personalize transaction has committed.
var Dispatcher dispatch.Dispatcher

func mustAccount(c *gin.Context) (string, bool) {
	accountID := c.GetString("account_id")
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return accountID, true
}

type ClaimRequest struct {
	Token    string   `json:"token" binding:"required"`
	ActorIDs []string `json:"actor_ids" binding:"required"`
}

func ClaimActorsHandler(c *gin.Context) {
	accountID, ok := mustAccount(c)
	if !ok {
		return
	}

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claimed, err := ClaimActors(database.DB, req.Token, req.ActorIDs, accountID)
	if err != nil {
		respond.Err(c, err, "Failed to claim actors")
		return
	}

	c.JSON(http.StatusOK, gin.H{"claimed_actors": claimed})
}

type PersonalizeRequest struct {
	Token       string `json:"token" binding:"required"`
	MaxCastSize int    `json:"max_cast_size"`
}

func ClaimAndPersonalizeHandler(c *gin.Context) {
	accountID, ok := mustAccount(c)
	if !ok {
		return
	}

	var req PersonalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := ClaimAndPersonalize(database.DB, req.Token, accountID, req.MaxCastSize)
	if err != nil {
		respond.Err(c, err, "Failed to personalize story")
		return
	}

	// The claim and the new story are already committed; an enqueue failure
	// is logged for reconciliation, not surfaced.
	if Dispatcher != nil {
		if err := Dispatcher.EnqueueGeneration(result.Story.ID, result.Story.InputID, dispatch.Options{}); err != nil {
			log.Error().Err(err).
				Str("story_id", result.Story.ID).
				Msg("generation enqueue failed after personalize")
		}
	}

	c.JSON(http.StatusCreated, result)
}
