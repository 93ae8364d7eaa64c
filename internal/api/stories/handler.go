package stories

import (
	"errors"
	"net/http"

	"storyshare-app/database"
	"storyshare-app/internal/api/respond"
	"storyshare-app/internal/domain/stories"
	"storyshare-app/internal/infra/dispatch"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Dispatcher is wired at route registration.
var Dispatcher dispatch.Dispatcher

func mustIdentity(c *gin.Context) (accountID, appID string, ok bool) {
	accountID = c.GetString("account_id")
	appID = c.GetString("app_id")
	if accountID == "" || appID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", "", false
	}
	return accountID, appID, true
}

func enqueue(storyID, inputID string, opts dispatch.Options) {
	if Dispatcher == nil {
		return
	}
	if err := Dispatcher.EnqueueGeneration(storyID, inputID, opts); err != nil {
		log.Error().Err(err).
			Str("story_id", storyID).
			Msg("generation enqueue failed")
	}
}

type CreateInputRequest struct {
	Prompt   string                 `json:"prompt" binding:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}

func CreateInput(c *gin.Context) {
	accountID, appID, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req CreateInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := stories.StoryInput{
		AccountID: accountID,
		AppID:     appID,
		Prompt:    req.Prompt,
		Metadata:  datatypes.JSONMap(req.Metadata),
	}
	if err := database.DB.Create(&input).Error; err != nil {
		respond.Err(c, err, "Failed to create input")
		return
	}

	c.JSON(http.StatusCreated, input)
}

type CreateStoryRequest struct {
	InputID string `json:"input_id" binding:"required"`
}

func CreateStory(c *gin.Context) {
	accountID, _, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	story, err := StartGeneration(database.DB, req.InputID, accountID)
	if err != nil {
		respond.Err(c, err, "Failed to start generation")
		return
	}

	enqueue(story.ID, story.InputID, dispatch.Options{})

	c.JSON(http.StatusCreated, story)
}

func GetStoryByID(c *gin.Context) {
	id := c.Param("id")

	accountID, _, ok := mustIdentity(c)
	if !ok {
		return
	}

	var story stories.Story
	err := database.DB.
		Preload("Input").
		Preload("Cast").
		Preload("Pages", func(db *gorm.DB) *gorm.DB {
			return db.Order("page_number ASC")
		}).
		First(&story, "id = ? AND account_id = ?", id, accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Story not found"})
			return
		}
		respond.Err(c, err, "Failed to load story")
		return
	}

	c.JSON(http.StatusOK, story)
}

func RegenerateHandler(c *gin.Context) {
	id := c.Param("id")

	accountID, _, ok := mustIdentity(c)
	if !ok {
		return
	}

	story, err := Regenerate(database.DB, id, accountID)
	if err != nil {
		respond.Err(c, err, "Failed to regenerate story")
		return
	}

	enqueue(story.ID, story.InputID, dispatch.Options{Regenerate: true})

	c.JSON(http.StatusOK, story)
}

// Dispatcher callbacks. Guarded by RequireDispatchSecret, not account auth.

type CompleteCallbackRequest struct {
	Generation int              `json:"generation" binding:"required"`
	Result     CompletionResult `json:"result"`
}

func CompleteCallback(c *gin.Context) {
	id := c.Param("id")

	var req CompleteCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	story, err := MarkCompleted(database.DB, id, req.Generation, req.Result)
	if err != nil {
		respond.Err(c, err, "Failed to record completion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": story.Status})
}

type FailCallbackRequest struct {
	Generation int    `json:"generation" binding:"required"`
	Reason     string `json:"reason"`
}

func FailCallback(c *gin.Context) {
	id := c.Param("id")

	var req FailCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	story, err := MarkFailed(database.DB, id, req.Generation, req.Reason)
	if err != nil {
		respond.Err(c, err, "Failed to record failure")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": story.Status})
}
