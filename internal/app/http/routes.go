package routes

import (
	accountsapi "storyshare-app/internal/api/accounts"
	actorsapi "storyshare-app/internal/api/actors"
	claimsapi "storyshare-app/internal/api/claims"
	linksapi "storyshare-app/internal/api/links"
	sharesapi "storyshare-app/internal/api/shares"
	storiesapi "storyshare-app/internal/api/stories"
	uploadsapi "storyshare-app/internal/api/uploads"
	"storyshare-app/internal/app/http/middleware"
	"storyshare-app/internal/infra/dispatch"
	"storyshare-app/internal/infra/storage"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, dispatcher dispatch.Dispatcher, store storage.Store) {
	claimsapi.Dispatcher = dispatcher
	storiesapi.Dispatcher = dispatcher
	uploadsapi.Store = store

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Token-addressed, no account identity required.
	r.GET("/shared/:token", sharesapi.GetSharedView)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(), middleware.SanitizeAndCleanInputMiddleware())

	auth.GET("/me", accountsapi.GetCurrentAccount)
	auth.PUT("/me", accountsapi.UpdateCurrentAccount)
	auth.DELETE("/me", accountsapi.DeleteCurrentAccount)

	auth.POST("/actors", actorsapi.CreateActor)
	auth.GET("/actors", actorsapi.ListActors)
	auth.GET("/actors/:id", actorsapi.GetActorByID)
	auth.PUT("/actors/:id", actorsapi.UpdateActor)
	auth.DELETE("/actors/:id", actorsapi.DeleteActor)

	auth.POST("/links", linksapi.RequestLinkHandler)
	auth.GET("/links", linksapi.ListLinksHandler)
	auth.POST("/links/:id/respond", linksapi.RespondToLinkHandler)
	auth.DELETE("/links/:id", linksapi.UnlinkHandler)

	auth.POST("/claims", claimsapi.ClaimActorsHandler)
	auth.POST("/claims/personalize", claimsapi.ClaimAndPersonalizeHandler)

	auth.POST("/inputs", storiesapi.CreateInput)
	auth.POST("/stories", storiesapi.CreateStory)
	auth.GET("/stories/:id", storiesapi.GetStoryByID)
	auth.POST("/stories/:id/regenerate", storiesapi.RegenerateHandler)

	auth.POST("/shared", sharesapi.CreateSharedView)

	auth.POST("/uploads", uploadsapi.OpenSessionHandler)
	auth.POST("/uploads/:id/commit", uploadsapi.CommitSessionHandler)
	auth.DELETE("/uploads/:id", uploadsapi.CancelSessionHandler)

	// Dispatcher callbacks
	internal := r.Group("/internal")
	internal.Use(middleware.RequireDispatchSecret())
	internal.POST("/generation/:id/complete", storiesapi.CompleteCallback)
	internal.POST("/generation/:id/fail", storiesapi.FailCallback)
}
