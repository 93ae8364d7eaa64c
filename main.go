package main

import (
	"time"

	"storyshare-app/config"
	"storyshare-app/database"
	routes "storyshare-app/internal/app/http"
	"storyshare-app/internal/infra/dispatch"
	"storyshare-app/internal/infra/storage"
	"storyshare-app/internal/platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	database.InitDB()

	appLog := logger.New("storyshare")
	log.Logger = appLog

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	var dispatcher dispatch.Dispatcher
	if config.DISPATCH_URL != "" {
		dispatcher = dispatch.NewHTTP(config.DISPATCH_URL, config.DISPATCH_SECRET, appLog)
	} else {
		appLog.Warn().Msg("DISPATCH_URL not set; generation jobs will not be enqueued")
		dispatcher = dispatch.Func(func(storyID, inputID string, opts dispatch.Options) error {
			appLog.Info().Str("story_id", storyID).Msg("generation enqueue skipped")
			return nil
		})
	}

	store := storage.NewKeyed(config.STORAGE_BASE_URL)

	routes.RegisterRoutes(r, dispatcher, store)

	if err := r.Run(":" + config.PORT); err != nil {
		appLog.Fatal().Err(err).Msg("server exited")
	}
}
