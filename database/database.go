package database

import (
	"log"
	"os"

	"storyshare-app/internal/domain/accounts"
	"storyshare-app/internal/domain/actors"
	"storyshare-app/internal/domain/links"
	"storyshare-app/internal/domain/media"
	"storyshare-app/internal/domain/shares"
	"storyshare-app/internal/domain/stories"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	DB = db

	if err := Migrate(DB); err != nil {
		log.Fatal("AutoMigrate error:", err)
	}
}

// Migrate creates or updates the schema for every domain model. Shared with
// the test database setup.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&accounts.Account{},

		&actors.Actor{},
		&links.AccountLink{},
		&shares.SharedView{},

		&stories.StoryInput{},
		&stories.Story{},
		&stories.StoryActor{},
		&stories.StoryPage{},

		&media.Media{},
	)
}
