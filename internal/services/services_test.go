package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/placelist/backend/internal/database"
	"github.com/placelist/backend/internal/models"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating models: %v", err)
	}

	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, externalUID *string, username *string) *models.User {
	t.Helper()

	user := &models.User{
		Email:       email,
		ExternalUID: externalUID,
		Username:    username,
		DisplayName: "Test User",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	return user
}
