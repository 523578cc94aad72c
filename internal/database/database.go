package database

import (
	"fmt"

	"github.com/placelist/backend/internal/config"
	"github.com/placelist/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	constraint := `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1
    FROM pg_constraint
    WHERE conname = 'follow_no_self_check'
  ) THEN
    ALTER TABLE follows
    ADD CONSTRAINT follow_no_self_check
    CHECK (follower_id != followed_id);
  END IF;
END $$;`

	if err := db.Exec(constraint).Error; err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema. Shared with the test harness, which
// runs it against in-memory sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.List{},
		&models.ListCollaborator{},
		&models.Place{},
		&models.Follow{},
		&models.Notification{},
	)
}
