package database

import (
	"errors"
	"os"

	"github.com/mlashkov/wavechat/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func (d *Database) Connect() error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return err
	}

	// Явная join-таблица до AutoMigrate, иначе GORM создаст свою без joined_at
	if err := db.SetupJoinTable(&models.Group{}, "Members", &models.GroupMember{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&models.User{}, "Groups", &models.GroupMember{}); err != nil {
		return err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Message{},
		&models.Reaction{},
	)
	if err != nil {
		return err
	}

	d.db = db

	return nil
}
