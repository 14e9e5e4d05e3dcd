package database

import (
	"whatsapp-dashboard/internal/models"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to PostgreSQL")
	}

	log.Info("Connected to PostgreSQL")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.WhatsAppAccount{},
		&models.Contact{},
		&models.Conversation{},
		&models.Message{},
		&models.AIAssistant{},
		&models.QuickReply{},
	)
	if err != nil {
		return errors.Wrap(err, "auto-migration failed")
	}

	log.Info("Database migration completed")
	return nil
}
