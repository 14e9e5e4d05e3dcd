package database

import (
	"whatsapp-dashboard/internal/config"
	"whatsapp-dashboard/internal/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedTenant bootstraps a first tenant, dashboard user and WhatsApp
// account from SEED_* environment variables. It is a no-op when any
// tenant already exists or the seed config is incomplete.
func SeedTenant(db *gorm.DB, cfg *config.Config) error {
	if cfg.SeedEmail == "" || cfg.SeedPassword == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.Tenant{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		name := cfg.SeedTenantName
		if name == "" {
			name = "Default Tenant"
		}
		tenant := models.Tenant{Name: name}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}

		user := models.User{
			TenantID:     tenant.ID,
			Email:        cfg.SeedEmail,
			PasswordHash: string(hash),
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		if cfg.SeedPhoneNumberID != "" && cfg.SeedAccessToken != "" {
			account := models.WhatsAppAccount{
				TenantID:      tenant.ID,
				PhoneNumberID: cfg.SeedPhoneNumberID,
				AccessToken:   cfg.SeedAccessToken,
			}
			if err := tx.Create(&account).Error; err != nil {
				return err
			}
		}

		log.WithField("tenant_id", tenant.ID).Info("Seeded initial tenant")
		return nil
	})
}
