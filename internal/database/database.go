package database

import (
	"log"
	"os"

	"propdesk/config"
	"propdesk/internal/domain"
	"propdesk/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error), // Only log errors, not every SQL query
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	// Fix existing users with empty username before unique index is created.
	// Assign user_{id} to avoid duplicate key on idx_users_username.
	_ = db.Exec("UPDATE users SET username = CONCAT('user_', id) WHERE username = '' OR username IS NULL")
	return db.AutoMigrate(
		&models.User{},
		&models.BillingCustomer{},
		&models.Invoice{},
		&models.WebhookEvent{},
		&models.Prop{},
		&models.PropResult{},
		&models.UserModel{},
		&models.WatchlistEntry{},
		&models.Notification{},
		&models.AuditLog{},
		&models.SystemSetting{},
	)
}

// SeedAdmin creates the initial admin account from ADMIN_EMAIL and
// ADMIN_PASSWORD. No-op when either is unset or the email is taken.
func SeedAdmin(db *gorm.DB) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	var count int64
	db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[seed] admin password hash: %v", err)
		return
	}
	admin := models.User{
		Username:     "admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("[seed] admin create: %v", err)
		return
	}
	log.Printf("[seed] admin account created (%s)", email)
}
