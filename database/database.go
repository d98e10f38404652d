package database

import (
	"fmt"
	"os"

	"grabbi-loyalty/models"
	"grabbi-loyalty/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect opens the SQL database. STORE_BACKEND=sqlite selects a local SQLite
// file (SQLITE_PATH); every other backend keeps users in Postgres.
func Connect() (*gorm.DB, error) {
	if os.Getenv("STORE_BACKEND") == "sqlite" {
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "grabbi-loyalty.db"
		}
		db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		// SQLite allows one writer; serialise through a single connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=grabbi_loyalty port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "sqlite" {
		return MigrateSQLite(db)
	}

	// Ensure PostgreSQL has gen_random_uuid() available (pgcrypto extension).
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		return fmt.Errorf("failed to enable pgcrypto extension: %w", err)
	}

	return db.AutoMigrate(
		&models.User{},
		&models.LoyaltyRecord{},
		&models.LoyaltyHistory{},
		&models.LoyaltyItemTried{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderTimelineEntry{},
		&models.Reservation{},
		&models.ReservationTimelineEntry{},
		&models.Notification{},
	)
}

// MigrateSQLite creates the schema with hand-written DDL. AutoMigrate cannot
// be used on SQLite because the models default ids to gen_random_uuid().
func MigrateSQLite(db *gorm.DB) error {
	for _, stmt := range SQLiteSchema {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

func CreateDefaultAdmin(db *gorm.DB) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" {
		adminEmail = "admin@grabbi.com"
	}

	var existingUser models.User
	result := db.Where("email = ?", adminEmail).First(&existingUser)
	if result.Error == nil {
		// Admin already exists
		return nil
	}

	generated := adminPassword == ""
	if generated {
		adminPassword = uuid.NewString()
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:    adminEmail,
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
		Name:     "Admin User",
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	fields := []zap.Field{zap.String("email", adminEmail)}
	if generated {
		fields = append(fields, zap.String("password", adminPassword))
		utils.Logger().Warn("default admin created with a generated password, set ADMIN_PASSWORD", fields...)
		return nil
	}
	utils.Logger().Info("default admin created", fields...)
	return nil
}
