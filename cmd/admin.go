package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/rhabibp/stremio-panel/core/config"
	"github.com/rhabibp/stremio-panel/core/database"
	"github.com/rhabibp/stremio-panel/core/logger"
	"github.com/rhabibp/stremio-panel/core/models"
)

// adminCmd groups operator account management.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage operator accounts",
}

// adminCreateCmd bootstraps (or repairs) an admin account directly in the
// database, for first-run setup and lockout recovery.
var adminCreateCmd = &cobra.Command{
	Use:   "create [username] [email] [password]",
	Short: "Create or update an admin account",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runAdminCreate(args[0], args[1], args[2])
	},
}

func init() {
	adminCmd.AddCommand(adminCreateCmd)
	RootCmd.AddCommand(adminCmd)
}

func runAdminCreate(username, email, password string) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logg.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Account{}); err != nil {
		logg.Fatal("Failed to migrate database", zap.Error(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logg.Fatal("Failed to hash password", zap.Error(err))
	}

	var account models.Account
	err = db.Where("username = ? OR email = ?", username, email).First(&account).Error
	switch {
	case err == nil:
		account.Username = username
		account.Email = email
		account.PasswordHash = string(hash)
		account.Role = models.RoleAdmin
		account.Active = true
		if err := db.Save(&account).Error; err != nil {
			logg.Fatal("Failed to update account", zap.Error(err))
		}
		logg.Info("Existing account promoted to admin",
			zap.Uint("id", account.ID),
			zap.String("username", account.Username))
	case errors.Is(err, gorm.ErrRecordNotFound):
		account = models.Account{
			Username:     username,
			Email:        email,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
			Active:       true,
		}
		if err := db.Create(&account).Error; err != nil {
			logg.Fatal("Failed to create account", zap.Error(err))
		}
		logg.Info("Admin account created",
			zap.Uint("id", account.ID),
			zap.String("username", account.Username))
	default:
		logg.Fatal("Failed to look up account", zap.Error(err))
	}
}
