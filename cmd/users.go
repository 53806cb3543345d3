package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/rhabibp/stremio-panel/core/config"
	"github.com/rhabibp/stremio-panel/core/database"
	"github.com/rhabibp/stremio-panel/core/logger"
	"github.com/rhabibp/stremio-panel/core/models"
)

// usersCmd groups account batch operations.
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Batch account operations",
}

var exportRole string

// usersExportCmd dumps accounts to a CSV file.
var usersExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export accounts to CSV",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runUsersExport(args[0], exportRole)
	},
}

// usersImportCmd creates accounts from a CSV file with columns
// username,email,role,password. Invalid rows are skipped, failures are
// reported per row.
var usersImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import accounts from CSV",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runUsersImport(args[0])
	},
}

func init() {
	usersExportCmd.Flags().StringVar(&exportRole, "role", "", "only export accounts with this role")
	usersCmd.AddCommand(usersExportCmd)
	usersCmd.AddCommand(usersImportCmd)
	RootCmd.AddCommand(usersCmd)
}

func openBatchDB() (*gorm.DB, *zap.Logger) {
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
	return db, logg
}

func runUsersExport(path, role string) {
	db, logg := openBatchDB()

	q := db.Order("id")
	if role != "" {
		if !models.ValidRole(role) {
			logg.Fatal("Unknown role", zap.String("role", role))
		}
		q = q.Where("role = ?", role)
	}
	var accounts []models.Account
	if err := q.Find(&accounts).Error; err != nil {
		logg.Fatal("Failed to query accounts", zap.Error(err))
	}

	f, err := os.Create(path)
	if err != nil {
		logg.Fatal("Failed to create file", zap.Error(err))
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"id", "username", "email", "role", "createdAt", "stremioId"})
	for _, account := range accounts {
		stremioID := ""
		if account.StremioUserID != nil {
			stremioID = *account.StremioUserID
		}
		_ = w.Write([]string{
			strconv.FormatUint(uint64(account.ID), 10),
			account.Username,
			account.Email,
			account.Role,
			account.CreatedAt.Format(time.RFC3339),
			stremioID,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		logg.Fatal("Failed to write CSV", zap.Error(err))
	}
	logg.Info("Accounts exported",
		zap.Int("count", len(accounts)),
		zap.String("file", path))
}

func runUsersImport(path string) {
	db, logg := openBatchDB()

	f, err := os.Open(path)
	if err != nil {
		logg.Fatal("Failed to open file", zap.Error(err))
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		logg.Fatal("Failed to read CSV", zap.Error(err))
	}

	imported, failed := 0, 0
	for i, row := range rows {
		if i == 0 {
			// header
			continue
		}
		if len(row) < 4 {
			logg.Warn("Skipping row: invalid format", zap.Int("line", i+1))
			failed++
			continue
		}
		username, email, role, password := row[0], row[1], row[2], row[3]
		if !models.ValidRole(role) {
			logg.Warn("Skipping row: unknown role",
				zap.Int("line", i+1),
				zap.String("role", role))
			failed++
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			logg.Fatal("Failed to hash password", zap.Error(err))
		}
		account := models.Account{
			Username:     username,
			Email:        email,
			PasswordHash: string(hash),
			Role:         role,
			Active:       true,
		}
		if err := db.Create(&account).Error; err != nil {
			failed++
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				logg.Warn("Skipping row: account already exists",
					zap.Int("line", i+1),
					zap.String("username", username))
			} else {
				logg.Warn("Failed to import account",
					zap.Int("line", i+1),
					zap.String("username", username),
					zap.Error(err))
			}
			continue
		}
		imported++
	}

	logg.Info("Import completed",
		zap.Int("imported", imported),
		zap.Int("failed", failed))
}
