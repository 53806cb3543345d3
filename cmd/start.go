package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rhabibp/stremio-panel/core/apperr"
	"github.com/rhabibp/stremio-panel/core/config"
	"github.com/rhabibp/stremio-panel/core/database"
	"github.com/rhabibp/stremio-panel/core/loader"
	"github.com/rhabibp/stremio-panel/core/logger"
	authmw "github.com/rhabibp/stremio-panel/core/middleware/auth"
	"github.com/rhabibp/stremio-panel/core/middleware/rayid"
	"github.com/rhabibp/stremio-panel/core/models"
	"github.com/rhabibp/stremio-panel/core/stremio"
	"github.com/rhabibp/stremio-panel/core/token"

	"github.com/rhabibp/stremio-panel/feature/accounts"
	"github.com/rhabibp/stremio-panel/feature/addons"
	"github.com/rhabibp/stremio-panel/feature/auth"
	"github.com/rhabibp/stremio-panel/feature/pinauth"
	"github.com/rhabibp/stremio-panel/feature/resellers"

	_ "github.com/rhabibp/stremio-panel/docs/swagger"
)

// @title Stremio Panel API
// @version 1.0
// @description API for managing Stremio accounts, addons and resellers.
// @host localhost:5000
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the panel server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// Tokens signed with a guessable secret are worthless.
		if cfg.Auth.Secret == "" {
			logg.Fatal("auth.jwt_secret must be set")
		}

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}
		err = db.AutoMigrate(&models.Account{}, &models.Addon{}, &pinauth.PinSession{})
		if err != nil {
			logg.Fatal("Failed to migrate database", zap.Error(err))
		}
		logg.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

		// 4. Shared services
		issuer := token.NewIssuer(cfg.Auth)
		api := stremio.NewClient(cfg.Stremio)
		reconciler := stremio.NewReconciler(api)
		authenticate := authmw.New(authmw.Config{DB: db, Issuer: issuer})

		// 5. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We log our own startup message
			ErrorHandler:          apperr.ErrorHandler,
		})

		// Middleware Registration
		// RayID first so everything downstream is traceable.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		app.Get("/api/health", func(c *fiber.Ctx) error {
			dbStatus := "connected"
			if conn, err := db.DB(); err != nil || conn.Ping() != nil {
				dbStatus = "disconnected"
			}
			return c.JSON(fiber.Map{
				"status":    "ok",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
				"services": fiber.Map{
					"api":      "running",
					"database": dbStatus,
				},
			})
		})

		// 6. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(auth.NewFeature(db, api, issuer, authenticate, logg))
		mgr.Register(accounts.NewFeature(db, api, reconciler, authenticate, logg))
		mgr.Register(resellers.NewFeature(db, authenticate, logg))
		mgr.Register(addons.NewFeature(db, api, reconciler, authenticate, logg))
		mgr.Register(pinauth.NewFeature(db, api, issuer, authenticate, logg))

		if err := mgr.LoadAll(app.Group("/api")); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 8. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
