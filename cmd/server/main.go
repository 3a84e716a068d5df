package main

import (
	"log"

	"iap-verification-api/internal/api"
	"iap-verification-api/internal/config"
	"iap-verification-api/internal/database"
	"iap-verification-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration once; it is read-only from here on.
	cfg := config.Load()

	// Initialize logging
	logging.InitLogging(cfg.Mode)
	defer logging.Sync()

	// Initialize database
	if err := database.InitDatabase(cfg); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, cfg)

	// Start server
	logging.Infof("Starting server on port %s", cfg.Port)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
