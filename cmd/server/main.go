package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/rvelasco/contable-server/internal/api"
	"github.com/rvelasco/contable-server/internal/config"
	"github.com/rvelasco/contable-server/internal/repository"
	"github.com/rvelasco/contable-server/internal/service"
)

func main() {
	// Load .env if present; real env vars win
	_ = godotenv.Load()

	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer db.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create service
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret)

	// Seed the permission catalog and master account
	if cfg.Auth.SeedMasterAdmin {
		if err := svc.EnsureMasterAdmin(context.Background(), cfg.Auth.MasterUser, cfg.Auth.MasterPassword); err != nil {
			log.Fatalf("Failed to seed master admin: %v", err)
		}
	}

	// Create API handler
	handler := api.NewHandler(svc)

	// Set up Gin router
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
