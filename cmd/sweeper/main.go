package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/adapters/persistence/repositories"
	"openshelf/internal/config"
	"openshelf/internal/core/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed demo data (dev only)
	if cfg.IsDev() {
		if err := config.NewSeeder(db).Run(); err != nil {
			log.Printf("⚠️ Warning: Failed to seed demo data: %v", err)
		}
	}

	// Wire the circulation engine
	store := repositories.NewStore(db)
	gate := services.NewEligibilityService(cfg.Policy)
	fines := services.NewFineService(store, cfg.Policy)
	reservations := services.NewReservationService(store, gate, cfg.Policy)
	sweep := services.NewSweepService(store, fines, reservations, cfg.Policy)

	// Run one sweep immediately, then on schedule
	if _, err := sweep.Run(context.Background()); err != nil {
		log.Printf("❌ Initial sweep failed: %v", err)
	}

	scheduler := services.NewSweepScheduler(sweep, cfg.SweepCron)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("❌ Failed to start sweep scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down sweeper...")
}
