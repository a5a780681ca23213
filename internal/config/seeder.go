package config

import (
	"log"
	"time"

	"openshelf/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedCatalog(); err != nil {
		log.Printf("⚠️ Catalog seeder skipped: %v", err)
	}
	if err := s.seedPatrons(); err != nil {
		log.Printf("⚠️ Patron seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedCatalog seeds a small demo catalog
// This is for development/testing only
func (s *Seeder) seedCatalog() error {
	var count int64
	s.db.Model(&models.Book{}).Count(&count)
	if count > 0 {
		return nil // Catalog already seeded
	}

	books := []models.Book{
		{Title: "The Go Programming Language", Author: "Donovan & Kernighan", ISBN: "9780134190440"},
		{Title: "Designing Data-Intensive Applications", Author: "Martin Kleppmann", ISBN: "9781449373320"},
		{Title: "A Wizard of Earthsea", Author: "Ursula K. Le Guin", ISBN: "9780547773742"},
		{Title: "The Name of the Rose", Author: "Umberto Eco", ISBN: "9780544176560"},
		{Title: "Invisible Cities", Author: "Italo Calvino", ISBN: "9780156453806"},
	}

	return s.db.Create(&books).Error
}

// seedPatrons seeds demo patrons with active cards
func (s *Seeder) seedPatrons() error {
	var count int64
	s.db.Model(&models.Patron{}).Count(&count)
	if count > 0 {
		return nil // Patrons already seeded
	}

	expiry := time.Now().AddDate(1, 0, 0)
	patrons := []models.Patron{
		{
			Name:  "Ada Reader",
			Email: "ada@example.org",
			Card:  &models.LibraryCard{Number: "LC-0001", Status: models.CardActive, ExpiresAt: expiry},
		},
		{
			Name:  "Ben Browser",
			Email: "ben@example.org",
			Card:  &models.LibraryCard{Number: "LC-0002", Status: models.CardActive, ExpiresAt: expiry},
		},
	}

	return s.db.Create(&patrons).Error
}
