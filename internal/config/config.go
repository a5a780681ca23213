package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode   string
	Database  DatabaseConfig
	Policy    Policy
	SweepCron string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// Policy holds the circulation rules. It is built once at startup, injected
// into every service constructor and never mutated afterwards.
type Policy struct {
	MaxLoansPerPatron       int     // open borrows allowed per patron
	LoanDays                int     // borrow duration
	MaxRenewals             int     // renewals allowed per borrow
	RenewalExtensionDays    int     // due-date extension per renewal
	OverdueDailyRate        float64 // fine per whole overdue day
	FineDueDays             int     // days until a fine itself is due
	ReservationTTLDays      int     // hold lifetime
	MaxQueueLength          int     // active holds allowed per book
	BorrowFineThreshold     float64 // outstanding fines blocking borrows
	ReserveFineThreshold    float64 // outstanding fines blocking holds
	SuspensionThresholdDays int     // overdue days before the card is suspended
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:   appMode,
		Database:  loadDatabaseConfig(appMode),
		Policy:    loadPolicy(),
		SweepCron: getEnv("SWEEP_CRON", "30 2 * * *"),
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "openshelf"),
	}
}

// loadPolicy loads the circulation policy knobs
func loadPolicy() Policy {
	return Policy{
		MaxLoansPerPatron:       getEnvInt("MAX_LOANS_PER_PATRON", 5),
		LoanDays:                getEnvInt("LOAN_DAYS", 14),
		MaxRenewals:             getEnvInt("MAX_RENEWALS", 2),
		RenewalExtensionDays:    getEnvInt("RENEWAL_EXTENSION_DAYS", 7),
		OverdueDailyRate:        getEnvFloat("OVERDUE_DAILY_RATE", 0.50),
		FineDueDays:             getEnvInt("FINE_DUE_DAYS", 30),
		ReservationTTLDays:      getEnvInt("RESERVATION_TTL_DAYS", 7),
		MaxQueueLength:          getEnvInt("MAX_QUEUE_LENGTH", 10),
		BorrowFineThreshold:     getEnvFloat("BORROW_FINE_THRESHOLD", 10.00),
		ReserveFineThreshold:    getEnvFloat("RESERVE_FINE_THRESHOLD", 25.00),
		SuspensionThresholdDays: getEnvInt("SUSPENSION_THRESHOLD_DAYS", 30),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}
