package main

import (
	"perfect_vault/internal/config" // Custom import path (Config)
	"perfect_vault/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg, err := config.LoadDatabaseConfig() // Only DATABASE_URL is needed
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	gdb, err := db.Open(cfg.DatabaseURL) // Connect to DATABASE_URL
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close(gdb)
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("%v", err)
	}
}
