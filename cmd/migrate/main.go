package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/you/accountsvc/internal/config"
	"github.com/you/accountsvc/internal/infrastructure/database"
	"github.com/you/accountsvc/internal/infrastructure/repositories"
)

// Applies the users schema and checks the table is reachable
func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Open(cfg.DSN, database.LogLevel(cfg.DBLogLevel))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying sql.DB: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	fmt.Println("✓ Database connection successful")

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run auto-migration: %v", err)
	}
	fmt.Println("✓ AutoMigrate completed successfully")

	var userCount int64
	if err := db.Table("users").Count(&userCount).Error; err != nil {
		log.Fatalf("Failed to query users table: %v", err)
	}
	fmt.Printf("✓ Users table accessible (current count: %d)\n", userCount)

	if !db.Migrator().HasIndex(&repositories.DBUser{}, "idx_users_email") {
		log.Fatalf("Unique email index is missing")
	}
	fmt.Println("✓ Unique email index present")
}
