// Command migrate runs schema operations against the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"subjecthub/internal/config"
	"subjecthub/internal/database"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|down|status|auto>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dialector, err := database.Dialector(cfg)
	if err != nil {
		return err
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	if cmd != "auto" && cfg.DBDriver != "postgres" {
		return fmt.Errorf("%s requires DB_DRIVER=postgres; use \"auto\" for %s", cmd, cfg.DBDriver)
	}

	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, sqlDB); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "down":
		if err := database.RollbackMigration(ctx, sqlDB); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Println("rolled back latest migration")
	case "status":
		if err := database.MigrationStatus(ctx, sqlDB); err != nil {
			return fmt.Errorf("migration status failed: %w", err)
		}
	case "auto":
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("auto migration failed: %w", err)
		}
		log.Println("automigrations applied")
	default:
		return usage()
	}
	return nil
}
