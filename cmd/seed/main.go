// Command seed fills the database with demo subjects.
package main

import (
	"context"
	"flag"
	"log"

	"subjecthub/internal/config"
	"subjecthub/internal/database"
	"subjecthub/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numSubjects := flag.Int("subjects", 24, "Number of subjects to create")
	shouldClean := flag.Bool("clean", false, "Remove existing users and subjects first")
	demoUser := flag.String("demo-user", "demo", "Username of the demo account (empty to skip)")
	demoPassword := flag.String("demo-password", "demo-password", "Password of the demo account")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, *randSeed)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	subjects, err := s.Subjects(ctx, *numSubjects)
	if err != nil {
		log.Fatalf("Subject seeding failed: %v", err)
	}
	log.Printf("Created %d subjects", len(subjects))

	if *demoUser != "" {
		user, err := s.DemoUser(ctx, *demoUser, *demoPassword)
		if err != nil {
			log.Fatalf("Demo user seeding failed: %v", err)
		}
		log.Printf("Demo account %q is ready", user.Username)
	}

	users, err := s.UserCount(ctx)
	if err != nil {
		log.Fatalf("Counting users failed: %v", err)
	}
	log.Printf("Database holds %d users", users)
}
