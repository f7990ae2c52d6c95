package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"fieldservice-dispatch/internal/platform/db"
	"fieldservice-dispatch/internal/store"
)

// dbtool applies migrations and seeds demo scheduling data for local runs.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	migrationsDir := getEnv("MIGRATIONS_DIR", "migrations")
	log.Println("Applying migrations...")
	if err := store.RunMigrations(databaseURL, migrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	log.Println("Migrations applied.")

	seedPath := getEnv("SEED_PATH", "data/seeds/scheduling.json")
	if _, err := os.Stat(seedPath); err != nil {
		log.Printf("No seed file at %s, skipping seed", seedPath)
		return
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	log.Println("Seeding database...")
	if err := store.SeedFromJSON(ctx, pool, seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
