package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	secret := os.Getenv("SEED_CLIENT_SECRET")
	if secret == "" {
		secret = "local-dev-secret-please-change"
	}
	if err := seed(db, secret); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Seeding completed successfully!")
}
