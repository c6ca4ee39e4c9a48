// Command seed creates the sample contest in the configured postgres
// store. The in-memory store is seeded automatically by the server.
package main

import (
	"context"
	"log"

	"codearena/internal/domain/repository"
	"codearena/internal/platform/config"
	"codearena/internal/platform/database"
	"codearena/internal/seed"
)

func main() {
	config.Load()
	cfg := config.AppConfig

	db, err := database.Connect(cfg.DBConnStr)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate failed: %v", err)
	}

	repo := repository.NewPgContestRepository(db)
	if err := seed.Apply(ctx, repo, cfg.DefaultTimeLimitSeconds, cfg.DefaultMemoryLimitMB); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.Println("sample contest seeded")
}
