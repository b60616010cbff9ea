package main

import (
	"os"

	"github.com/oggyb/birdie/internal/config"
	"github.com/oggyb/birdie/internal/db"
	"github.com/oggyb/birdie/internal/logger"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	log.Info("Seeding completed.")
}
