package main

import (
	"flag"
	"os"
	"time"

	"github.com/d1freeez14/neuro-tender/internal/config"
	"github.com/d1freeez14/neuro-tender/internal/logging"
	"github.com/d1freeez14/neuro-tender/internal/usecase"
)

func main() {
	maxAgeDays := flag.Int("max-age-days", 90, "remove downloaded documents older than this many days")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.Logging)

	cleaner := usecase.NewCleaner(cfg.Storage.DataDir, time.Duration(*maxAgeDays)*24*time.Hour,
		logger.With("component", "cleaner"))

	stats, err := cleaner.Sweep(time.Now())
	if err != nil {
		logger.Error("sweep failed", "error", err)
		os.Exit(1)
	}
	if stats.Errors > 0 {
		os.Exit(1)
	}
}
