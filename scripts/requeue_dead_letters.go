// Moves dead-lettered outbox jobs back to the pending list, or lists them.
// The running service picks requeued jobs up on its next poll.
//
// Usage: go run scripts/requeue_dead_letters.go [-list] [-limit 100]

package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"watchlearn/internal/config"
	"watchlearn/internal/outbox"
	"watchlearn/pkg/database"
	"watchlearn/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	list := flag.Bool("list", false, "print dead letters instead of requeueing them")
	limit := flag.Int64("limit", 100, "dead letters to print with -list")
	flag.Parse()

	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("Cannot read config file: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Cannot parse config file: %v", err)
	}
	if cfg.Outbox.Journal == "memory" {
		log.Fatal("The in-memory journal lives inside the server process; use POST /api/admin/outbox/requeue")
	}

	logger.InitLogger(&cfg)
	defer logger.Log.Sync()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	defer rdb.Close()

	journal := outbox.NewRedisJournal(rdb)
	ctx := context.Background()

	if *list {
		dead, err := journal.Dead(ctx, *limit)
		if err != nil {
			log.Fatalf("Reading dead letters failed: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		for _, job := range dead {
			enc.Encode(job)
		}
		return
	}

	n, err := journal.Requeue(ctx)
	if err != nil {
		logger.Log.Fatal("Requeue failed", zap.Error(err))
	}
	logger.Log.Info("Dead letters requeued", zap.Int("count", n))
}
