package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quintet/api/internal/config"
	"github.com/quintet/api/internal/database"
	"github.com/quintet/api/internal/eventbus"
)

// depcheck connects to every backing service configured for the API and
// reports which ones answer. It exits non-zero when any configured one fails.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	failed := false
	check := func(name, target string, fn func() error) {
		if target == "" {
			fmt.Printf("%-10s not configured\n", name)
			return
		}
		if err := fn(); err != nil {
			failed = true
			fmt.Printf("%-10s FAILED: %v\n", name, err)
			return
		}
		fmt.Printf("%-10s ok\n", name)
	}

	check("postgres", cfg.DatabaseURL, func() error {
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping(ctx)
	})

	check("redis", cfg.RedisURL, func() error {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		return rdb.Ping(ctx)
	})

	check("nats", cfg.NATS.URL, func() error {
		nc, err := eventbus.Connect(cfg.NATS.URL, zap.NewNop())
		if err != nil {
			return err
		}
		defer nc.Close()
		return nc.FlushWithContext(ctx)
	})

	if cfg.HasCredential() {
		fmt.Printf("%-10s credential set (%s, %s)\n", "llm", cfg.LLM.BaseURL, cfg.LLM.Model)
	} else {
		fmt.Printf("%-10s GROQ_API_KEY not configured\n", "llm")
	}

	if failed {
		os.Exit(1)
	}
}
