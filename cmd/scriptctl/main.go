// Package main scriptctl 命令行入口
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"screenplay-ai-api/internal/config"
	"screenplay-ai-api/internal/interfaces/cli"
	"screenplay-ai-api/internal/wire"
	"screenplay-ai-api/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	// 命令行默认使用本地 sqlite，SCRIPTCTL_DB 可改写路径
	if path := os.Getenv("SCRIPTCTL_DB"); path != "" {
		cfg.Storage.Driver = wire.DriverSQLite
		cfg.Storage.SQLite.Path = path
	} else if cfg.Storage.Driver == "" || cfg.Storage.Driver == wire.DriverMemory {
		cfg.Storage.Driver = wire.DriverSQLite
	}

	logger.InitWithWriter(os.Stderr, "warn", "text")

	ctx := context.Background()
	storage, cleanup, err := wire.ProvideStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer cleanup()

	store := wire.ProvideProjectStore(ctx, cfg, storage)
	app := &cli.App{
		Store:  store,
		Novels: wire.ProvideNovelService(cfg, store),
	}
	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
