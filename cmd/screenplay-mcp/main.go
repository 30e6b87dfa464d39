// Package main MCP 服务入口，支持 stdio 与 streamable HTTP 两种传输
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"screenplay-ai-api/internal/config"
	einoobs "screenplay-ai-api/internal/observability/eino"
	"screenplay-ai-api/internal/wire"
	"screenplay-ai-api/pkg/logger"
)

// Version 版本信息，构建时注入
var Version = "dev"

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
	if cfg.App.Version == "" {
		cfg.App.Version = Version
	}

	transport := flag.String("transport", cfg.MCP.Transport, "Transport mode: stdio or http")
	addr := flag.String("addr", cfg.MCP.Addr, "HTTP listen address (only used with --transport http)")
	flag.Parse()

	// stdout 属于 stdio 传输，日志只能写 stderr
	logger.InitWithWriter(os.Stderr, cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	einoobs.Init()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv, cleanup, err := wire.InitializeMCP(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing mcp server: %w", err)
	}
	defer cleanup()

	switch *transport {
	case "", "stdio":
		logger.Info(ctx, "screenplay mcp server starting", "transport", "stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	case "http":
		if *addr == "" {
			*addr = ":8081"
		}
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return srv
		}, nil)
		httpSrv := &http.Server{Addr: *addr, Handler: handler}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		logger.Info(ctx, "screenplay mcp server listening", "transport", "http", "addr", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown transport %q (use stdio or http)", *transport)
	}
}
