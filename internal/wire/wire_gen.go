//go:build !wireinject
// +build !wireinject

// 注入器按 wire.go 中的 provider 组合手写展开，provider 签名变化时需要同步修改。
// 运行 go generate ./internal/wire 会用 wire 的输出覆盖本文件。

//go:generate go run -mod=mod github.com/google/wire/cmd/wire

package wire

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"screenplay-ai-api/internal/application/copilot"
	"screenplay-ai-api/internal/config"
	"screenplay-ai-api/internal/interfaces/http/handler"
	"screenplay-ai-api/internal/interfaces/http/router"
)

// Injectors from wire.go:

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	storage, cleanup, err := ProvideStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	healthHandler := ProvideHealthHandler(cfg, storage)
	store := ProvideProjectStore(ctx, cfg, storage)
	projectHandler := handler.NewProjectHandler(store)
	editHandler := handler.NewEditHandler(store)
	service := ProvideNovelService(cfg, store)
	novelHandler := ProvideNovelHandler(cfg, service)
	gateway := ProvideGateway(cfg)
	studioService := ProvideStudioService(cfg, store, gateway)
	generationHandler := handler.NewGenerationHandler(studioService)
	copilotService := copilot.NewService(store, gateway)
	copilotHandler := handler.NewCopilotHandler(copilotService)
	handlers := router.Handlers{
		Health:     healthHandler,
		Project:    projectHandler,
		Edit:       editHandler,
		Novel:      novelHandler,
		Generation: generationHandler,
		Copilot:    copilotHandler,
	}
	rateLimiter := ProvideRateLimiter(storage)
	keyFunc := ProvideRateLimitKeyFunc()
	routerRouter := router.New(cfg, handlers, rateLimiter, keyFunc)
	return routerRouter, func() {
		cleanup()
	}, nil
}

// InitializeMCP 初始化 MCP 服务
func InitializeMCP(ctx context.Context, cfg *config.Config) (*mcp.Server, func(), error) {
	storage, cleanup, err := ProvideStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store := ProvideProjectStore(ctx, cfg, storage)
	service := ProvideNovelService(cfg, store)
	gateway := ProvideGateway(cfg)
	copilotService := copilot.NewService(store, gateway)
	server := ProvideMCPServer(cfg, store, service, copilotService)
	return server, func() {
		cleanup()
	}, nil
}
