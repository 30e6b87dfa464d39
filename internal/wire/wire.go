//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"screenplay-ai-api/internal/application/copilot"
	"screenplay-ai-api/internal/config"
	"screenplay-ai-api/internal/interfaces/http/handler"
	"screenplay-ai-api/internal/interfaces/http/router"
)

// CoreSet 存储、网关与应用服务
var CoreSet = wire.NewSet(
	ProvideStorage,
	ProvideProjectStore,
	ProvideGateway,
	ProvideNovelService,
	copilot.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideStudioService,
	ProvideHealthHandler,
	ProvideNovelHandler,
	ProvideRateLimiter,
	ProvideRateLimitKeyFunc,
	handler.NewProjectHandler,
	handler.NewEditHandler,
	handler.NewGenerationHandler,
	handler.NewCopilotHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		CoreSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeMCP 初始化 MCP 服务
func InitializeMCP(ctx context.Context, cfg *config.Config) (*mcp.Server, func(), error) {
	wire.Build(
		CoreSet,
		ProvideMCPServer,
	)
	return nil, nil, nil
}
