// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"screenplay-ai-api/internal/application/copilot"
	"screenplay-ai-api/internal/application/generation"
	"screenplay-ai-api/internal/application/novel"
	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/application/studio"
	"screenplay-ai-api/internal/config"
	"screenplay-ai-api/internal/domain/repository"
	"screenplay-ai-api/internal/infrastructure/llm"
	"screenplay-ai-api/internal/infrastructure/messaging"
	"screenplay-ai-api/internal/infrastructure/persistence/memory"
	"screenplay-ai-api/internal/infrastructure/persistence/postgres"
	"screenplay-ai-api/internal/infrastructure/persistence/redis"
	"screenplay-ai-api/internal/infrastructure/persistence/sqlite"
	"screenplay-ai-api/internal/interfaces/http/handler"
	"screenplay-ai-api/internal/interfaces/http/middleware"
	"screenplay-ai-api/internal/interfaces/mcpserver"
	"screenplay-ai-api/internal/workflow/chain"
	workflowport "screenplay-ai-api/internal/workflow/port"
	"screenplay-ai-api/pkg/logger"
)

// 存储驱动
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// DefaultSQLitePath sqlite 驱动的默认数据库文件
const DefaultSQLitePath = "data/screenplay.db"

// RedisKeyPrefix 快照键前缀
const RedisKeyPrefix = "screenplay:"

// Storage 快照存储及其附属连接
type Storage struct {
	Driver string
	Repo   repository.SnapshotRepository
	// Probe 存储的连通性检查，memory 驱动为 nil
	Probe handler.Pinger
	// Redis 可选的 Redis 连接，用于限流与变更流；未配置时为 nil
	Redis *redis.Client
}

// ProvideStorage 按配置选择快照存储驱动
func ProvideStorage(ctx context.Context, cfg *config.Config) (*Storage, func(), error) {
	st := &Storage{Driver: cfg.Storage.Driver}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Storage.Driver {
	case "", DriverMemory:
		st.Driver = DriverMemory
		st.Repo = memory.NewSnapshotRepo()
	case DriverSQLite:
		path := cfg.Storage.SQLite.Path
		if path == "" {
			path = DefaultSQLitePath
		}
		db, err := sqlite.OpenDB(path)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		repo := sqlite.NewSnapshotRepo(db)
		st.Repo, st.Probe = repo, repo
	case DriverRedis:
		client, err := redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		repo := redis.NewSnapshotRepo(client, RedisKeyPrefix)
		st.Repo, st.Probe, st.Redis = repo, repo, client
	case DriverPostgres:
		client, err := postgres.NewClient(&cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		repo := postgres.NewSnapshotRepo(client)
		st.Repo, st.Probe = repo, repo
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	// 非 redis 驱动时 Redis 只作可选依赖，连不上不阻塞启动
	if st.Redis == nil && cfg.Cache.Redis.Enabled {
		client, err := redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			logger.Warn(ctx, "redis not available, rate limiting and change stream disabled", "error", err.Error())
		} else {
			closers = append(closers, func() { _ = client.Close() })
			st.Redis = client
		}
	}

	logger.Info(ctx, "snapshot storage ready", "driver", st.Driver)
	return st, cleanup, nil
}

// ProvideProjectStore 创建项目存储并从快照恢复
func ProvideProjectStore(ctx context.Context, cfg *config.Config, st *Storage) *projectstore.Store {
	store := projectstore.New(st.Repo, projectstore.Options{
		ProjectsKey: cfg.Storage.ProjectsKey,
		ActiveKey:   cfg.Storage.ActiveKey,
	})
	store.Hydrate(ctx)

	if p := ProvideChangeProducer(cfg, st); p != nil {
		store.Subscribe(p)
	}
	return store
}

// ProvideChangeProducer 启用变更流时返回生产者
func ProvideChangeProducer(cfg *config.Config, st *Storage) *messaging.Producer {
	rs := cfg.Messaging.RedisStream
	if !rs.Enabled || st.Redis == nil {
		return nil
	}
	return messaging.NewProducer(st.Redis.Redis(), messaging.Stream(rs.ChangeStream), rs.MaxLen)
}

// ProvideGateway 创建生成网关
func ProvideGateway(cfg *config.Config) *generation.Gateway {
	factory := llm.NewEinoFactory(&cfg.LLM)

	var images workflowport.ImageGenerator
	if cfg.Image.Enabled {
		images = llm.NewImageClient(cfg.Image)
	}

	opts := generation.Options{
		Provider:       cfg.LLM.DefaultProvider,
		MaxPromptRunes: cfg.Generation.MaxPromptRunes,
	}
	if p, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; ok {
		opts.Model = p.Model
	}
	return generation.New(chain.NewGenerationChain(factory), images, opts)
}

// ProvideNovelService 创建原著服务
func ProvideNovelService(cfg *config.Config, store *projectstore.Store) *novel.Service {
	return novel.NewService(store, novel.NewChunker(cfg.Novel.MaxChunkRunes))
}

// ProvideStudioService 创建生成编排服务
func ProvideStudioService(cfg *config.Config, store *projectstore.Store, gw *generation.Gateway) *studio.Service {
	return studio.NewService(store, gw, studio.Options{Timeout: cfg.Generation.Timeout})
}

// ProvideHealthHandler 存储为必需依赖，独立的 Redis 为可选依赖
func ProvideHealthHandler(cfg *config.Config, st *Storage) *handler.HealthHandler {
	required := map[string]handler.Pinger{}
	if st.Probe != nil {
		required[st.Driver] = st.Probe
	}
	optional := map[string]handler.Pinger{}
	if st.Redis != nil && st.Driver != DriverRedis {
		optional["redis"] = st.Redis
	}
	return handler.NewHealthHandler(cfg.App.Version, required, optional)
}

// ProvideNovelHandler 创建原著处理器
func ProvideNovelHandler(cfg *config.Config, svc *novel.Service) *handler.NovelHandler {
	return handler.NewNovelHandler(svc, cfg.Server.HTTP.MaxUploadBytes)
}

// ProvideRateLimiter 没有 Redis 时不限流
func ProvideRateLimiter(st *Storage) middleware.RateLimiter {
	if st.Redis == nil {
		return nil
	}
	return redis.NewRateLimiter(st.Redis)
}

// ProvideRateLimitKeyFunc 限流 Key 生成函数
func ProvideRateLimitKeyFunc() middleware.KeyFunc {
	return redis.BuildRateLimitKey
}

// ProvideMCPServer 创建 MCP 服务
func ProvideMCPServer(cfg *config.Config, store *projectstore.Store, novels *novel.Service, cop *copilot.Service) *mcp.Server {
	return mcpserver.New(cfg.App.Version, store, novels, cop)
}
