// Package service 组装各业务服务
package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistant/internal/config"
	"github.com/ashwinyue/next-assistant/internal/logger"
	"github.com/ashwinyue/next-assistant/internal/metrics"
	"github.com/ashwinyue/next-assistant/internal/repository"
	"github.com/ashwinyue/next-assistant/internal/service/analytics"
	"github.com/ashwinyue/next-assistant/internal/service/callback"
	"github.com/ashwinyue/next-assistant/internal/service/chat"
	"github.com/ashwinyue/next-assistant/internal/service/fallback"
	"github.com/ashwinyue/next-assistant/internal/service/knowledge"
	"github.com/ashwinyue/next-assistant/internal/service/memory"
	"github.com/ashwinyue/next-assistant/internal/service/provider"
	"github.com/ashwinyue/next-assistant/internal/service/session"
	"github.com/ashwinyue/next-assistant/internal/service/tenant"
)

// Services 服务集合
type Services struct {
	Tenant    *tenant.Service
	Knowledge *knowledge.Service
	Sessions  *session.Manager
	Memory    *memory.Service
	Analytics *analytics.Recorder
	Chain     *provider.Chain
	Engine    *chat.Engine
	Metrics   *metrics.Metrics

	Config *config.Config
}

// Options 可选依赖
type Options struct {
	// Redis 为 nil 时租户缓存关闭，会话锁只能使用本地实现
	Redis *redis.Client
	// Registerer 为 nil 时不注册指标
	Registerer prometheus.Registerer
	// HTTPClient 覆盖模型调用使用的 HTTP 客户端
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewServices 创建所有服务
func NewServices(ctx context.Context, repos *repository.Repositories, cfg *config.Config, opts Options) (*Services, error) {
	log := logger.OrNop(opts.Logger)

	var m *metrics.Metrics
	if opts.Registerer != nil {
		m = metrics.New(opts.Registerer)
	}

	locker, err := newLocker(cfg, opts.Redis, log)
	if err != nil {
		return nil, err
	}

	var cache tenant.Cache = tenant.NopCache{}
	if opts.Redis != nil && cfg.Cache.TenantTTL > 0 {
		cache = tenant.NewRedisCache(opts.Redis, cfg.Cache.TenantTTLDuration())
	}

	modelLog := callback.NewLogger(log)
	primary, err := newProvider(ctx, "primary", cfg.AI.Primary, opts.HTTPClient, modelLog)
	if err != nil {
		return nil, err
	}
	secondary, err := newProvider(ctx, "secondary", cfg.AI.Secondary, opts.HTTPClient, modelLog)
	if err != nil {
		return nil, err
	}
	log.Info("providers initialized",
		zap.Bool("primary_configured", cfg.AI.Primary.Configured()),
		zap.Bool("secondary_configured", cfg.AI.Secondary.Configured()))

	chain := provider.NewChain(
		[]provider.Provider{primary, secondary},
		fallback.NewResponder(),
		provider.WithTimeout(cfg.Engine.ProviderTimeoutDuration()),
		provider.WithMaxConcurrent(cfg.Engine.MaxConcurrentCalls),
		provider.WithMetrics(m),
		provider.WithLogger(log),
	)

	tenants := tenant.NewService(repos.Tenant, cache, cfg.AI.Primary.Model, log)
	kb := knowledge.NewService(repos.Knowledge, log)
	sessions := session.NewManager(repos.Session, log)
	mem := memory.NewService(repos.Memory, memory.NewExtractor(chain), locker, log)
	recorder := analytics.NewRecorder(repos.Analytics, chain, m, log)

	engine := chat.NewEngine(chat.Deps{
		Tenants:   tenants,
		Knowledge: kb,
		Sessions:  sessions,
		Generator: chain,
		Memory:    mem,
		Analytics: recorder,
		Locker:    locker,
		Metrics:   m,
		Logger:    log,
	}, chat.Options{
		HistoryLimit:       cfg.Engine.HistoryLimit,
		AsyncPostProcess:   cfg.Engine.AsyncPostProcess,
		PostProcessTimeout: cfg.Engine.PostProcessTimeoutDuration(),
	})

	return &Services{
		Tenant:    tenants,
		Knowledge: kb,
		Sessions:  sessions,
		Memory:    mem,
		Analytics: recorder,
		Chain:     chain,
		Engine:    engine,
		Metrics:   m,
		Config:    cfg,
	}, nil
}

// newLocker 按配置选择会话锁实现
func newLocker(cfg *config.Config, client *redis.Client, log *zap.Logger) (session.Locker, error) {
	switch strings.ToLower(cfg.Session.LockBackend) {
	case "", "local":
		return session.NewLocalLocker(), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("session lock backend redis requires redis to be enabled")
		}
		return session.NewRedisLocker(client, cfg.Session.LockTTLDuration(), log), nil
	default:
		return nil, fmt.Errorf("unsupported session lock backend: %s", cfg.Session.LockBackend)
	}
}

// newProvider 按 client 字段选择 eino 或 go-openai 实现，未配置 API Key 时返回不可用的提供商
func newProvider(ctx context.Context, name string, pc config.ProviderConfig, httpClient *http.Client, modelLog *callback.Logger) (provider.Provider, error) {
	if httpClient == nil && pc.Timeout > 0 {
		httpClient = &http.Client{Timeout: time.Duration(pc.Timeout) * time.Second}
	}

	switch strings.ToLower(pc.Client) {
	case "", "eino":
		p, err := provider.NewEinoProvider(ctx, name, pc, httpClient, modelLog)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", name, err)
		}
		return p, nil
	case "openai":
		return provider.NewOpenAIProvider(name, pc, httpClient), nil
	default:
		return nil, fmt.Errorf("unsupported client %q for %s provider", pc.Client, name)
	}
}
