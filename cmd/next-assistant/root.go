package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistant/internal/config"
	"github.com/ashwinyue/next-assistant/internal/database"
	"github.com/ashwinyue/next-assistant/internal/logger"
	"github.com/ashwinyue/next-assistant/internal/repository"
	"github.com/ashwinyue/next-assistant/internal/repository/inmem"
	"github.com/ashwinyue/next-assistant/internal/service"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "next-assistant",
		Short:         "Multi-tenant knowledge-augmented assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newTokenCmd(opts),
		newChatCmd(opts),
	)
	return cmd
}

// app 各子命令共用的运行时依赖
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *database.DB
	redis    *redis.Client
	registry *prometheus.Registry
	services *service.Services
}

func loadConfig(opts *rootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log.With(zap.String("app", cfg.App.Name)), nil
}

// newApp 组装服务；inMemory 为 true 时不连接数据库和 Redis
func newApp(ctx context.Context, opts *rootOptions, inMemory bool) (*app, error) {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}

	var repos *repository.Repositories
	if inMemory {
		repos = inmem.NewRepositories()
		cfg.Session.LockBackend = "local"
	} else {
		a.db, err = database.New(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		repos = repository.NewRepositories(a.db.DB)

		if cfg.Redis.Enabled {
			a.redis = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.GetAddr(),
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err := a.redis.Ping(ctx).Err(); err != nil {
				// 缓存不可用时降级，锁后端为 redis 时由 NewServices 报错
				log.Warn("redis unreachable", zap.String("addr", cfg.Redis.GetAddr()), zap.Error(err))
			}
		}
	}

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.services, err = service.NewServices(ctx, repos, cfg, service.Options{
		Redis:      a.redis,
		Registerer: a.registry,
		Logger:     log,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}
	return a, nil
}

// Close 等待后处理结束并释放连接
func (a *app) Close() {
	if a.services != nil {
		a.services.Engine.Wait()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.log.Sync()
}
