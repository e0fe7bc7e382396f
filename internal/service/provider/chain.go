package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ashwinyue/next-assistant/internal/logger"
	"github.com/ashwinyue/next-assistant/internal/metrics"
)

// Tier 服务本轮对话的层级
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
	TierLocal     Tier = "local"
)

// TierOf 远程提供商在链中的层级
func TierOf(i int) Tier {
	switch i {
	case 0:
		return TierPrimary
	case 1:
		return TierSecondary
	default:
		return Tier(fmt.Sprintf("tier-%d", i+1))
	}
}

// Result 生成结果
type Result struct {
	Text     string
	Tier     Tier
	Provider string
}

// Chain 按顺序尝试远程提供商，全部失败后交给本地兜底
// 每个层级只调用一次，不重试、不退避
type Chain struct {
	providers []Provider
	local     Responder
	sem       *semaphore.Weighted
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// ChainOption 调用链选项
type ChainOption func(*Chain)

// WithTimeout 单次调用超时
func WithTimeout(d time.Duration) ChainOption {
	return func(c *Chain) { c.timeout = d }
}

// WithMaxConcurrent 全局并发调用上限
func WithMaxConcurrent(n int) ChainOption {
	return func(c *Chain) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithMetrics 记录调用指标
func WithMetrics(m *metrics.Metrics) ChainOption {
	return func(c *Chain) { c.metrics = m }
}

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) ChainOption {
	return func(c *Chain) { c.logger = logger.OrNop(l).Named("provider") }
}

// NewChain 创建调用链，local 不能为 nil
func NewChain(providers []Provider, local Responder, opts ...ChainOption) *Chain {
	c := &Chain{
		providers: providers,
		local:     local,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name 实现 Provider
func (c *Chain) Name() string { return "chain" }

// Complete 只尝试远程提供商，用于辅助分类调用；全部失败返回 ErrExhausted
func (c *Chain) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	res, err := c.tryRemote(ctx, req)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Generate 依次尝试 primary -> secondary -> local，总是返回非空结果
func (c *Chain) Generate(ctx context.Context, req *CompletionRequest) Result {
	res, err := c.tryRemote(ctx, req)
	if err == nil {
		return res
	}

	c.logger.Warn("remote providers exhausted, using local fallback", zap.Error(err))
	return Result{
		Text:     c.local.Respond(req),
		Tier:     TierLocal,
		Provider: string(TierLocal),
	}
}

func (c *Chain) tryRemote(ctx context.Context, req *CompletionRequest) (Result, error) {
	var errs []error
	for i, p := range c.providers {
		tier := TierOf(i)

		// 租户指定的模型名只对 primary 生效，其余层级使用各自配置的模型
		r := req
		if i > 0 && req.Params.Model != "" {
			cp := *req
			cp.Params.Model = ""
			r = &cp
		}

		text, err := c.call(ctx, tier, p, r)
		if err == nil {
			return Result{Text: text, Tier: tier, Provider: p.Name()}, nil
		}
		errs = append(errs, fmt.Errorf("%s/%s: %w", tier, p.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return Result{}, ErrExhausted
	}
	return Result{}, fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
}

func (c *Chain) call(ctx context.Context, tier Tier, p Provider, req *CompletionRequest) (string, error) {
	start := time.Now()

	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer c.sem.Release(1)
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := p.Complete(callCtx, req)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, ErrUnconfigured):
		outcome = metrics.OutcomeUnconfigured
	case errors.Is(err, ErrEmptyCompletion):
		outcome = metrics.OutcomeEmpty
	case err != nil:
		outcome = metrics.OutcomeError
	}
	c.metrics.ObserveProviderCall(string(tier), p.Name(), outcome, elapsed)

	if err != nil {
		c.logger.Warn("provider call failed",
			zap.String("tier", string(tier)),
			zap.String("provider", p.Name()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "", err
	}
	return text, nil
}
