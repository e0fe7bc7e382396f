// Package chat 实现带知识增强和分级降级的响应生成引擎
//
// 一轮对话的流程：
//  1. 获取会话锁，确保会话存在，先持久化用户消息
//  2. 读取租户配置，缺失时直接返回 tenant.ErrNotConfigured
//  3. 检索知识、组装提示词、读取最近历史
//  4. 依次尝试 primary -> secondary -> 本地兜底
//  5. 持久化助手消息，执行记忆抽取和统计（默认在会话锁内同步完成）
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistant/internal/logger"
	"github.com/ashwinyue/next-assistant/internal/metrics"
	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/service/analytics"
	"github.com/ashwinyue/next-assistant/internal/service/memory"
	"github.com/ashwinyue/next-assistant/internal/service/prompt"
	"github.com/ashwinyue/next-assistant/internal/service/provider"
	"github.com/ashwinyue/next-assistant/internal/service/session"
)

// ErrEmptyMessage 用户消息为空
var ErrEmptyMessage = errors.New("message must not be empty")

// TenantSource 租户配置来源
type TenantSource interface {
	Get(ctx context.Context, tenantID string) (*model.Tenant, error)
}

// KnowledgeSearcher 知识检索
type KnowledgeSearcher interface {
	Search(ctx context.Context, tenantID, query, category string) ([]*model.KnowledgeEntry, error)
}

// Generator 分级生成
type Generator interface {
	Generate(ctx context.Context, req *provider.CompletionRequest) provider.Result
}

// MemoryUpdater 记忆更新
type MemoryUpdater interface {
	Update(ctx context.Context, turn memory.Turn) (*model.MemoryRecord, error)
}

// AnalyticsRecorder 统计记录
type AnalyticsRecorder interface {
	Record(ctx context.Context, turn analytics.Turn) (*model.AnalyticsEvent, error)
}

// Options 引擎选项
type Options struct {
	HistoryLimit       int
	AsyncPostProcess   bool
	PostProcessTimeout time.Duration
}

// Deps 引擎依赖，Memory 和 Analytics 可以为 nil
type Deps struct {
	Tenants   TenantSource
	Knowledge KnowledgeSearcher
	Sessions  *session.Manager
	Generator Generator
	Memory    MemoryUpdater
	Analytics AnalyticsRecorder
	Locker    session.Locker
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Engine 响应生成引擎
type Engine struct {
	tenants   TenantSource
	knowledge KnowledgeSearcher
	sessions  *session.Manager
	generator Generator
	memory    MemoryUpdater
	analytics AnalyticsRecorder
	locker    session.Locker
	metrics   *metrics.Metrics
	logger    *zap.Logger
	opts      Options

	wg   sync.WaitGroup
	memq memoryQueue
}

// NewEngine 创建引擎
func NewEngine(deps Deps, opts Options) *Engine {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 5
	}
	if opts.PostProcessTimeout <= 0 {
		opts.PostProcessTimeout = 20 * time.Second
	}
	locker := deps.Locker
	if locker == nil {
		locker = session.NewLocalLocker()
	}

	return &Engine{
		tenants:   deps.Tenants,
		knowledge: deps.Knowledge,
		sessions:  deps.Sessions,
		generator: deps.Generator,
		memory:    deps.Memory,
		analytics: deps.Analytics,
		locker:    locker,
		metrics:   deps.Metrics,
		logger:    logger.OrNop(deps.Logger).Named("chat"),
		opts:      opts,
	}
}

// Response 一轮对话的结果
type Response struct {
	SessionID     string   `json:"session_id"`
	Response      string   `json:"response"`
	KnowledgeUsed []string `json:"knowledge_used"`
	Tier          string   `json:"tier"`
}

// GenerateResponse 生成一轮回复
// 只有租户未配置、消息为空、会话存储不可用或 ctx 在等待会话锁时结束会返回错误
func (e *Engine) GenerateResponse(ctx context.Context, tenantID, externalSessionID, userMessage, userID string) (*Response, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, ErrEmptyMessage
	}

	// 同一会话的请求串行处理
	unlock, err := e.locker.Lock(ctx, session.LockKey(tenantID, externalSessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	defer unlock()

	sess, err := e.sessions.GetOrCreateSession(ctx, tenantID, externalSessionID, userID)
	if err != nil {
		return nil, err
	}
	userMsg, err := e.sessions.AppendMessage(ctx, tenantID, sess.ID, model.RoleUser, userMessage, nil)
	if err != nil {
		return nil, err
	}

	cfg, err := e.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	log := e.logger.With(
		zap.String("tenant_id", tenantID),
		zap.String("session_id", sess.ID))

	matches, err := e.knowledge.Search(ctx, tenantID, userMessage, "")
	if err != nil {
		log.Warn("knowledge search failed, answering without knowledge", zap.Error(err))
		matches = nil
	}

	req := &provider.CompletionRequest{
		SystemPrompt: prompt.Build(cfg, matches),
		History:      session.ToSchemaMessages(e.history(ctx, log, tenantID, sess.ID, userMsg.ID)),
		UserMessage:  userMessage,
		Params: provider.Params{
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
			Model:       cfg.ModelName,
		},
		ExpertiseDomain: cfg.ExpertiseDomain,
		Knowledge:       matches,
	}

	res := e.generator.Generate(ctx, req)
	used := knowledgeIDs(matches)

	if _, err := e.sessions.AppendMessage(ctx, tenantID, sess.ID, model.RoleAssistant, res.Text, used); err != nil {
		// 回复照常返回，客户端可以重试补齐
		log.Error("failed to persist assistant message", zap.Error(err))
	}

	e.metrics.ObserveTurn(string(res.Tier))
	log.Info("turn completed",
		zap.String("tier", string(res.Tier)),
		zap.String("provider", res.Provider),
		zap.Int("knowledge_used", len(used)))

	e.postProcess(ctx, postTurn{
		tenantID:    tenantID,
		sessionID:   sess.ID,
		userID:      userID,
		userMessage: userMessage,
		response:    res.Text,
		tier:        res.Tier,
	})

	return &Response{
		SessionID:     externalSessionID,
		Response:      res.Text,
		KnowledgeUsed: used,
		Tier:          string(res.Tier),
	}, nil
}

// GetHistory 按外部会话键查询最近 limit 条消息，时间正序
func (e *Engine) GetHistory(ctx context.Context, tenantID, externalSessionID string, limit int) ([]*model.ChatMessage, error) {
	return e.sessions.GetHistory(ctx, tenantID, externalSessionID, limit)
}

// Wait 等待进行中的异步后处理完成
func (e *Engine) Wait() {
	e.wg.Wait()
}

// history 最近 HistoryLimit 条消息，不含本轮刚写入的用户消息
func (e *Engine) history(ctx context.Context, log *zap.Logger, tenantID, sessionID, currentID string) []*model.ChatMessage {
	msgs, err := e.sessions.GetRecentHistory(ctx, tenantID, sessionID, e.opts.HistoryLimit+1)
	if err != nil {
		log.Warn("failed to load history", zap.Error(err))
		return nil
	}

	out := make([]*model.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.ID != currentID {
			out = append(out, m)
		}
	}
	if len(out) > e.opts.HistoryLimit {
		out = out[len(out)-e.opts.HistoryLimit:]
	}
	return out
}

// knowledgeIDs 进入提示词的知识条目 ID
func knowledgeIDs(matches []*model.KnowledgeEntry) []string {
	ids := make([]string, 0, prompt.MaxExcerpts)
	for i, m := range matches {
		if i == prompt.MaxExcerpts {
			break
		}
		ids = append(ids, m.ID)
	}
	return ids
}
