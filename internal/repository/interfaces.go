// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能，所有查询都按租户隔离
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ashwinyue/next-assistant/internal/model"
)

var (
	// ErrNotFound 记录不存在（或不属于该租户）
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 唯一约束冲突
	ErrDuplicate = errors.New("duplicate record")
)

// TenantRepository 租户配置数据访问接口
type TenantRepository interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	GetByID(ctx context.Context, id string) (*model.Tenant, error)
	Update(ctx context.Context, tenant *model.Tenant) error
}

// KnowledgeRepository 知识条目数据访问接口
type KnowledgeRepository interface {
	Create(ctx context.Context, entry *model.KnowledgeEntry) error
	CreateBatch(ctx context.Context, entries []*model.KnowledgeEntry) error
	GetByID(ctx context.Context, tenantID, id string) (*model.KnowledgeEntry, error)
	// ListActive 按插入顺序返回租户的有效条目，category 为空时不过滤
	ListActive(ctx context.Context, tenantID, category string) ([]*model.KnowledgeEntry, error)
	Deactivate(ctx context.Context, tenantID, id string) error
}

// SessionRepository 会话与消息数据访问接口
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.ConversationSession) error
	GetSession(ctx context.Context, tenantID, id string) (*model.ConversationSession, error)
	GetSessionByExternalID(ctx context.Context, tenantID, externalID string) (*model.ConversationSession, error)
	// TouchSession 把 last_active_at 推进到 at（不会回退），并在 user_id 为空时补写
	TouchSession(ctx context.Context, tenantID, id string, at time.Time, userID string) error

	// AppendMessage 追加消息并分配会话内递增的 Seq
	AppendMessage(ctx context.Context, msg *model.ChatMessage) error
	// RecentMessages 返回最近 limit 条消息，按时间正序；limit <= 0 时返回全部
	RecentMessages(ctx context.Context, tenantID, sessionID string, limit int) ([]*model.ChatMessage, error)
}

// MemoryRepository 用户记忆数据访问接口
type MemoryRepository interface {
	Get(ctx context.Context, tenantID, userID string) (*model.MemoryRecord, error)
	Save(ctx context.Context, record *model.MemoryRecord) error
}

// AnalyticsRepository 统计事件数据访问接口
type AnalyticsRepository interface {
	Create(ctx context.Context, event *model.AnalyticsEvent) error
	Summary(ctx context.Context, tenantID string) (*AnalyticsSummary, error)
}

// AnalyticsSummary 租户统计汇总
type AnalyticsSummary struct {
	TenantID          string           `json:"tenant_id"`
	Total             int64            `json:"total"`
	BySatisfaction    map[string]int64 `json:"by_satisfaction"`
	AvgResponseLength float64          `json:"avg_response_length"`
}

// 确保 gorm 实现了接口
var (
	_ TenantRepository    = (*TenantRepositoryImpl)(nil)
	_ KnowledgeRepository = (*KnowledgeRepositoryImpl)(nil)
	_ SessionRepository   = (*ChatRepository)(nil)
	_ MemoryRepository    = (*MemoryRepositoryImpl)(nil)
	_ AnalyticsRepository = (*AnalyticsRepositoryImpl)(nil)
)
