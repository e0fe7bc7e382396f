// Package memory 把每轮对话沉淀为按 (租户, 用户) 存储的长期记忆
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistant/internal/logger"
	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/repository"
	"github.com/ashwinyue/next-assistant/internal/service/session"
)

// ErrMemoryNotFound 用户还没有记忆
var ErrMemoryNotFound = errors.New("memory record not found")

// Turn 一轮已完成的对话
type Turn struct {
	TenantID    string
	UserID      string
	UserMessage string
	Response    string
	// SkipExtraction 为 true 时不调用模型，直接使用默认抽取结果
	SkipExtraction bool
}

// Service 记忆服务
type Service struct {
	repo      repository.MemoryRepository
	extractor *Extractor
	locker    session.Locker
	logger    *zap.Logger
	now       func() time.Time
}

// NewService 创建记忆服务，locker 为 nil 时使用进程内锁
func NewService(repo repository.MemoryRepository, extractor *Extractor, locker session.Locker, log *zap.Logger) *Service {
	if locker == nil {
		locker = session.NewLocalLocker()
	}
	return &Service{
		repo:      repo,
		extractor: extractor,
		locker:    locker,
		logger:    logger.OrNop(log).Named("memory"),
		now:       time.Now,
	}
}

func lockKey(tenantID, userID string) string {
	return "memory:" + tenantID + ":" + userID
}

// Update 抽取本轮记忆并合并到用户记录；没有 UserID 时不做任何事
func (s *Service) Update(ctx context.Context, turn Turn) (*model.MemoryRecord, error) {
	if turn.UserID == "" {
		return nil, nil
	}

	// 抽取也在锁内进行，同一用户的合并按加锁顺序生效
	unlock, err := s.locker.Lock(ctx, lockKey(turn.TenantID, turn.UserID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock memory: %w", err)
	}
	defer unlock()

	ex := DefaultExtraction()
	if !turn.SkipExtraction {
		ex, err = s.extractor.Extract(ctx, turn.UserMessage, turn.Response)
		if err != nil {
			s.logger.Warn("memory extraction failed, using defaults",
				zap.String("tenant_id", turn.TenantID),
				zap.String("user_id", turn.UserID),
				zap.Error(err))
		}
	}

	existing, err := s.repo.Get(ctx, turn.TenantID, turn.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}

	merged := Merge(existing, turn.TenantID, turn.UserID, ex, s.now())
	if err := s.repo.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("failed to save memory: %w", err)
	}
	return merged, nil
}

// Get 读取用户记忆
func (s *Service) Get(ctx context.Context, tenantID, userID string) (*model.MemoryRecord, error) {
	rec, err := s.repo.Get(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemoryNotFound
		}
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	return rec, nil
}

// Merge 浅合并：新键覆盖旧键，未出现的旧键保留；context 整体替换，交互次数加一
// existing 为 nil 时创建新记录，不修改 existing
func Merge(existing *model.MemoryRecord, tenantID, userID string, ex Extraction, now time.Time) *model.MemoryRecord {
	out := &model.MemoryRecord{
		TenantID:    tenantID,
		UserID:      userID,
		Facts:       model.StringMap{},
		Preferences: model.StringMap{},
	}
	prevCount := 0
	if existing != nil {
		out.ID = existing.ID
		out.CreatedAt = existing.CreatedAt
		out.Facts = existing.Facts.Clone()
		out.Preferences = existing.Preferences.Clone()
		prevCount = existing.Context.InteractionCount
	}

	for k, v := range ex.Memories {
		out.Facts[k] = v
	}
	for k, v := range ex.Preferences {
		out.Preferences[k] = v
	}

	out.Context = model.MemoryContext{
		LastTopic:        ex.Topic,
		LastSentiment:    ex.Sentiment,
		InteractionCount: prevCount + 1,
		UpdatedAt:        now,
	}
	return out
}
