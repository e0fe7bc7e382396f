// Package session 提供会话与消息历史管理
// 会话由 (租户, 外部会话键) 唯一确定，消息只追加
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistant/internal/logger"
	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/repository"
)

var (
	// ErrSessionNotFound 会话不存在或不属于该租户
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidRole 消息角色只能是 user 或 assistant
	ErrInvalidRole = errors.New("invalid message role")
)

// Manager 会话管理器
type Manager struct {
	repo   repository.SessionRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewManager 创建会话管理器
func NewManager(repo repository.SessionRepository, log *zap.Logger) *Manager {
	return &Manager{
		repo:   repo,
		logger: logger.OrNop(log).Named("session"),
		now:    time.Now,
	}
}

// GetOrCreateSession 查找会话并刷新 last_active_at，不存在则创建
func (m *Manager) GetOrCreateSession(ctx context.Context, tenantID, externalID, userID string) (*model.ConversationSession, error) {
	now := m.now()

	sess, err := m.repo.GetSessionByExternalID(ctx, tenantID, externalID)
	if err == nil {
		return m.touch(ctx, sess, now, userID)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	sess = &model.ConversationSession{
		TenantID:          tenantID,
		ExternalSessionID: externalID,
		UserID:            userID,
		CreatedAt:         now,
		LastActiveAt:      now,
	}
	if err := m.repo.CreateSession(ctx, sess); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		// 另一个实例抢先创建
		existing, err := m.repo.GetSessionByExternalID(ctx, tenantID, externalID)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		return m.touch(ctx, existing, now, userID)
	}

	m.logger.Debug("session created",
		zap.String("tenant_id", tenantID),
		zap.String("session_id", sess.ID),
		zap.String("external_session_id", externalID))
	return sess, nil
}

func (m *Manager) touch(ctx context.Context, sess *model.ConversationSession, now time.Time, userID string) (*model.ConversationSession, error) {
	if err := m.repo.TouchSession(ctx, sess.TenantID, sess.ID, now, userID); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}
	if now.After(sess.LastActiveAt) {
		sess.LastActiveAt = now
	}
	if sess.UserID == "" {
		sess.UserID = userID
	}
	return sess, nil
}

// AppendMessage 向租户的会话追加一条消息
// knowledgeUsed 只记录在 assistant 消息上
func (m *Manager) AppendMessage(ctx context.Context, tenantID, sessionID, role, content string, knowledgeUsed []string) (*model.ChatMessage, error) {
	if role != model.RoleUser && role != model.RoleAssistant {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if err := m.ensureSession(ctx, tenantID, sessionID); err != nil {
		return nil, err
	}

	msg := &model.ChatMessage{
		TenantID:  tenantID,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: m.now(),
	}
	if role == model.RoleAssistant && len(knowledgeUsed) > 0 {
		msg.KnowledgeUsed = append(model.StringList(nil), knowledgeUsed...)
	}

	if err := m.repo.AppendMessage(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return msg, nil
}

// GetRecentHistory 返回最近 limit 条消息，时间正序
func (m *Manager) GetRecentHistory(ctx context.Context, tenantID, sessionID string, limit int) ([]*model.ChatMessage, error) {
	if err := m.ensureSession(ctx, tenantID, sessionID); err != nil {
		return nil, err
	}
	msgs, err := m.repo.RecentMessages(ctx, tenantID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return msgs, nil
}

// GetHistory 按外部会话键查询最近 limit 条消息
func (m *Manager) GetHistory(ctx context.Context, tenantID, externalID string, limit int) ([]*model.ChatMessage, error) {
	sess, err := m.repo.GetSessionByExternalID(ctx, tenantID, externalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	msgs, err := m.repo.RecentMessages(ctx, tenantID, sess.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return msgs, nil
}

func (m *Manager) ensureSession(ctx context.Context, tenantID, sessionID string) error {
	if _, err := m.repo.GetSession(ctx, tenantID, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to get session: %w", err)
	}
	return nil
}

// ToSchemaMessages 把历史消息转换为模型调用使用的 schema.Message
func ToSchemaMessages(msgs []*model.ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, &schema.Message{
			Role:    roleToSchema(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}

// roleToSchema 将字符串角色转换为 schema.RoleType
func roleToSchema(role string) schema.RoleType {
	switch role {
	case "system":
		return schema.System
	case "assistant":
		return schema.Assistant
	default:
		return schema.User
	}
}
