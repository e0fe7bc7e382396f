package repository

import (
	"context"
	"time"

	"github.com/ashwinyue/next-assistant/internal/model"
	"gorm.io/gorm"
)

// ChatRepository 会话与消息数据访问
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建聊天仓库
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateSession 创建会话
func (r *ChatRepository) CreateSession(ctx context.Context, session *model.ConversationSession) error {
	return translate(r.db.WithContext(ctx).Create(session).Error)
}

// GetSession 获取租户下的会话
func (r *ChatRepository) GetSession(ctx context.Context, tenantID, id string) (*model.ConversationSession, error) {
	var session model.ConversationSession
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&session).Error
	if err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

// GetSessionByExternalID 按调用方提供的会话键获取会话
func (r *ChatRepository) GetSessionByExternalID(ctx context.Context, tenantID, externalID string) (*model.ConversationSession, error) {
	var session model.ConversationSession
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND external_session_id = ?", tenantID, externalID).
		First(&session).Error
	if err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

// TouchSession 更新会话活跃时间
func (r *ChatRepository) TouchSession(ctx context.Context, tenantID, id string, at time.Time, userID string) error {
	updates := map[string]interface{}{
		"last_active_at": gorm.Expr("GREATEST(last_active_at, ?)", at),
	}
	if userID != "" {
		updates["user_id"] = gorm.Expr("CASE WHEN user_id IS NULL OR user_id = '' THEN ? ELSE user_id END", userID)
	}
	result := r.db.WithContext(ctx).Model(&model.ConversationSession{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage 追加消息
func (r *ChatRepository) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&model.ChatMessage{}).
			Where("session_id = ?", msg.SessionID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		msg.Seq = maxSeq + 1
		return tx.Create(msg).Error
	}))
}

// RecentMessages 获取会话最近的 N 条消息（正序），limit <= 0 时返回全部
func (r *ChatRepository) RecentMessages(ctx context.Context, tenantID, sessionID string, limit int) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		Order("seq DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&messages).Error
	if err != nil {
		return nil, translate(err)
	}
	reverse(messages)
	return messages, nil
}

func reverse(messages []*model.ChatMessage) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
