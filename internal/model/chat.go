package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationSession 会话，(TenantID, ExternalSessionID) 唯一
type ConversationSession struct {
	ID                string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	TenantID          string    `json:"tenant_id" gorm:"type:varchar(64);uniqueIndex:idx_session_tenant_external;not null"`
	ExternalSessionID string    `json:"external_session_id" gorm:"type:varchar(255);uniqueIndex:idx_session_tenant_external;not null"`
	UserID            string    `json:"user_id,omitempty" gorm:"type:varchar(255);index"`
	CreatedAt         time.Time `json:"created_at"`
	LastActiveAt      time.Time `json:"last_active_at"`
}

// BeforeCreate GORM 钩子
func (s *ConversationSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// ChatMessage 会话消息，只追加；同一会话内按 Seq 排序
type ChatMessage struct {
	ID            string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	TenantID      string     `json:"tenant_id" gorm:"type:varchar(64);index;not null"`
	SessionID     string     `json:"session_id" gorm:"type:varchar(36);uniqueIndex:idx_message_session_seq;not null"`
	Seq           int64      `json:"seq" gorm:"uniqueIndex:idx_message_session_seq"`
	Role          string     `json:"role" gorm:"type:varchar(20)"` // user, assistant
	Content       string     `json:"content" gorm:"type:text"`
	KnowledgeUsed StringList `json:"knowledge_used,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time  `json:"timestamp" gorm:"index"`
}

// BeforeCreate GORM 钩子
func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (ConversationSession) TableName() string {
	return "conversation_sessions"
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
