package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemoryRecord 用户长期记忆，每个 (TenantID, UserID) 至多一条
type MemoryRecord struct {
	ID          string        `json:"id" gorm:"type:varchar(36);primaryKey"`
	TenantID    string        `json:"tenant_id" gorm:"type:varchar(64);uniqueIndex:idx_memory_tenant_user;not null"`
	UserID      string        `json:"user_id" gorm:"type:varchar(255);uniqueIndex:idx_memory_tenant_user;not null"`
	Facts       StringMap     `json:"facts" gorm:"type:jsonb"`
	Preferences StringMap     `json:"preferences" gorm:"type:jsonb"`
	Context     MemoryContext `json:"context" gorm:"type:jsonb"`
	CreatedAt   time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// MemoryContext 最近一轮对话的上下文，每轮整体替换
type MemoryContext struct {
	LastTopic        string    `json:"last_topic"`
	LastSentiment    string    `json:"last_sentiment"`
	InteractionCount int       `json:"interaction_count"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Value 实现 driver.Valuer 接口
func (c MemoryContext) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner 接口
func (c *MemoryContext) Scan(value interface{}) error {
	b, err := jsonBytes(value)
	if err != nil || b == nil {
		return err
	}
	return json.Unmarshal(b, c)
}

// BeforeCreate GORM 钩子
func (m *MemoryRecord) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (MemoryRecord) TableName() string {
	return "memory_records"
}
