package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 满意度估计
const (
	SatisfactionPositive = "positive"
	SatisfactionNeutral  = "neutral"
	SatisfactionNegative = "negative"
)

// InteractionTypeChat 普通对话轮次
const InteractionTypeChat = "chat"

// AnalyticsEvent 每轮对话写入一次的统计事件
type AnalyticsEvent struct {
	ID                    string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	TenantID              string    `json:"tenant_id" gorm:"type:varchar(64);index;not null"`
	SessionID             string    `json:"session_id" gorm:"type:varchar(36);index"`
	UserID                string    `json:"user_id,omitempty" gorm:"type:varchar(255)"`
	InteractionType       string    `json:"interaction_type" gorm:"type:varchar(50)"`
	EstimatedSatisfaction string    `json:"estimated_satisfaction" gorm:"type:varchar(20);index"`
	ResponseLength        int       `json:"response_length"`
	Tier                  string    `json:"tier" gorm:"type:varchar(20)"`
	CreatedAt             time.Time `json:"timestamp" gorm:"index"`
}

// BeforeCreate GORM 钩子
func (e *AnalyticsEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (AnalyticsEvent) TableName() string {
	return "analytics_events"
}

// NormalizeSentiment 把模型返回的情绪词归一为 positive / neutral / negative
func NormalizeSentiment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, SatisfactionNegative):
		return SatisfactionNegative
	case strings.Contains(s, SatisfactionPositive):
		return SatisfactionPositive
	default:
		return SatisfactionNeutral
	}
}
