// Package model 提供租户、知识、会话、记忆与统计的数据模型
package model

import "time"

// Tenant 租户（品牌）助手配置，每个租户一条
type Tenant struct {
	ID                   string     `json:"tenant_id" gorm:"type:varchar(64);primaryKey"`
	ExpertiseDomain      string     `json:"expertise_domain" gorm:"type:varchar(64);not null"`
	Personality          string     `json:"personality" gorm:"type:text"`
	SystemPromptTemplate string     `json:"system_prompt_template" gorm:"type:text"`
	Disclaimers          StringList `json:"disclaimers" gorm:"type:jsonb"`
	TrainingInstructions StringList `json:"training_instructions" gorm:"type:jsonb"`

	// 模型参数
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	ModelName   string  `json:"model_name" gorm:"type:varchar(128)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Tenant) TableName() string {
	return "tenants"
}
