package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KnowledgeEntry 租户知识条目，只做软删除（IsActive=false）；插入顺序以 Seq 为准
type KnowledgeEntry struct {
	ID         string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	Seq        int64      `json:"seq" gorm:"autoIncrement;not null;uniqueIndex"` // 全局插入序号，检索按它排序
	TenantID   string     `json:"tenant_id" gorm:"type:varchar(64);index:idx_knowledge_tenant_active;not null"`
	Title      string     `json:"title" gorm:"type:varchar(255)"`
	Content    string     `json:"content" gorm:"type:text"`
	Category   string     `json:"category" gorm:"type:varchar(100);index"`
	Tags       StringList `json:"tags" gorm:"type:jsonb"`
	Source     string     `json:"source" gorm:"type:varchar(255)"`
	FileType   string     `json:"file_type,omitempty" gorm:"type:varchar(50)"`
	FileName   string     `json:"file_name,omitempty" gorm:"type:varchar(255)"`
	ChunkIndex int        `json:"chunk_index"`
	IsActive   bool       `json:"is_active" gorm:"index:idx_knowledge_tenant_active"`
	CreatedAt  time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeCreate GORM 钩子，创建前生成 UUID
func (k *KnowledgeEntry) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (KnowledgeEntry) TableName() string {
	return "knowledge_entries"
}
