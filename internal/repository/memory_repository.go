package repository

import (
	"context"

	"github.com/ashwinyue/next-assistant/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemoryRepositoryImpl 用户记忆数据访问
type MemoryRepositoryImpl struct {
	db *gorm.DB
}

// NewMemoryRepository 创建记忆仓库
func NewMemoryRepository(db *gorm.DB) *MemoryRepositoryImpl {
	return &MemoryRepositoryImpl{db: db}
}

// Get 获取用户记忆
func (r *MemoryRepositoryImpl) Get(ctx context.Context, tenantID, userID string) (*model.MemoryRecord, error) {
	var record model.MemoryRecord
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND user_id = ?", tenantID, userID).First(&record).Error
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// Save 按 (tenant_id, user_id) 写入或覆盖记忆
func (r *MemoryRepositoryImpl) Save(ctx context.Context, record *model.MemoryRecord) error {
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"facts", "preferences", "context", "updated_at"}),
	}).Create(record).Error)
}
