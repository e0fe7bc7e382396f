package repository

import (
	"context"

	"github.com/ashwinyue/next-assistant/internal/model"
	"gorm.io/gorm"
)

// KnowledgeRepositoryImpl 知识条目数据访问
type KnowledgeRepositoryImpl struct {
	db *gorm.DB
}

// NewKnowledgeRepository 创建知识仓库
func NewKnowledgeRepository(db *gorm.DB) *KnowledgeRepositoryImpl {
	return &KnowledgeRepositoryImpl{db: db}
}

// Create 创建知识条目
func (r *KnowledgeRepositoryImpl) Create(ctx context.Context, entry *model.KnowledgeEntry) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}

// CreateBatch 批量创建知识条目，Seq 按切片顺序由数据库分配
func (r *KnowledgeRepositoryImpl) CreateBatch(ctx context.Context, entries []*model.KnowledgeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).CreateInBatches(entries, 100).Error)
}

// GetByID 获取租户下的知识条目
func (r *KnowledgeRepositoryImpl) GetByID(ctx context.Context, tenantID, id string) (*model.KnowledgeEntry, error) {
	var entry model.KnowledgeEntry
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&entry).Error
	if err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

// ListActive 列出租户的有效条目（插入顺序）
func (r *KnowledgeRepositoryImpl) ListActive(ctx context.Context, tenantID, category string) ([]*model.KnowledgeEntry, error) {
	var entries []*model.KnowledgeEntry
	query := r.db.WithContext(ctx).Where("tenant_id = ? AND is_active = ?", tenantID, true)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.Order("seq ASC").Find(&entries).Error
	return entries, translate(err)
}

// Deactivate 软删除知识条目
func (r *KnowledgeRepositoryImpl) Deactivate(ctx context.Context, tenantID, id string) error {
	result := r.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("is_active", false)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
