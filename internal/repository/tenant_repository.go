// Package repository 数据访问层
package repository

import (
	"context"

	"github.com/ashwinyue/next-assistant/internal/model"
	"gorm.io/gorm"
)

// TenantRepositoryImpl 租户仓库
type TenantRepositoryImpl struct {
	db *gorm.DB
}

// NewTenantRepository 创建租户仓库
func NewTenantRepository(db *gorm.DB) *TenantRepositoryImpl {
	return &TenantRepositoryImpl{db: db}
}

// Create 创建租户
func (r *TenantRepositoryImpl) Create(ctx context.Context, tenant *model.Tenant) error {
	return translate(r.db.WithContext(ctx).Create(tenant).Error)
}

// GetByID 根据 ID 获取租户
func (r *TenantRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error
	if err != nil {
		return nil, translate(err)
	}
	return &tenant, nil
}

// Update 更新租户
func (r *TenantRepositoryImpl) Update(ctx context.Context, tenant *model.Tenant) error {
	return translate(r.db.WithContext(ctx).Save(tenant).Error)
}
