package repository

import (
	"errors"

	"gorm.io/gorm"
)

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	Tenant    TenantRepository
	Knowledge KnowledgeRepository
	Session   SessionRepository
	Memory    MemoryRepository
	Analytics AnalyticsRepository
}

// NewRepositories 创建基于 gorm 的所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Tenant:    NewTenantRepository(db),
		Knowledge: NewKnowledgeRepository(db),
		Session:   NewChatRepository(db),
		Memory:    NewMemoryRepository(db),
		Analytics: NewAnalyticsRepository(db),
	}
}

// translate 把 gorm 错误映射为仓库错误
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
