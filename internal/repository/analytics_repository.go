package repository

import (
	"context"

	"github.com/ashwinyue/next-assistant/internal/model"
	"gorm.io/gorm"
)

// AnalyticsRepositoryImpl 统计事件数据访问
type AnalyticsRepositoryImpl struct {
	db *gorm.DB
}

// NewAnalyticsRepository 创建统计仓库
func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepositoryImpl {
	return &AnalyticsRepositoryImpl{db: db}
}

// Create 写入统计事件
func (r *AnalyticsRepositoryImpl) Create(ctx context.Context, event *model.AnalyticsEvent) error {
	return translate(r.db.WithContext(ctx).Create(event).Error)
}

// Summary 按满意度汇总租户统计
func (r *AnalyticsRepositoryImpl) Summary(ctx context.Context, tenantID string) (*AnalyticsSummary, error) {
	var rows []struct {
		EstimatedSatisfaction string
		Count                 int64
		TotalLength           int64
	}
	err := r.db.WithContext(ctx).Model(&model.AnalyticsEvent{}).
		Select("estimated_satisfaction, COUNT(*) AS count, COALESCE(SUM(response_length), 0) AS total_length").
		Where("tenant_id = ?", tenantID).
		Group("estimated_satisfaction").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	summary := &AnalyticsSummary{TenantID: tenantID, BySatisfaction: make(map[string]int64)}
	var totalLength int64
	for _, row := range rows {
		summary.BySatisfaction[row.EstimatedSatisfaction] = row.Count
		summary.Total += row.Count
		totalLength += row.TotalLength
	}
	if summary.Total > 0 {
		summary.AvgResponseLength = float64(totalLength) / float64(summary.Total)
	}
	return summary, nil
}
