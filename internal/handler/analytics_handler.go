package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-assistant/internal/service"
)

// AnalyticsHandler 统计处理器
type AnalyticsHandler struct {
	svc *service.Services
}

// NewAnalyticsHandler 创建统计处理器
func NewAnalyticsHandler(svc *service.Services) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Summary 租户满意度汇总
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	summary, err := h.svc.Analytics.Summary(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, summary)
}
