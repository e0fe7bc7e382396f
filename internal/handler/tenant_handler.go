package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-assistant/internal/service"
	"github.com/ashwinyue/next-assistant/internal/service/tenant"
)

// TenantHandler 租户配置处理器
type TenantHandler struct {
	svc *service.Services
}

// NewTenantHandler 创建租户处理器
func NewTenantHandler(svc *service.Services) *TenantHandler {
	return &TenantHandler{svc: svc}
}

// InitializeTenantRequest 初始化租户请求
type InitializeTenantRequest struct {
	ExpertiseDomain string `json:"expertise_domain"`
	Personality     string `json:"personality"`
}

// Initialize 初始化租户，重复调用返回已有配置
func (h *TenantHandler) Initialize(c *gin.Context) {
	var req InitializeTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	cfg, err := h.svc.Tenant.InitializeTenant(c.Request.Context(), c.Param("tenant_id"), req.ExpertiseDomain, req.Personality)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, cfg)
}

// UpdateTraining 更新自定义提示词
func (h *TenantHandler) UpdateTraining(c *gin.Context) {
	var req tenant.UpdateTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	cfg, err := h.svc.Tenant.UpdateTrainingPrompts(c.Request.Context(), c.Param("tenant_id"), &req)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, cfg)
}

// Get 获取租户配置
func (h *TenantHandler) Get(c *gin.Context) {
	cfg, err := h.svc.Tenant.Get(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, cfg)
}
