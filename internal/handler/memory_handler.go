package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-assistant/internal/service"
)

// MemoryHandler 用户记忆处理器
type MemoryHandler struct {
	svc *service.Services
}

// NewMemoryHandler 创建记忆处理器
func NewMemoryHandler(svc *service.Services) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

// Get 读取用户记忆
func (h *MemoryHandler) Get(c *gin.Context) {
	rec, err := h.svc.Memory.Get(c.Request.Context(), c.Param("tenant_id"), c.Param("user_id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, rec)
}
