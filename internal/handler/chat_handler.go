package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/service"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// ChatHandler 对话处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建对话处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// GenerateRequest 对话请求
type GenerateRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
	UserID    string `json:"user_id"`
}

// Generate 生成一轮回复
func (h *ChatHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	resp, err := h.svc.Engine.GenerateResponse(c.Request.Context(), c.Param("tenant_id"), req.SessionID, req.Message, req.UserID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, resp)
}

// History 会话历史，时间正序
func (h *ChatHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit <= 0 {
		BadRequest(c, "limit must be a positive integer")
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	msgs, err := h.svc.Engine.GetHistory(c.Request.Context(), c.Param("tenant_id"), c.Param("session_id"), limit)
	if err != nil {
		Error(c, err)
		return
	}
	if msgs == nil {
		msgs = []*model.ChatMessage{}
	}
	Success(c, gin.H{"items": msgs, "total": len(msgs)})
}
