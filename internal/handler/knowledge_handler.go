package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/service"
	"github.com/ashwinyue/next-assistant/internal/service/knowledge"
)

// KnowledgeHandler 知识库处理器
type KnowledgeHandler struct {
	svc *service.Services
}

// NewKnowledgeHandler 创建知识库处理器
func NewKnowledgeHandler(svc *service.Services) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

// UploadTextRequest 文本上传请求
type UploadTextRequest struct {
	FileName string `json:"file_name" binding:"required"`
	FileType string `json:"file_type"`
	Content  string `json:"content" binding:"required"`
	Category string `json:"category"`
}

// Add 添加知识条目
func (h *KnowledgeHandler) Add(c *gin.Context) {
	var req knowledge.AddKnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	id, err := h.svc.Knowledge.AddKnowledge(c.Request.Context(), c.Param("tenant_id"), &req)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, gin.H{"id": id})
}

// Upload 按句子切块上传文本
func (h *KnowledgeHandler) Upload(c *gin.Context) {
	var req UploadTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	entries, err := h.svc.Knowledge.UploadFromText(c.Request.Context(), c.Param("tenant_id"),
		req.FileName, req.FileType, req.Content, req.Category)
	if err != nil {
		Error(c, err)
		return
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	Created(c, gin.H{"ids": ids})
}

// Search 关键词检索
func (h *KnowledgeHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		BadRequest(c, "query parameter q is required")
		return
	}

	entries, err := h.svc.Knowledge.Search(c.Request.Context(), c.Param("tenant_id"), query, c.Query("category"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, listData(entries))
}

// List 列出有效条目
func (h *KnowledgeHandler) List(c *gin.Context) {
	entries, err := h.svc.Knowledge.List(c.Request.Context(), c.Param("tenant_id"), c.Query("category"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, listData(entries))
}

// Deactivate 软删除条目
func (h *KnowledgeHandler) Deactivate(c *gin.Context) {
	if err := h.svc.Knowledge.Deactivate(c.Request.Context(), c.Param("tenant_id"), c.Param("id")); err != nil {
		Error(c, err)
		return
	}
	NoContent(c)
}

func listData(entries []*model.KnowledgeEntry) gin.H {
	if entries == nil {
		entries = []*model.KnowledgeEntry{}
	}
	return gin.H{"items": entries, "total": len(entries)}
}
