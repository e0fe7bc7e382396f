package handler

import (
	"github.com/ashwinyue/next-assistant/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Tenant    *TenantHandler
	Knowledge *KnowledgeHandler
	Chat      *ChatHandler
	Memory    *MemoryHandler
	Analytics *AnalyticsHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Tenant:    NewTenantHandler(svc),
		Knowledge: NewKnowledgeHandler(svc),
		Chat:      NewChatHandler(svc),
		Memory:    NewMemoryHandler(svc),
		Analytics: NewAnalyticsHandler(svc),
	}
}
