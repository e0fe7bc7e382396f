package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistant/internal/handler"
	"github.com/ashwinyue/next-assistant/internal/logger"
	"github.com/ashwinyue/next-assistant/internal/middleware"
)

// Options 路由选项
type Options struct {
	Logger *zap.Logger
	// Auth 为 nil 时租户接口不校验令牌
	Auth middleware.TokenValidator
	// Gatherer 为 nil 时不暴露 /metrics
	Gatherer prometheus.Gatherer
}

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, opts Options) *gin.Engine {
	log := logger.OrNop(opts.Logger)
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware(log))
	r.Use(middleware.LoggingMiddleware(log))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1
	v1 := r.Group("/api/v1")
	tenants := v1.Group("/tenants/:tenant_id")
	if opts.Auth != nil {
		tenants.Use(middleware.TenantAuth(opts.Auth))
	}
	{
		tenants.POST("/init", h.Tenant.Initialize)
		tenants.GET("", h.Tenant.Get)
		tenants.PUT("/training", h.Tenant.UpdateTraining)

		// Knowledge 知识库
		kb := tenants.Group("/knowledge")
		{
			kb.POST("", h.Knowledge.Add)
			kb.GET("", h.Knowledge.List)
			kb.POST("/upload", h.Knowledge.Upload)
			kb.GET("/search", h.Knowledge.Search)
			kb.DELETE("/:id", h.Knowledge.Deactivate)
		}

		// Chat 对话
		tenants.POST("/chat", h.Chat.Generate)
		tenants.GET("/sessions/:session_id/history", h.Chat.History)

		tenants.GET("/memory/:user_id", h.Memory.Get)
		tenants.GET("/analytics/summary", h.Analytics.Summary)
	}

	return r
}
