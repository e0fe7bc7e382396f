package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-assistant/internal/repository"
	"github.com/ashwinyue/next-assistant/internal/service/chat"
	"github.com/ashwinyue/next-assistant/internal/service/knowledge"
	"github.com/ashwinyue/next-assistant/internal/service/memory"
	"github.com/ashwinyue/next-assistant/internal/service/session"
	"github.com/ashwinyue/next-assistant/internal/service/tenant"
)

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Success 成功响应 (200)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// Created 创建成功响应 (201)
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

// NoContent 无内容响应 (204)
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Msg: msg})
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Code: http.StatusNotFound, Msg: msg})
}

// InternalServerError 500 错误响应
func InternalServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Code: http.StatusInternalServerError, Msg: msg})
}

// Error 根据错误类型返回相应的错误响应，5xx 只返回通用信息
func Error(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	switch {
	case errors.Is(err, tenant.ErrNotConfigured),
		errors.Is(err, knowledge.ErrEntryNotFound),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, memory.ErrMemoryNotFound),
		errors.Is(err, repository.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, knowledge.ErrInvalidEntry),
		errors.Is(err, knowledge.ErrEmptyContent),
		errors.Is(err, tenant.ErrInvalidTenantID):
		BadRequest(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: http.StatusServiceUnavailable, Msg: "request timed out, please retry"})
	default:
		InternalServerError(c, "internal server error")
	}
}
