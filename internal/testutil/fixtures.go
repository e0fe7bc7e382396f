// Package testutil 提供测试辅助工具
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ashwinyue/next-assistant/internal/service/provider"
)

// AssertHelper 提供断言相关的测试辅助
type AssertHelper struct {
	t *testing.T
}

// NewAssertHelper 创建断言辅助器
func NewAssertHelper(t *testing.T) *AssertHelper {
	return &AssertHelper{t: t}
}

// NoError 断言没有错误
func (h *AssertHelper) NoError(err error, msgAndArgs ...interface{}) {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("Unexpected error: %v %v", err, msgAndArgs)
	}
}

// ErrorIs 断言错误链中包含 target
func (h *AssertHelper) ErrorIs(err, target error, msgAndArgs ...interface{}) {
	h.t.Helper()
	if !errors.Is(err, target) {
		h.t.Fatalf("Expected error %v, got %v %v", target, err, msgAndArgs)
	}
}

// Equal 断言相等
func (h *AssertHelper) Equal(expected, actual interface{}, msgAndArgs ...interface{}) {
	h.t.Helper()
	if expected != actual {
		h.t.Fatalf("Expected %v, got %v %v", expected, actual, msgAndArgs)
	}
}

// Contains 断言字符串包含子串
func (h *AssertHelper) Contains(s, substr string, msgAndArgs ...interface{}) {
	h.t.Helper()
	if !strings.Contains(s, substr) {
		h.t.Fatalf("%q does not contain %q %v", s, substr, msgAndArgs)
	}
}

// NotEmpty 断言字符串非空
func (h *AssertHelper) NotEmpty(s string, msgAndArgs ...interface{}) {
	h.t.Helper()
	if strings.TrimSpace(s) == "" {
		h.t.Fatalf("Expected non-empty string %v", msgAndArgs)
	}
}

// True 断言为真
func (h *AssertHelper) True(condition bool, msgAndArgs ...interface{}) {
	h.t.Helper()
	if !condition {
		h.t.Fatalf("Expected true, got false %v", msgAndArgs)
	}
}

// FakeProvider 可编程的提供商，记录收到的请求
type FakeProvider struct {
	NameValue    string
	CompleteFunc func(ctx context.Context, req *provider.CompletionRequest) (string, error)

	calls    atomic.Int64
	mu       sync.Mutex
	requests []*provider.CompletionRequest
}

// ReplyProvider 总是返回固定文本
func ReplyProvider(name, reply string) *FakeProvider {
	return &FakeProvider{
		NameValue: name,
		CompleteFunc: func(context.Context, *provider.CompletionRequest) (string, error) {
			return reply, nil
		},
	}
}

// FailingProvider 总是返回 err
func FailingProvider(name string, err error) *FakeProvider {
	return &FakeProvider{
		NameValue: name,
		CompleteFunc: func(context.Context, *provider.CompletionRequest) (string, error) {
			return "", err
		},
	}
}

func (p *FakeProvider) Name() string { return p.NameValue }

func (p *FakeProvider) Complete(ctx context.Context, req *provider.CompletionRequest) (string, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	return p.CompleteFunc(ctx, req)
}

// Calls 调用次数
func (p *FakeProvider) Calls() int {
	return int(p.calls.Load())
}

// Requests 收到的请求副本
func (p *FakeProvider) Requests() []*provider.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*provider.CompletionRequest(nil), p.requests...)
}
