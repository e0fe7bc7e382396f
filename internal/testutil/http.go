package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// CountingTransport 统计经过的 HTTP 请求数
type CountingTransport struct {
	next  http.RoundTripper
	count atomic.Int64
}

// NewCountingTransport 创建计数 Transport，next 为 nil 时使用默认 Transport
func NewCountingTransport(next http.RoundTripper) *CountingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &CountingTransport{next: next}
}

// RoundTrip 实现 http.RoundTripper 接口
func (t *CountingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.count.Add(1)
	return t.next.RoundTrip(req)
}

// Count 已发出的请求数
func (t *CountingTransport) Count() int {
	return int(t.count.Load())
}

// Client 返回使用该 Transport 的 HTTP 客户端
func (t *CountingTransport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// CompletionHandler 根据请求返回回复内容和状态码
type CompletionHandler func(req openai.ChatCompletionRequest) (content string, status int)

// NewOpenAIServer 启动一个 OpenAI 兼容的 /chat/completions 测试服务器
func NewOpenAIServer(t *testing.T, handler CompletionHandler) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" && r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		content, status := handler(req)
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": content, "type": "test_error"},
			})
			return
		}

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}
