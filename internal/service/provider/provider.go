// Package provider 定义对话补全提供商，以及按层级降级的调用链
package provider

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-assistant/internal/model"
)

var (
	// ErrUnconfigured 提供商未配置（缺少 API Key），不会发起网络请求
	ErrUnconfigured = errors.New("provider is not configured")
	// ErrEmptyCompletion 提供商返回空内容
	ErrEmptyCompletion = errors.New("provider returned an empty completion")
	// ErrExhausted 所有远程提供商都失败
	ErrExhausted = errors.New("all providers failed")
)

// Params 模型参数，零值表示使用提供商默认值
type Params struct {
	Temperature float32
	MaxTokens   int
	Model       string
}

// CompletionRequest 一次补全请求
type CompletionRequest struct {
	SystemPrompt string
	History      []*schema.Message
	UserMessage  string
	Params       Params

	// 本地兜底使用的上下文，远程提供商忽略
	ExpertiseDomain string
	Knowledge       []*model.KnowledgeEntry
}

// Messages 按 system -> history -> user 顺序组装消息
func (r *CompletionRequest) Messages() []*schema.Message {
	msgs := make([]*schema.Message, 0, len(r.History)+2)
	if r.SystemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(r.SystemPrompt))
	}
	msgs = append(msgs, r.History...)
	msgs = append(msgs, schema.UserMessage(r.UserMessage))
	return msgs
}

// Provider 对话补全提供商
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}

// Responder 本地兜底应答，不得发起网络调用，总是返回非空文本
type Responder interface {
	Respond(req *CompletionRequest) string
}

// unconfigured 缺少凭据的提供商
type unconfigured struct {
	name string
}

// Unconfigured 返回一个总是失败的提供商
func Unconfigured(name string) Provider {
	return unconfigured{name: name}
}

func (u unconfigured) Name() string { return u.name }

func (u unconfigured) Complete(context.Context, *CompletionRequest) (string, error) {
	return "", ErrUnconfigured
}
