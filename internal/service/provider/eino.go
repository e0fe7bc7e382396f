package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/ashwinyue/next-assistant/internal/config"
)

// EinoProvider 基于 eino ChatModel 的提供商
type EinoProvider struct {
	name      string
	chatModel einomodel.BaseChatModel
	handlers  []callbacks.Handler
}

// NewEinoProvider 用 OpenAI 兼容接口创建提供商；未配置 API Key 时返回 Unconfigured
// handlers 在每次调用时注入 ctx
func NewEinoProvider(ctx context.Context, name string, cfg config.ProviderConfig, httpClient *http.Client, handlers ...callbacks.Handler) (Provider, error) {
	if !cfg.Configured() {
		return Unconfigured(name), nil
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      modelName,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model for %s: %w", name, err)
	}
	return NewEinoProviderFromModel(name, cm, handlers...), nil
}

// NewEinoProviderFromModel 包装已有的 ChatModel
func NewEinoProviderFromModel(name string, cm einomodel.BaseChatModel, handlers ...callbacks.Handler) *EinoProvider {
	return &EinoProvider{name: name, chatModel: cm, handlers: handlers}
}

func (p *EinoProvider) Name() string { return p.name }

func (p *EinoProvider) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	var opts []einomodel.Option
	if req.Params.Temperature > 0 {
		opts = append(opts, einomodel.WithTemperature(req.Params.Temperature))
	}
	if req.Params.MaxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(req.Params.MaxTokens))
	}
	if req.Params.Model != "" {
		opts = append(opts, einomodel.WithModel(req.Params.Model))
	}

	if len(p.handlers) > 0 {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      p.name,
			Type:      "OpenAI",
			Component: components.ComponentOfChatModel,
		}, p.handlers...)
	}

	resp, err := p.chatModel.Generate(ctx, req.Messages(), opts...)
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Content), nil
}
