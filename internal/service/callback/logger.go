// Package callback 把 eino 组件回调接入 zap 日志
package callback

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistant/internal/logger"
)

// Logger 实现 callbacks.Handler，记录模型调用的开始、结束和错误
type Logger struct {
	log *zap.Logger
}

// NewLogger 创建日志回调处理器
func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: logger.OrNop(log).Named("eino")}
}

func (l *Logger) fields(info *callbacks.RunInfo) []zap.Field {
	if info == nil {
		return nil
	}
	return []zap.Field{
		zap.String("name", info.Name),
		zap.String("type", info.Type),
		zap.String("component", string(info.Component)),
	}
}

// OnStart 记录输入消息数
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	fields := l.fields(info)
	if in := einomodel.ConvCallbackInput(input); in != nil {
		fields = append(fields, zap.Int("messages", len(in.Messages)))
	}
	l.log.Debug("model call started", fields...)
	return ctx
}

// OnEnd 记录 token 用量
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	fields := l.fields(info)
	if out := einomodel.ConvCallbackOutput(output); out != nil && out.TokenUsage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", out.TokenUsage.PromptTokens),
			zap.Int("completion_tokens", out.TokenUsage.CompletionTokens),
			zap.Int("total_tokens", out.TokenUsage.TotalTokens))
	}
	l.log.Debug("model call finished", fields...)
	return ctx
}

// OnError 模型调用失败
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	l.log.Warn("model call failed", append(l.fields(info), zap.Error(err))...)
	return ctx
}

// OnStartWithStreamInput 不读取流内容，直接关闭
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

// OnEndWithStreamOutput 不读取流内容，直接关闭
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}
