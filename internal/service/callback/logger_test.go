package callback

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLogger(zap.New(core))
	ctx := context.Background()
	info := &callbacks.RunInfo{Name: "primary", Type: "OpenAI", Component: components.ComponentOfChatModel}

	l.OnStart(ctx, info, &einomodel.CallbackInput{Messages: []*schema.Message{schema.UserMessage("hi")}})
	l.OnEnd(ctx, info, &einomodel.CallbackOutput{
		Message:    schema.AssistantMessage("hello", nil),
		TokenUsage: &einomodel.TokenUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
	})
	l.OnError(ctx, info, errors.New("quota exceeded"))

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if got := entries[0].ContextMap()["messages"]; got != int64(1) {
		t.Errorf("messages = %v, want 1", got)
	}
	if got := entries[1].ContextMap()["total_tokens"]; got != int64(5) {
		t.Errorf("total_tokens = %v, want 5", got)
	}
	if entries[2].Level != zapcore.WarnLevel || entries[2].ContextMap()["name"] != "primary" {
		t.Errorf("error entry = %+v", entries[2])
	}
}
