package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ashwinyue/next-assistant/internal/config"
	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/repository/inmem"
	"github.com/ashwinyue/next-assistant/internal/service/analytics"
	"github.com/ashwinyue/next-assistant/internal/service/fallback"
	"github.com/ashwinyue/next-assistant/internal/service/knowledge"
	"github.com/ashwinyue/next-assistant/internal/service/memory"
	"github.com/ashwinyue/next-assistant/internal/service/provider"
	"github.com/ashwinyue/next-assistant/internal/service/session"
	"github.com/ashwinyue/next-assistant/internal/service/tenant"
	"github.com/ashwinyue/next-assistant/internal/testutil"
)

type testEnv struct {
	engine    *Engine
	tenants   *tenant.Service
	knowledge *knowledge.Service
	sessions  *inmem.SessionRepository
	memories  *inmem.MemoryRepository
	events    *inmem.AnalyticsRepository
}

func newTestEnv(t *testing.T, opts Options, providers ...provider.Provider) *testEnv {
	t.Helper()

	sessionRepo := inmem.NewSessionRepository()
	memoryRepo := inmem.NewMemoryRepository()
	analyticsRepo := inmem.NewAnalyticsRepository()

	tenants := tenant.NewService(inmem.NewTenantRepository(), nil, "gpt-4o-mini", nil)
	kb := knowledge.NewService(inmem.NewKnowledgeRepository(), nil)
	chain := provider.NewChain(providers, fallback.NewResponder(), provider.WithTimeout(2*time.Second))
	locker := session.NewLocalLocker()

	engine := NewEngine(Deps{
		Tenants:   tenants,
		Knowledge: kb,
		Sessions:  session.NewManager(sessionRepo, nil),
		Generator: chain,
		Memory:    memory.NewService(memoryRepo, memory.NewExtractor(chain), locker, nil),
		Analytics: analytics.NewRecorder(analyticsRepo, chain, nil, nil),
		Locker:    locker,
	}, opts)

	return &testEnv{
		engine:    engine,
		tenants:   tenants,
		knowledge: kb,
		sessions:  sessionRepo,
		memories:  memoryRepo,
		events:    analyticsRepo,
	}
}

// seedAcme 初始化 acme 租户和一条退货政策
func (env *testEnv) seedAcme(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	if _, err := env.tenants.InitializeTenant(ctx, "acme", "support", "friendly"); err != nil {
		t.Fatalf("InitializeTenant() error = %v", err)
	}
	id, err := env.knowledge.AddKnowledge(ctx, "acme", &knowledge.AddKnowledgeRequest{
		Title:   "Return Policy",
		Content: "Returns accepted within 30 days.",
	})
	if err != nil {
		t.Fatalf("AddKnowledge() error = %v", err)
	}
	return id
}

// assistantProvider 主回复回显用户消息，辅助调用按系统提示词分流
func assistantProvider(name string) *testutil.FakeProvider {
	return &testutil.FakeProvider{
		NameValue: name,
		CompleteFunc: func(_ context.Context, req *provider.CompletionRequest) (string, error) {
			switch {
			case strings.HasPrefix(req.SystemPrompt, "You extract durable memory"):
				return `{"memories":{"name":"Ada"},"preferences":{"contact":"email"},"topic":"Returns","sentiment":"positive"}`, nil
			case strings.HasPrefix(req.SystemPrompt, "Classify the sentiment"):
				return "positive", nil
			default:
				return "echo: " + req.UserMessage, nil
			}
		},
	}
}

func TestGenerateResponse_AllProvidersUnconfigured(t *testing.T) {
	counter := testutil.NewCountingTransport(nil)
	primary, err := provider.NewEinoProvider(context.Background(), "primary", config.ProviderConfig{}, counter.Client())
	if err != nil {
		t.Fatalf("NewEinoProvider() error = %v", err)
	}
	secondary := provider.NewOpenAIProvider("secondary", config.ProviderConfig{}, counter.Client())

	env := newTestEnv(t, Options{}, primary, secondary)
	entryID := env.seedAcme(t)

	resp, err := env.engine.GenerateResponse(context.Background(), "acme", "s1", "What is your return policy?", "u1")
	if err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}
	if resp.Tier != string(provider.TierLocal) {
		t.Errorf("Tier = %q, want local", resp.Tier)
	}
	if !strings.Contains(resp.Response, "30 days") {
		t.Errorf("Response = %q, want mention of 30 days", resp.Response)
	}
	if len(resp.KnowledgeUsed) != 1 || resp.KnowledgeUsed[0] != entryID {
		t.Errorf("KnowledgeUsed = %v, want [%s]", resp.KnowledgeUsed, entryID)
	}
	if got := counter.Count(); got != 0 {
		t.Errorf("outbound requests = %d, want 0", got)
	}

	// 本地兜底的轮次不调用模型，统计记为 neutral，记忆只累加计数
	events := env.events.Events("acme")
	if len(events) != 1 || events[0].EstimatedSatisfaction != model.SatisfactionNeutral || events[0].Tier != "local" {
		t.Errorf("events = %+v", events)
	}
	rec, err := env.memories.Get(context.Background(), "acme", "u1")
	if err != nil {
		t.Fatalf("memory Get() error = %v", err)
	}
	if rec.Context.InteractionCount != 1 {
		t.Errorf("InteractionCount = %d, want 1", rec.Context.InteractionCount)
	}
}

func TestGenerateResponse_ProvidersDown(t *testing.T) {
	ts := testutil.NewOpenAIServer(t, func(openai.ChatCompletionRequest) (string, int) {
		return "", http.StatusServiceUnavailable
	})
	counter := testutil.NewCountingTransport(nil)
	cfg := config.ProviderConfig{APIKey: "sk-test", BaseURL: ts.URL, Model: "gpt-4o-mini"}

	env := newTestEnv(t, Options{},
		provider.NewOpenAIProvider("primary", cfg, counter.Client()),
		provider.NewOpenAIProvider("secondary", cfg, counter.Client()))
	env.seedAcme(t)

	assert := testutil.NewAssertHelper(t)
	resp, err := env.engine.GenerateResponse(context.Background(), "acme", "s1", "Tell me about returns", "u1")
	assert.NoError(err)
	assert.Equal(string(provider.TierLocal), resp.Tier)
	assert.Contains(resp.Response, "30 days")
	// 每级恰好一次尝试，后处理不再发请求
	assert.Equal(2, counter.Count(), "outbound requests")
}

func TestGenerateResponse_PersistsBothTurns(t *testing.T) {
	env := newTestEnv(t, Options{}, assistantProvider("primary"))
	env.seedAcme(t)
	ctx := context.Background()

	for _, msg := range []string{"hello", "what about returns?"} {
		if _, err := env.engine.GenerateResponse(ctx, "acme", "s1", msg, "u1"); err != nil {
			t.Fatalf("GenerateResponse(%q) error = %v", msg, err)
		}
	}

	history, err := env.engine.GetHistory(ctx, "acme", "s1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("len(history) = %d, want 4", len(history))
	}
	wantRoles := []string{model.RoleUser, model.RoleAssistant, model.RoleUser, model.RoleAssistant}
	for i, m := range history {
		if m.Role != wantRoles[i] {
			t.Errorf("history[%d].Role = %q, want %q", i, m.Role, wantRoles[i])
		}
	}

	last, err := env.engine.GetHistory(ctx, "acme", "s1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(last) != 2 || last[0].Content != "what about returns?" || last[1].Content != "echo: what about returns?" {
		t.Errorf("GetHistory(limit=2) = %v", last)
	}
	if len(last[1].KnowledgeUsed) != 1 {
		t.Errorf("assistant KnowledgeUsed = %v, want one entry", last[1].KnowledgeUsed)
	}
}

func TestGenerateResponse_RequestShape(t *testing.T) {
	primary := assistantProvider("primary")
	env := newTestEnv(t, Options{HistoryLimit: 5}, primary)
	env.seedAcme(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		if _, err := env.engine.GenerateResponse(ctx, "acme", "s1", fmt.Sprintf("question %d about returns", i), ""); err != nil {
			t.Fatal(err)
		}
	}

	var chats []*provider.CompletionRequest
	for _, req := range primary.Requests() {
		if !strings.HasPrefix(req.SystemPrompt, "Classify the sentiment") {
			chats = append(chats, req)
		}
	}
	if len(chats) != 4 {
		t.Fatalf("chat requests = %d, want 4", len(chats))
	}

	first := chats[0]
	if len(first.History) != 0 {
		t.Errorf("first turn history = %d, want 0", len(first.History))
	}
	if !strings.Contains(first.SystemPrompt, "Return Policy") || !strings.Contains(first.SystemPrompt, "friendly") {
		t.Errorf("SystemPrompt = %q", first.SystemPrompt)
	}
	if first.Params.Temperature != float32(tenant.DefaultTemperature) || first.Params.MaxTokens != tenant.DefaultMaxTokens {
		t.Errorf("Params = %+v", first.Params)
	}

	last := chats[3]
	if last.UserMessage != "question 4 about returns" {
		t.Errorf("UserMessage = %q", last.UserMessage)
	}
	// 6 条历史截取最近 5 条，不含本轮用户消息
	if len(last.History) != 5 {
		t.Fatalf("history = %d, want 5", len(last.History))
	}
	if got := last.History[4].Content; got != "echo: question 3 about returns" {
		t.Errorf("last history message = %q", got)
	}
}

func TestGenerateResponse_Errors(t *testing.T) {
	env := newTestEnv(t, Options{}, assistantProvider("primary"))
	ctx := context.Background()

	if _, err := env.engine.GenerateResponse(ctx, "acme", "s1", "   ", "u1"); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("empty message error = %v, want ErrEmptyMessage", err)
	}

	_, err := env.engine.GenerateResponse(ctx, "ghost", "s1", "hello", "u1")
	if !errors.Is(err, tenant.ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
	// 用户消息先于配置检查写入
	history, err := env.engine.GetHistory(ctx, "ghost", "s1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].Role != model.RoleUser {
		t.Errorf("history = %v, want the user message only", history)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	unlock, err := env.engine.locker.Lock(ctx, session.LockKey("acme", "busy"))
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()
	if _, err := env.engine.GenerateResponse(canceled, "acme", "busy", "hello", "u1"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestGenerateResponse_SameSessionIsSerialized(t *testing.T) {
	primary := &testutil.FakeProvider{
		NameValue: "primary",
		CompleteFunc: func(_ context.Context, req *provider.CompletionRequest) (string, error) {
			time.Sleep(2 * time.Millisecond)
			return "echo: " + req.UserMessage, nil
		},
	}
	env := newTestEnv(t, Options{}, primary)
	env.seedAcme(t)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := env.engine.GenerateResponse(ctx, "acme", "s1", fmt.Sprintf("message %d", i), ""); err != nil {
				t.Errorf("GenerateResponse() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	history, err := env.engine.GetHistory(ctx, "acme", "s1", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2*n {
		t.Fatalf("len(history) = %d, want %d", len(history), 2*n)
	}
	for i := 0; i < len(history); i += 2 {
		user, reply := history[i], history[i+1]
		if user.Role != model.RoleUser || reply.Role != model.RoleAssistant {
			t.Fatalf("history[%d:%d] roles = %s,%s", i, i+2, user.Role, reply.Role)
		}
		if reply.Content != "echo: "+user.Content {
			t.Errorf("reply %q does not answer %q", reply.Content, user.Content)
		}
	}
}

func TestGenerateResponse_PostProcessing(t *testing.T) {
	tests := []struct {
		name  string
		async bool
	}{
		{name: "sync", async: false},
		{name: "async", async: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{AsyncPostProcess: tt.async}, assistantProvider("primary"))
			env.seedAcme(t)

			resp, err := env.engine.GenerateResponse(context.Background(), "acme", "s1", "I'm Ada, returns?", "u1")
			if err != nil {
				t.Fatal(err)
			}
			if resp.Tier != string(provider.TierPrimary) {
				t.Errorf("Tier = %q, want primary", resp.Tier)
			}
			env.engine.Wait()

			rec, err := env.memories.Get(context.Background(), "acme", "u1")
			if err != nil {
				t.Fatalf("memory Get() error = %v", err)
			}
			if rec.Facts["name"] != "Ada" || rec.Preferences["contact"] != "email" {
				t.Errorf("record = %+v", rec)
			}
			if rec.Context.LastTopic != "returns" || rec.Context.LastSentiment != model.SatisfactionPositive {
				t.Errorf("context = %+v", rec.Context)
			}

			events := env.events.Events("acme")
			if len(events) != 1 {
				t.Fatalf("events = %d, want 1", len(events))
			}
			if events[0].EstimatedSatisfaction != model.SatisfactionPositive || events[0].Tier != "primary" {
				t.Errorf("event = %+v", events[0])
			}
		})
	}
}

func TestGenerateResponse_AnonymousSkipsMemory(t *testing.T) {
	env := newTestEnv(t, Options{}, assistantProvider("primary"))
	env.seedAcme(t)

	if _, err := env.engine.GenerateResponse(context.Background(), "acme", "s1", "hello", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := env.memories.Get(context.Background(), "acme", ""); err == nil {
		t.Error("memory record created for anonymous turn")
	}
	if got := len(env.events.Events("acme")); got != 1 {
		t.Errorf("events = %d, want 1", got)
	}
}

func TestGenerateResponse_MemoryMergesInTurnOrder(t *testing.T) {
	// 第一轮的记忆抽取明显慢于第二轮
	slowFirst := &testutil.FakeProvider{
		NameValue: "primary",
		CompleteFunc: func(ctx context.Context, req *provider.CompletionRequest) (string, error) {
			switch {
			case strings.HasPrefix(req.SystemPrompt, "You extract durable memory"):
				if strings.Contains(req.UserMessage, "Paris") {
					select {
					case <-time.After(200 * time.Millisecond):
					case <-ctx.Done():
						return "", ctx.Err()
					}
					return `{"memories":{"city":"Paris"},"topic":"first"}`, nil
				}
				return `{"memories":{"city":"Berlin"},"topic":"second"}`, nil
			case strings.HasPrefix(req.SystemPrompt, "Classify the sentiment"):
				return "neutral", nil
			default:
				return "noted", nil
			}
		},
	}

	tests := []struct {
		name     string
		async    bool
		sessions [2]string
	}{
		{name: "sync same session", async: false, sessions: [2]string{"s1", "s1"}},
		{name: "async same session", async: true, sessions: [2]string{"s1", "s1"}},
		{name: "async across sessions", async: true, sessions: [2]string{"s1", "s2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{AsyncPostProcess: tt.async}, slowFirst)
			env.seedAcme(t)
			ctx := context.Background()

			if _, err := env.engine.GenerateResponse(ctx, "acme", tt.sessions[0], "I live in Paris", "u1"); err != nil {
				t.Fatal(err)
			}
			if _, err := env.engine.GenerateResponse(ctx, "acme", tt.sessions[1], "I moved to Berlin", "u1"); err != nil {
				t.Fatal(err)
			}
			env.engine.Wait()

			rec, err := env.memories.Get(ctx, "acme", "u1")
			if err != nil {
				t.Fatalf("memory Get() error = %v", err)
			}
			if rec.Facts["city"] != "Berlin" || rec.Context.LastTopic != "second" {
				t.Errorf("city = %q, lastTopic = %q, want Berlin/second", rec.Facts["city"], rec.Context.LastTopic)
			}
			if rec.Context.InteractionCount != 2 {
				t.Errorf("InteractionCount = %d, want 2", rec.Context.InteractionCount)
			}
		})
	}
}

func TestMemoryQueue_Order(t *testing.T) {
	var q memoryQueue

	prev1, done1 := q.enqueue("acme:u1")
	if prev1 != nil {
		t.Fatal("first task should not wait")
	}
	prev2, done2 := q.enqueue("acme:u1")
	if prev2 == nil {
		t.Fatal("second task should wait for the first")
	}
	if other, doneOther := q.enqueue("acme:u2"); other != nil {
		t.Error("different users should not wait on each other")
	} else {
		doneOther()
	}

	select {
	case <-prev2:
		t.Fatal("second task released before the first finished")
	default:
	}
	done1()
	select {
	case <-prev2:
	case <-time.After(time.Second):
		t.Fatal("second task not released")
	}
	done2()
	done2()

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tails) != 0 {
		t.Errorf("queue not reclaimed: %d keys left", len(q.tails))
	}
}
