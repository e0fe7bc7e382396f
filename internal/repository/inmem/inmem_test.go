package inmem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/repository"
)

func TestSessionRepository_DuplicateExternalID(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	first := &model.ConversationSession{TenantID: "acme", ExternalSessionID: "s1"}
	if err := repo.CreateSession(ctx, first); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	dup := &model.ConversationSession{TenantID: "acme", ExternalSessionID: "s1"}
	if err := repo.CreateSession(ctx, dup); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("CreateSession() error = %v, want ErrDuplicate", err)
	}
	// 不同租户可以使用相同的外部会话键
	other := &model.ConversationSession{TenantID: "globex", ExternalSessionID: "s1"}
	if err := repo.CreateSession(ctx, other); err != nil {
		t.Fatalf("CreateSession() other tenant error = %v", err)
	}
	if _, err := repo.GetSession(ctx, "globex", first.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetSession() across tenants error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_TouchNeverMovesBackwards(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	now := time.Now()
	s := &model.ConversationSession{TenantID: "acme", ExternalSessionID: "s1", CreatedAt: now, LastActiveAt: now}
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	if err := repo.TouchSession(ctx, "acme", s.ID, now.Add(-time.Hour), "u1"); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetSession(ctx, "acme", s.ID)
	if !got.LastActiveAt.Equal(now) {
		t.Errorf("LastActiveAt = %v, want %v", got.LastActiveAt, now)
	}
	if got.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", got.UserID)
	}
}

func TestSessionRepository_RecentMessages(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	s := &model.ConversationSession{TenantID: "acme", ExternalSessionID: "s1"}
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatal(err)
	}
	for _, content := range []string{"one", "two", "three"} {
		if err := repo.AppendMessage(ctx, &model.ChatMessage{TenantID: "acme", SessionID: s.ID, Role: model.RoleUser, Content: content}); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := repo.RecentMessages(ctx, "acme", s.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Content != "two" || msgs[1].Content != "three" {
		t.Fatalf("RecentMessages() = %v", msgs)
	}
	if msgs[0].Seq != 2 || msgs[1].Seq != 3 {
		t.Errorf("Seq = %d,%d want 2,3", msgs[0].Seq, msgs[1].Seq)
	}

	for _, limit := range []int{0, -1} {
		all, err := repo.RecentMessages(ctx, "acme", s.ID, limit)
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 3 || all[0].Content != "one" {
			t.Errorf("RecentMessages(limit=%d) = %v, want all 3", limit, all)
		}
	}
}

func TestKnowledgeRepository_ListActiveIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	repo := NewKnowledgeRepository()
	a := &model.KnowledgeEntry{TenantID: "acme", Title: "A", IsActive: true, Category: "faq"}
	b := &model.KnowledgeEntry{TenantID: "globex", Title: "B", IsActive: true, Category: "faq"}
	c := &model.KnowledgeEntry{TenantID: "acme", Title: "C", IsActive: true, Category: "policy"}
	if err := repo.CreateBatch(ctx, []*model.KnowledgeEntry{a, b, c}); err != nil {
		t.Fatal(err)
	}

	all, _ := repo.ListActive(ctx, "acme", "")
	if len(all) != 2 || all[0].Title != "A" || all[1].Title != "C" {
		t.Fatalf("ListActive() = %v", all)
	}
	if all[0].Seq >= all[1].Seq {
		t.Errorf("Seq not increasing: %d, %d", all[0].Seq, all[1].Seq)
	}
	faq, _ := repo.ListActive(ctx, "acme", "faq")
	if len(faq) != 1 || faq[0].Title != "A" {
		t.Fatalf("ListActive(faq) = %v", faq)
	}

	if err := repo.Deactivate(ctx, "globex", a.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Deactivate() across tenants error = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepository_SaveKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	first := &model.MemoryRecord{TenantID: "acme", UserID: "u1", Facts: model.StringMap{"a": "1"}}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &model.MemoryRecord{TenantID: "acme", UserID: "u1", Facts: model.StringMap{"a": "2"}}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("ID changed on upsert: %s != %s", second.ID, first.ID)
	}
	got, err := repo.Get(ctx, "acme", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Facts["a"] != "2" {
		t.Errorf("Facts[a] = %q, want 2", got.Facts["a"])
	}
}

func TestAnalyticsRepository_Summary(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalyticsRepository()
	for _, e := range []model.AnalyticsEvent{
		{TenantID: "acme", EstimatedSatisfaction: model.SatisfactionPositive, ResponseLength: 10},
		{TenantID: "acme", EstimatedSatisfaction: model.SatisfactionNeutral, ResponseLength: 30},
		{TenantID: "globex", EstimatedSatisfaction: model.SatisfactionNegative, ResponseLength: 99},
	} {
		e := e
		if err := repo.Create(ctx, &e); err != nil {
			t.Fatal(err)
		}
	}

	s, err := repo.Summary(ctx, "acme")
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 2 || s.BySatisfaction[model.SatisfactionPositive] != 1 || s.BySatisfaction[model.SatisfactionNegative] != 0 {
		t.Errorf("Summary() = %+v", s)
	}
	if s.AvgResponseLength != 20 {
		t.Errorf("AvgResponseLength = %v, want 20", s.AvgResponseLength)
	}
}
