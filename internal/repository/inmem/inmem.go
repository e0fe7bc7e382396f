// Package inmem 提供进程内的仓库实现，用于测试和无数据库的本地运行
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/repository"
)

// NewRepositories 创建内存仓库集合
func NewRepositories() *repository.Repositories {
	return &repository.Repositories{
		Tenant:    NewTenantRepository(),
		Knowledge: NewKnowledgeRepository(),
		Session:   NewSessionRepository(),
		Memory:    NewMemoryRepository(),
		Analytics: NewAnalyticsRepository(),
	}
}

// ========== Tenant ==========

// TenantRepository 内存租户仓库
type TenantRepository struct {
	mu      sync.RWMutex
	tenants map[string]model.Tenant
}

// NewTenantRepository 创建内存租户仓库
func NewTenantRepository() *TenantRepository {
	return &TenantRepository{tenants: make(map[string]model.Tenant)}
}

func (r *TenantRepository) Create(_ context.Context, tenant *model.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[tenant.ID]; ok {
		return repository.ErrDuplicate
	}
	now := time.Now()
	tenant.CreatedAt, tenant.UpdatedAt = now, now
	r.tenants[tenant.ID] = cloneTenant(tenant)
	return nil
}

func (r *TenantRepository) GetByID(_ context.Context, id string) (*model.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneTenant(&t)
	return &out, nil
}

func (r *TenantRepository) Update(_ context.Context, tenant *model.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[tenant.ID]; !ok {
		return repository.ErrNotFound
	}
	tenant.UpdatedAt = time.Now()
	r.tenants[tenant.ID] = cloneTenant(tenant)
	return nil
}

func cloneTenant(t *model.Tenant) model.Tenant {
	out := *t
	out.Disclaimers = append(model.StringList(nil), t.Disclaimers...)
	out.TrainingInstructions = append(model.StringList(nil), t.TrainingInstructions...)
	return out
}

// ========== Knowledge ==========

// KnowledgeRepository 内存知识仓库，切片顺序即插入顺序
type KnowledgeRepository struct {
	mu      sync.RWMutex
	entries []*model.KnowledgeEntry
	seq     int64
}

// NewKnowledgeRepository 创建内存知识仓库
func NewKnowledgeRepository() *KnowledgeRepository {
	return &KnowledgeRepository{}
}

func (r *KnowledgeRepository) Create(_ context.Context, entry *model.KnowledgeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insert(entry)
	return nil
}

func (r *KnowledgeRepository) CreateBatch(_ context.Context, entries []*model.KnowledgeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.insert(e)
	}
	return nil
}

func (r *KnowledgeRepository) insert(entry *model.KnowledgeEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.UpdatedAt = entry.CreatedAt
	r.seq++
	entry.Seq = r.seq
	c := cloneEntry(entry)
	r.entries = append(r.entries, &c)
}

func (r *KnowledgeRepository) GetByID(_ context.Context, tenantID, id string) (*model.KnowledgeEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ID == id {
			c := cloneEntry(e)
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *KnowledgeRepository) ListActive(_ context.Context, tenantID, category string) ([]*model.KnowledgeEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.KnowledgeEntry, 0)
	for _, e := range r.entries {
		if e.TenantID != tenantID || !e.IsActive {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		c := cloneEntry(e)
		out = append(out, &c)
	}
	return out, nil
}

func (r *KnowledgeRepository) Deactivate(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ID == id {
			e.IsActive = false
			e.UpdatedAt = time.Now()
			return nil
		}
	}
	return repository.ErrNotFound
}

func cloneEntry(e *model.KnowledgeEntry) model.KnowledgeEntry {
	out := *e
	out.Tags = append(model.StringList(nil), e.Tags...)
	return out
}

// ========== Session ==========

// SessionRepository 内存会话仓库
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*model.ConversationSession // id -> session
	messages map[string][]*model.ChatMessage      // session id -> messages
}

// NewSessionRepository 创建内存会话仓库
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*model.ConversationSession),
		messages: make(map[string][]*model.ChatMessage),
	}
}

func (r *SessionRepository) CreateSession(_ context.Context, session *model.ConversationSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TenantID == session.TenantID && s.ExternalSessionID == session.ExternalSessionID {
			return repository.ErrDuplicate
		}
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	c := *session
	r.sessions[session.ID] = &c
	return nil
}

func (r *SessionRepository) GetSession(_ context.Context, tenantID, id string) (*model.ConversationSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r *SessionRepository) GetSessionByExternalID(_ context.Context, tenantID, externalID string) (*model.ConversationSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.TenantID == tenantID && s.ExternalSessionID == externalID {
			c := *s
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *SessionRepository) TouchSession(_ context.Context, tenantID, id string, at time.Time, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.TenantID != tenantID {
		return repository.ErrNotFound
	}
	if at.After(s.LastActiveAt) {
		s.LastActiveAt = at
	}
	if s.UserID == "" && userID != "" {
		s.UserID = userID
	}
	return nil
}

func (r *SessionRepository) AppendMessage(_ context.Context, msg *model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[msg.SessionID]; !ok {
		return repository.ErrNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.Seq = int64(len(r.messages[msg.SessionID]) + 1)
	c := *msg
	c.KnowledgeUsed = append(model.StringList(nil), msg.KnowledgeUsed...)
	r.messages[msg.SessionID] = append(r.messages[msg.SessionID], &c)
	return nil
}

func (r *SessionRepository) RecentMessages(_ context.Context, tenantID, sessionID string, limit int) ([]*model.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.messages[sessionID]
	start := 0
	if limit > 0 && len(all) > limit {
		start = len(all) - limit
	}
	out := make([]*model.ChatMessage, 0, len(all)-start)
	for _, m := range all[start:] {
		if m.TenantID != tenantID {
			continue
		}
		c := *m
		out = append(out, &c)
	}
	return out, nil
}

// MessageCount 返回会话消息总数（测试用）
func (r *SessionRepository) MessageCount(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages[sessionID])
}

// ========== Memory ==========

// MemoryRepository 内存记忆仓库
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]model.MemoryRecord
}

// NewMemoryRepository 创建内存记忆仓库
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]model.MemoryRecord)}
}

func memoryKey(tenantID, userID string) string {
	return tenantID + "\x00" + userID
}

func (r *MemoryRepository) Get(_ context.Context, tenantID, userID string) (*model.MemoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[memoryKey(tenantID, userID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneMemory(&rec)
	return &out, nil
}

func (r *MemoryRepository) Save(_ context.Context, record *model.MemoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memoryKey(record.TenantID, record.UserID)
	now := time.Now()
	if existing, ok := r.records[key]; ok {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	} else {
		if record.ID == "" {
			record.ID = uuid.New().String()
		}
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	r.records[key] = cloneMemory(record)
	return nil
}

func cloneMemory(rec *model.MemoryRecord) model.MemoryRecord {
	out := *rec
	out.Facts = rec.Facts.Clone()
	out.Preferences = rec.Preferences.Clone()
	return out
}

// ========== Analytics ==========

// AnalyticsRepository 内存统计仓库
type AnalyticsRepository struct {
	mu     sync.RWMutex
	events []model.AnalyticsEvent
}

// NewAnalyticsRepository 创建内存统计仓库
func NewAnalyticsRepository() *AnalyticsRepository {
	return &AnalyticsRepository{}
}

func (r *AnalyticsRepository) Create(_ context.Context, event *model.AnalyticsEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *AnalyticsRepository) Summary(_ context.Context, tenantID string) (*repository.AnalyticsSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	summary := &repository.AnalyticsSummary{TenantID: tenantID, BySatisfaction: make(map[string]int64)}
	var totalLength int64
	for _, e := range r.events {
		if e.TenantID != tenantID {
			continue
		}
		summary.Total++
		summary.BySatisfaction[e.EstimatedSatisfaction]++
		totalLength += int64(e.ResponseLength)
	}
	if summary.Total > 0 {
		summary.AvgResponseLength = float64(totalLength) / float64(summary.Total)
	}
	return summary, nil
}

// Events 返回租户的全部事件（测试用）
func (r *AnalyticsRepository) Events(tenantID string) []model.AnalyticsEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.AnalyticsEvent, 0)
	for _, e := range r.events {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out
}

var (
	_ repository.TenantRepository    = (*TenantRepository)(nil)
	_ repository.KnowledgeRepository = (*KnowledgeRepository)(nil)
	_ repository.SessionRepository   = (*SessionRepository)(nil)
	_ repository.MemoryRepository    = (*MemoryRepository)(nil)
	_ repository.AnalyticsRepository = (*AnalyticsRepository)(nil)
)
