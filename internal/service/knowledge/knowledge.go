// Package knowledge 提供租户知识的存储与检索
// 检索是对租户有效条目的线性扫描加关键词包含匹配，结果保持插入顺序，不做语义排序
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistant/internal/logger"
	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/repository"
)

var (
	// ErrEntryNotFound 知识条目不存在或不属于该租户
	ErrEntryNotFound = errors.New("knowledge entry not found")
	// ErrInvalidEntry 条目缺少标题或内容
	ErrInvalidEntry = errors.New("knowledge entry requires title and content")
	// ErrEmptyContent 上传文本为空
	ErrEmptyContent = errors.New("uploaded content is empty")
)

// 上传分块的固定标签
const uploadedTag = "uploaded"

// Service 知识服务
type Service struct {
	repo   repository.KnowledgeRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewService 创建知识服务
func NewService(repo repository.KnowledgeRepository, log *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.OrNop(log).Named("knowledge"),
		now:    time.Now,
	}
}

// AddKnowledgeRequest 添加知识请求
type AddKnowledgeRequest struct {
	Title    string   `json:"title" binding:"required"`
	Content  string   `json:"content" binding:"required"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	FileType string   `json:"file_type"`
	FileName string   `json:"file_name"`
	Source   string   `json:"source"`
}

// AddKnowledge 添加一条有效的知识条目，返回条目 ID
func (s *Service) AddKnowledge(ctx context.Context, tenantID string, req *AddKnowledgeRequest) (string, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return "", ErrInvalidEntry
	}

	source := req.Source
	if source == "" {
		source = "manual"
	}

	entry := &model.KnowledgeEntry{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Title:     req.Title,
		Content:   req.Content,
		Category:  req.Category,
		Tags:      uniqueTags(req.Tags...),
		Source:    source,
		FileType:  req.FileType,
		FileName:  req.FileName,
		IsActive:  true,
		CreatedAt: s.now(),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return "", fmt.Errorf("failed to create knowledge entry: %w", err)
	}

	s.logger.Debug("knowledge entry added",
		zap.String("tenant_id", tenantID),
		zap.String("entry_id", entry.ID),
		zap.String("category", entry.Category))
	return entry.ID, nil
}

// UploadFromText 把原始文本按句子边界切块，每块生成一个条目，按分块顺序返回
func (s *Service) UploadFromText(ctx context.Context, tenantID, fileName, fileType, rawText, category string) ([]*model.KnowledgeEntry, error) {
	chunks, err := ChunkText(ctx, rawText)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyContent
	}

	now := s.now()
	tags := uniqueTags(fileType, category, uploadedTag)
	entries := make([]*model.KnowledgeEntry, 0, len(chunks))
	for i, chunk := range chunks {
		entries = append(entries, &model.KnowledgeEntry{
			ID:         uuid.New().String(),
			TenantID:   tenantID,
			Title:      fmt.Sprintf("%s - Part %d", fileName, i+1),
			Content:    chunk,
			Category:   category,
			Tags:       append(model.StringList(nil), tags...),
			Source:     "upload:" + fileName,
			FileType:   fileType,
			FileName:   fileName,
			ChunkIndex: i,
			IsActive:   true,
			CreatedAt:  now,
		})
	}

	if err := s.repo.CreateBatch(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to store uploaded chunks: %w", err)
	}

	s.logger.Info("knowledge uploaded",
		zap.String("tenant_id", tenantID),
		zap.String("file_name", fileName),
		zap.Int("chunks", len(entries)))
	return entries, nil
}

// Search 返回租户有效条目中，标题、内容或标签包含任一查询关键词的条目（插入顺序）
func (s *Service) Search(ctx context.Context, tenantID, query, category string) ([]*model.KnowledgeEntry, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return []*model.KnowledgeEntry{}, nil
	}

	entries, err := s.repo.ListActive(ctx, tenantID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}

	matches := make([]*model.KnowledgeEntry, 0)
	for _, e := range entries {
		// 仓库已按租户过滤，这里再校验一次隔离
		if e.TenantID != tenantID || !e.IsActive {
			continue
		}
		if ContainsAny(searchText(e), tokens) {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

// List 列出租户有效条目
func (s *Service) List(ctx context.Context, tenantID, category string) ([]*model.KnowledgeEntry, error) {
	entries, err := s.repo.ListActive(ctx, tenantID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}
	return entries, nil
}

// Deactivate 软删除条目，重复调用无副作用
func (s *Service) Deactivate(ctx context.Context, tenantID, id string) error {
	if err := s.repo.Deactivate(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("failed to deactivate knowledge entry: %w", err)
	}
	return nil
}

// searchText 匹配范围：标题 + 内容 + 标签
func searchText(e *model.KnowledgeEntry) string {
	var b strings.Builder
	b.WriteString(e.Title)
	b.WriteByte('\n')
	b.WriteString(e.Content)
	for _, tag := range e.Tags {
		b.WriteByte('\n')
		b.WriteString(tag)
	}
	return b.String()
}

// uniqueTags 去空去重，保持顺序
func uniqueTags(tags ...string) model.StringList {
	out := make(model.StringList, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || out.Contains(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
