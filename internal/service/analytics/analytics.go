// Package analytics 为每轮对话估计满意度并写入统计事件
package analytics

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistant/internal/logger"
	"github.com/ashwinyue/next-assistant/internal/metrics"
	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/repository"
	"github.com/ashwinyue/next-assistant/internal/service/provider"
)

const classifyPrompt = `Classify the sentiment of the following assistant reply as experienced by the customer.
Answer with exactly one word: positive, neutral or negative.`

// Turn 一轮已完成的对话
type Turn struct {
	TenantID  string
	SessionID string
	UserID    string
	Response  string
	Tier      string
	// SkipClassification 为 true 时不调用模型，满意度记为 neutral
	SkipClassification bool
}

// Recorder 统计记录器
type Recorder struct {
	repo       repository.AnalyticsRepository
	classifier provider.Provider
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewRecorder 创建统计记录器
func NewRecorder(repo repository.AnalyticsRepository, classifier provider.Provider, m *metrics.Metrics, log *zap.Logger) *Recorder {
	return &Recorder{
		repo:       repo,
		classifier: classifier,
		metrics:    m,
		logger:     logger.OrNop(log).Named("analytics"),
		now:        time.Now,
	}
}

// Classify 单词情绪分类，失败时返回 neutral
func (r *Recorder) Classify(ctx context.Context, response string) string {
	text, err := r.classifier.Complete(ctx, &provider.CompletionRequest{
		SystemPrompt: classifyPrompt,
		UserMessage:  response,
		Params:       provider.Params{Temperature: 0.1, MaxTokens: 5},
	})
	if err != nil {
		r.logger.Debug("sentiment classification failed", zap.Error(err))
		return model.SatisfactionNeutral
	}
	return model.NormalizeSentiment(text)
}

// Record 写入一条统计事件
func (r *Recorder) Record(ctx context.Context, turn Turn) (*model.AnalyticsEvent, error) {
	satisfaction := model.SatisfactionNeutral
	if !turn.SkipClassification {
		satisfaction = r.Classify(ctx, turn.Response)
	}

	event := &model.AnalyticsEvent{
		TenantID:              turn.TenantID,
		SessionID:             turn.SessionID,
		UserID:                turn.UserID,
		InteractionType:       model.InteractionTypeChat,
		EstimatedSatisfaction: satisfaction,
		ResponseLength:        utf8.RuneCountInString(turn.Response),
		Tier:                  turn.Tier,
		CreatedAt:             r.now(),
	}
	if err := r.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record analytics event: %w", err)
	}

	r.metrics.ObserveSatisfaction(satisfaction)
	return event, nil
}

// Summary 租户统计汇总
func (r *Recorder) Summary(ctx context.Context, tenantID string) (*repository.AnalyticsSummary, error) {
	s, err := r.repo.Summary(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize analytics: %w", err)
	}
	// 固定三个分类都有值
	for _, k := range []string{model.SatisfactionPositive, model.SatisfactionNeutral, model.SatisfactionNegative} {
		if _, ok := s.BySatisfaction[k]; !ok {
			if s.BySatisfaction == nil {
				s.BySatisfaction = make(map[string]int64, 3)
			}
			s.BySatisfaction[k] = 0
		}
	}
	return s, nil
}
