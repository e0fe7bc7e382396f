// Package tenant 提供租户助手配置管理
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistant/internal/logger"
	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/repository"
	"github.com/ashwinyue/next-assistant/internal/service/prompt"
)

var (
	// ErrNotConfigured 租户尚未初始化
	ErrNotConfigured = errors.New("tenant is not configured")
	// ErrInvalidTenantID 租户 ID 为空
	ErrInvalidTenantID = errors.New("tenant id is required")
)

// 默认模型参数
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
)

// Service 租户服务
type Service struct {
	repo         repository.TenantRepository
	cache        Cache
	defaultModel string
	logger       *zap.Logger
}

// NewService 创建租户服务，cache 为 nil 时不缓存
func NewService(repo repository.TenantRepository, cache Cache, defaultModel string, log *zap.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{
		repo:         repo,
		cache:        cache,
		defaultModel: defaultModel,
		logger:       logger.OrNop(log).Named("tenant"),
	}
}

// InitializeTenant 初始化租户配置；已存在时原样返回
func (s *Service) InitializeTenant(ctx context.Context, tenantID, domain, personality string) (*model.Tenant, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}

	existing, err := s.repo.GetByID(ctx, tenantID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		domain = prompt.DefaultDomain
	}

	t := &model.Tenant{
		ID:                   tenantID,
		ExpertiseDomain:      domain,
		Personality:          strings.TrimSpace(personality),
		Disclaimers:          prompt.DefaultDisclaimers(domain),
		TrainingInstructions: model.StringList{},
		Temperature:          DefaultTemperature,
		MaxTokens:            DefaultMaxTokens,
		ModelName:            s.defaultModel,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		// 并发初始化时以先写入者为准
		if errors.Is(err, repository.ErrDuplicate) {
			return s.repo.GetByID(ctx, tenantID)
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.logger.Info("tenant initialized",
		zap.String("tenant_id", tenantID),
		zap.String("domain", domain),
		zap.Bool("known_domain", prompt.IsKnownDomain(domain)))
	return t, nil
}

// UpdateTrainingRequest 训练提示词更新，nil 字段保持不变
type UpdateTrainingRequest struct {
	CustomSystemPrompt   *string  `json:"custom_system_prompt"`
	CustomPersonality    *string  `json:"custom_personality"`
	TrainingInstructions []string `json:"training_instructions"`
}

// UpdateTrainingPrompts 更新自定义模板、人设和训练指令
// TrainingInstructions 非 nil 时整体替换
func (s *Service) UpdateTrainingPrompts(ctx context.Context, tenantID string, req *UpdateTrainingRequest) (*model.Tenant, error) {
	t, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if req.CustomSystemPrompt != nil {
		t.SystemPromptTemplate = strings.TrimSpace(*req.CustomSystemPrompt)
	}
	if req.CustomPersonality != nil {
		t.Personality = strings.TrimSpace(*req.CustomPersonality)
	}
	if req.TrainingInstructions != nil {
		instructions := make(model.StringList, 0, len(req.TrainingInstructions))
		for _, ins := range req.TrainingInstructions {
			if ins = strings.TrimSpace(ins); ins != "" {
				instructions = append(instructions, ins)
			}
		}
		t.TrainingInstructions = instructions
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	if err := s.cache.Delete(ctx, tenantID); err != nil {
		s.logger.Warn("failed to invalidate tenant cache", zap.String("tenant_id", tenantID), zap.Error(err))
	}

	s.logger.Info("tenant training updated",
		zap.String("tenant_id", tenantID),
		zap.Int("instructions", len(t.TrainingInstructions)))
	return t, nil
}

// Get 获取租户配置，优先读缓存
func (s *Service) Get(ctx context.Context, tenantID string) (*model.Tenant, error) {
	if t, ok, err := s.cache.Get(ctx, tenantID); err != nil {
		s.logger.Warn("tenant cache read failed", zap.String("tenant_id", tenantID), zap.Error(err))
	} else if ok {
		return t, nil
	}

	t, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, t); err != nil {
		s.logger.Warn("tenant cache write failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	return t, nil
}

// load 直接读库
func (s *Service) load(ctx context.Context, tenantID string) (*model.Tenant, error) {
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotConfigured, tenantID)
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}
