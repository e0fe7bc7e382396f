package chat

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ashwinyue/next-assistant/internal/service/analytics"
	"github.com/ashwinyue/next-assistant/internal/service/memory"
	"github.com/ashwinyue/next-assistant/internal/service/provider"
)

type postTurn struct {
	tenantID    string
	sessionID   string
	userID      string
	userMessage string
	response    string
	tier        provider.Tier
}

// memoryQueue 同一用户的异步记忆更新按入队顺序逐个执行
type memoryQueue struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

// enqueue 返回前一个任务的完成信号（可能为 nil）和本任务结束时调用的 done
func (q *memoryQueue) enqueue(key string) (<-chan struct{}, func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tails == nil {
		q.tails = make(map[string]chan struct{})
	}
	prev := q.tails[key]
	cur := make(chan struct{})
	q.tails[key] = cur

	var once sync.Once
	return prev, func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			close(cur)
			if q.tails[key] == cur {
				delete(q.tails, key)
			}
		})
	}
}

// postProcess 记忆抽取和统计，失败只记录日志
// 同步模式在会话锁内完成；异步模式在锁内入队，记忆合并仍按轮次顺序生效
func (e *Engine) postProcess(ctx context.Context, t postTurn) {
	if e.memory == nil && e.analytics == nil {
		return
	}

	if !e.opts.AsyncPostProcess {
		e.runPostProcess(ctx, t, nil)
		return
	}

	var (
		prev <-chan struct{}
		done func()
	)
	if e.memory != nil && t.userID != "" {
		prev, done = e.memq.enqueue(t.tenantID + ":" + t.userID)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if done != nil {
			defer done()
		}
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.PostProcessTimeout)
		defer cancel()
		e.runPostProcess(bg, t, prev)
	}()
}

// runPostProcess prev 非 nil 时，记忆更新要等前一轮完成
func (e *Engine) runPostProcess(ctx context.Context, t postTurn, prev <-chan struct{}) {
	// 本地兜底的轮次不再发起任何远程调用
	offline := t.tier == provider.TierLocal

	log := e.logger.With(
		zap.String("tenant_id", t.tenantID),
		zap.String("session_id", t.sessionID))

	var g errgroup.Group
	if e.memory != nil && t.userID != "" {
		g.Go(func() error {
			if prev != nil {
				select {
				case <-prev:
				case <-ctx.Done():
				}
			}
			err := safely(func() error {
				_, err := e.memory.Update(ctx, memory.Turn{
					TenantID:       t.tenantID,
					UserID:         t.userID,
					UserMessage:    t.userMessage,
					Response:       t.response,
					SkipExtraction: offline,
				})
				return err
			})
			e.metrics.ObservePostProcess("memory", err)
			if err != nil {
				log.Warn("memory update failed", zap.String("user_id", t.userID), zap.Error(err))
			}
			return nil
		})
	}
	if e.analytics != nil {
		g.Go(func() error {
			err := safely(func() error {
				_, err := e.analytics.Record(ctx, analytics.Turn{
					TenantID:           t.tenantID,
					SessionID:          t.sessionID,
					UserID:             t.userID,
					Response:           t.response,
					Tier:               string(t.tier),
					SkipClassification: offline,
				})
				return err
			})
			e.metrics.ObservePostProcess("analytics", err)
			if err != nil {
				log.Warn("analytics record failed", zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// safely 把 panic 转成错误
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
