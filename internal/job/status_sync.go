// Package job 后台定时任务
package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StatusSyncer 将到期会话的状态写回存储，返回更新条数
type StatusSyncer interface {
	SyncStatuses(ctx context.Context) (int, error)
}

// Scheduler 基于 cron 的定时任务调度器
//
// 上一轮未结束时跳过本轮（SkipIfStillRunning），单轮有超时上限
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger
}

// NewScheduler 创建调度器，timeout 为单轮任务上限
func NewScheduler(timeout time.Duration, logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		timeout: timeout,
		logger:  logger,
	}
}

// AddStatusSync 注册会话状态同步任务
func (s *Scheduler) AddStatusSync(spec string, syncer StatusSyncer) error {
	_, err := s.cron.AddFunc(spec, func() { s.runStatusSync(syncer) })
	if err != nil {
		return err
	}
	s.logger.Info("已注册会话状态同步任务", zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) runStatusSync(syncer StatusSyncer) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := syncer.SyncStatuses(ctx)
	if err != nil {
		s.logger.Error("会话状态同步失败", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("会话状态同步完成",
			zap.Int("updated", n),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Start 启动调度（非阻塞）
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待运行中的任务结束，或 ctx 到期
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("等待定时任务结束超时")
	}
}

// cronLogger 将 cron 内部日志转到 zap
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
