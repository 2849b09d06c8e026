// Package scheduler периодические задачи сервиса: очистка сессий и
// отправка метрик самомониторинга в Zabbix.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"zabbix_input/internal/collector"
	"zabbix_input/internal/config"
	zbx "zabbix_input/pkg/zabbix"
)

// Collector источник метрик
type Collector interface {
	Collect(ctx context.Context) (*collector.MetricSet, error)
}

// Reporter получатель метрик
type Reporter interface {
	Initialize(ctx context.Context, hostName string) error
	SendMetrics(ctx context.Context, metrics *collector.MetricSet) error
}

// Purger хранилище с истекающими записями
type Purger interface {
	Purge() int
}

// Scheduler отвечает за планирование и координацию работы
type Scheduler struct {
	config    *config.Config
	collector Collector
	reporter  Reporter
	sessions  Purger
	logger    *zap.Logger

	purgeInterval  time.Duration
	collectTimeout time.Duration
	initialized    bool
}

// New создает планировщик. reporter может быть nil, тогда метрики не отправляются.
func New(cfg *config.Config, coll Collector, reporter Reporter, sessions Purger, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		config:         cfg,
		collector:      coll,
		reporter:       reporter,
		sessions:       sessions,
		logger:         logger,
		purgeInterval:  time.Minute,
		collectTimeout: 30 * time.Second,
	}
}

// Run выполняет задачи до отмены ctx
func (s *Scheduler) Run(ctx context.Context) error {
	monitoring := s.config.MonitorEnable && s.reporter != nil
	s.logger.Info("Starting scheduler",
		zap.Bool("monitoring", monitoring),
		zap.Duration("interval", s.config.Interval),
		zap.String("zabbix_host", s.config.ZabbixHost))

	purge := time.NewTicker(s.purgeInterval)
	defer purge.Stop()

	var tick <-chan time.Time
	if monitoring {
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		tick = ticker.C

		// Выполняем первый сбор сразу
		s.collectAndSend(ctx)
	}

	for {
		select {
		case <-purge.C:
			if n := s.sessions.Purge(); n > 0 {
				s.logger.Info("Expired sessions removed", zap.Int("count", n))
			}
		case <-tick:
			s.collectAndSend(ctx)
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		}
	}
}

// collectAndSend собирает метрики и отправляет их в Zabbix
func (s *Scheduler) collectAndSend(parent context.Context) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, s.collectTimeout)
	defer cancel()

	if !s.initialized {
		if err := s.reporter.Initialize(ctx, s.config.ZabbixHost); err != nil {
			s.logger.Error("Failed to initialize Zabbix client", zap.Error(err))
			return
		}
		s.initialized = true
	}

	metrics, err := s.collector.Collect(ctx)
	if err != nil {
		s.logger.Error("Failed to collect metrics", zap.Error(err))
		return
	}

	collectDuration := time.Since(start)

	sendStart := time.Now()
	if err := s.sendMetricsWithRetry(ctx, metrics); err != nil {
		s.logger.Error("Failed to send metrics after retries", zap.Error(err))
		return
	}

	s.logger.Info("Metrics processed successfully",
		zap.Duration("collect_time", collectDuration),
		zap.Duration("send_time", time.Since(sendStart)),
		zap.Duration("total_time", time.Since(start)),
		zap.Time("timestamp", metrics.Timestamp))
}

// sendMetricsWithRetry отправляет метрики с экспоненциальной задержкой между попытками
func (s *Scheduler) sendMetricsWithRetry(ctx context.Context, metrics *collector.MetricSet) error {
	var lastErr error
	backoff := s.config.RetryBackoffBase

	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("Retrying metric send",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", s.config.MaxRetries),
				zap.Duration("backoff", backoff))

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}

			backoff *= 2
		}

		err := s.reporter.SendMetrics(ctx, metrics)
		if err == nil {
			if attempt > 0 {
				s.logger.Info("Metrics sent successfully after retry",
					zap.Int("attempts", attempt+1))
			}
			return nil
		}

		lastErr = err
		s.logger.Warn("Failed to send metrics",
			zap.Error(err),
			zap.Int("attempt", attempt+1))

		if isAuthError(err) && attempt < s.config.MaxRetries-1 {
			s.logger.Info("Authentication error detected, re-initializing Zabbix client")
			if reInitErr := s.reporter.Initialize(ctx, s.config.ZabbixHost); reInitErr != nil {
				s.logger.Error("Failed to re-initialize Zabbix client", zap.Error(reInitErr))
			}
		}
	}

	return fmt.Errorf("failed to send metrics after %d attempts: %w", s.config.MaxRetries, lastErr)
}

// isAuthError ошибка API о недействительной сессии
func isAuthError(err error) bool {
	var rpcErr *zbx.JSONRPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return strings.Contains(rpcErr.Data, "Session terminated") || strings.Contains(rpcErr.Data, "Not authorised")
}
