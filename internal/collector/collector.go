package collector

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"zabbix_input/internal/stats"
)

// SessionCounter источник числа активных сессий
type SessionCounter interface {
	Len() int
}

// Collector отвечает за сбор метрик сервиса
type Collector struct {
	logger      *zap.Logger
	counters    *stats.Counters
	sessions    SessionCounter
	cpuInterval time.Duration
	now         func() time.Time
}

// New создает новый экземпляр сборщика метрик
func New(counters *stats.Counters, sessions SessionCounter, logger *zap.Logger) *Collector {
	return &Collector{
		logger:      logger,
		counters:    counters,
		sessions:    sessions,
		cpuInterval: time.Second,
		now:         time.Now,
	}
}

// Collect собирает счетчики сервиса, метрики процесса и системы.
// Ошибка возвращается, только если не удалось собрать ни одну группу.
func (c *Collector) Collect(ctx context.Context) (*MetricSet, error) {
	c.logger.Debug("Starting metrics collection")

	metrics := &MetricSet{
		Timestamp: c.now(),
		Service:   c.counters.Snapshot(),
		Sessions:  c.sessions.Len(),
	}

	type result struct {
		name string
		err  error
	}

	// Каждая горутина пишет только в свою часть metrics
	results := make(chan result, 3)

	go func() {
		p, err := c.collectProcess(ctx)
		if err == nil {
			metrics.Process = *p
		}
		results <- result{name: "Process", err: err}
	}()

	go func() {
		cpuMetrics, err := c.collectCPU(ctx)
		if err == nil {
			metrics.CPU = *cpuMetrics
		}
		results <- result{name: "CPU", err: err}
	}()

	go func() {
		memMetrics, err := c.collectMemory(ctx)
		if err == nil {
			metrics.Memory = *memMetrics
		}
		results <- result{name: "Memory", err: err}
	}()

	var errors []string
	for i := 0; i < 3; i++ {
		select {
		case res := <-results:
			if res.err != nil {
				errors = append(errors, fmt.Sprintf("%s: %v", res.name, res.err))
				c.logger.Warn("Failed to collect metrics",
					zap.String("component", res.name),
					zap.Error(res.err))
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(errors) == 3 {
		return nil, fmt.Errorf("failed to collect all metrics: %v", errors)
	}
	metrics.Process.Goroutines = runtime.NumGoroutine()

	c.logger.Debug("Metrics collection completed",
		zap.Int("errors", len(errors)),
		zap.Time("timestamp", metrics.Timestamp))

	return metrics, nil
}

// collectProcess собирает метрики текущего процесса
func (c *Collector) collectProcess(ctx context.Context) (*ProcessMetrics, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to open own process: %w", err)
	}

	metrics := &ProcessMetrics{}

	memInfo, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get process memory: %w", err)
	}
	metrics.RSSBytes = memInfo.RSS

	// Остальное не критично
	if v, err := p.CPUPercentWithContext(ctx); err == nil {
		metrics.CPUPercent = v
	}
	if v, err := p.NumThreadsWithContext(ctx); err == nil {
		metrics.Threads = v
	}
	if v, err := p.NumFDsWithContext(ctx); err == nil {
		metrics.OpenFiles = v
	}

	return metrics, nil
}

// collectCPU собирает метрики процессора
func (c *Collector) collectCPU(ctx context.Context) (*CPUMetrics, error) {
	percentages, err := cpu.PercentWithContext(ctx, c.cpuInterval, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get CPU percentage: %w", err)
	}

	metrics := &CPUMetrics{}
	if len(percentages) > 0 {
		metrics.UsagePercent = percentages[0]
	}

	loadAvg, err := load.AvgWithContext(ctx)
	if err != nil {
		c.logger.Warn("Failed to get load average", zap.Error(err))
	} else {
		metrics.LoadAvg1 = loadAvg.Load1
	}

	return metrics, nil
}

// collectMemory собирает метрики памяти
func (c *Collector) collectMemory(ctx context.Context) (*MemoryMetrics, error) {
	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get memory statistics: %w", err)
	}

	return &MemoryMetrics{
		TotalBytes:     vmStat.Total,
		AvailableBytes: vmStat.Available,
		UsagePercent:   vmStat.UsedPercent,
	}, nil
}
