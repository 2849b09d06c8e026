package profiler

import (
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	rpprof "runtime/pprof"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config представляет конфигурацию профилировщика
type Config struct {
	Enable      bool   // включить профилирование
	CPUProfile  string // путь к файлу CPU профиля
	MemProfile  string // путь к файлу профиля памяти
	ProfileTime int    // время записи CPU профиля в секундах
}

// Profiler управляет профилированием приложения
type Profiler struct {
	config Config
	logger *zap.Logger

	mu      sync.Mutex
	cpuFile *os.File
	timer   *time.Timer
}

// New создает новый профилировщик
func New(config Config, logger *zap.Logger) *Profiler {
	return &Profiler{
		config: config,
		logger: logger,
	}
}

// Handler обработчики pprof под /debug/pprof/. Возвращает nil, если
// профилирование выключено.
func (p *Profiler) Handler() http.Handler {
	if !p.config.Enable {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// Start запускает профилирование
func (p *Profiler) Start() error {
	if !p.config.Enable {
		p.logger.Info("Profiling disabled")
		return nil
	}

	p.logger.Info("Starting profiler",
		zap.String("cpu_profile", p.config.CPUProfile),
		zap.String("mem_profile", p.config.MemProfile))

	if p.config.CPUProfile != "" {
		if err := p.startCPUProfile(); err != nil {
			return fmt.Errorf("failed to start CPU profiling: %w", err)
		}
	}

	return nil
}

// Stop останавливает профилирование
func (p *Profiler) Stop() error {
	if !p.config.Enable {
		return nil
	}

	var errors []error

	if err := p.stopCPUProfile(); err != nil {
		errors = append(errors, fmt.Errorf("failed to stop CPU profiling: %w", err))
	}

	if p.config.MemProfile != "" {
		if err := p.writeMemProfile(); err != nil {
			errors = append(errors, fmt.Errorf("failed to write memory profile: %w", err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("profiler shutdown errors: %v", errors)
	}

	p.logger.Info("Profiler stopped")
	return nil
}

// startCPUProfile начинает CPU профилирование в файл
func (p *Profiler) startCPUProfile() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	file, err := os.Create(p.config.CPUProfile)
	if err != nil {
		return fmt.Errorf("failed to create CPU profile file: %w", err)
	}

	if err := rpprof.StartCPUProfile(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to start CPU profiling: %w", err)
	}
	p.cpuFile = file

	p.logger.Info("Started CPU profiling", zap.String("file", p.config.CPUProfile))

	// Автоматически останавливаем через заданное время
	if p.config.ProfileTime > 0 {
		p.timer = time.AfterFunc(time.Duration(p.config.ProfileTime)*time.Second, func() {
			if err := p.stopCPUProfile(); err != nil {
				p.logger.Error("Failed to stop CPU profiling", zap.Error(err))
			}
		})
	}

	return nil
}

// stopCPUProfile останавливает CPU профилирование
func (p *Profiler) stopCPUProfile() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cpuFile == nil {
		return nil
	}

	rpprof.StopCPUProfile()

	file := p.cpuFile
	p.cpuFile = nil
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close CPU profile file: %w", err)
	}

	p.logger.Info("Stopped CPU profiling", zap.String("file", p.config.CPUProfile))
	return nil
}

// writeMemProfile записывает профиль памяти в файл
func (p *Profiler) writeMemProfile() error {
	file, err := os.Create(p.config.MemProfile)
	if err != nil {
		return fmt.Errorf("failed to create memory profile file: %w", err)
	}
	defer file.Close()

	// Принудительно запускаем GC для точного профиля памяти
	runtime.GC()

	if err := rpprof.WriteHeapProfile(file); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}

	p.logger.Info("Written memory profile", zap.String("file", p.config.MemProfile))
	return nil
}

// LogMemStats логирует статистику памяти
func (p *Profiler) LogMemStats() {
	if !p.config.Enable {
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	p.logger.Info("Memory statistics",
		zap.Uint64("alloc_mb", m.Alloc/1024/1024),
		zap.Uint64("total_alloc_mb", m.TotalAlloc/1024/1024),
		zap.Uint64("sys_mb", m.Sys/1024/1024),
		zap.Uint32("num_gc", m.NumGC),
		zap.Int("goroutines", runtime.NumGoroutine()),
	)
}
