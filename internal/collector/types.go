package collector

import (
	"strconv"
	"time"

	"zabbix_input/internal/stats"
)

// Value types элементов данных Zabbix
const (
	ValueFloat    = 0
	ValueUnsigned = 3
)

// MetricSet содержит метрики сервиса на момент сбора
type MetricSet struct {
	Timestamp time.Time      `json:"timestamp"`
	Service   stats.Snapshot `json:"service"`
	Sessions  int            `json:"sessions"`
	Process   ProcessMetrics `json:"process"`
	CPU       CPUMetrics     `json:"cpu"`
	Memory    MemoryMetrics  `json:"memory"`
}

// ProcessMetrics метрики процесса сервиса
type ProcessMetrics struct {
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	Threads    int32   `json:"threads"`
	OpenFiles  int32   `json:"open_files"`
	Goroutines int     `json:"goroutines"`
}

// CPUMetrics содержит метрики процессора
type CPUMetrics struct {
	UsagePercent float64 `json:"usage_percent"`
	LoadAvg1     float64 `json:"load_avg_1"`
}

// MemoryMetrics содержит метрики памяти
type MemoryMetrics struct {
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsagePercent   float64 `json:"usage_percent"`
}

// Item элемент данных, который должен существовать на узле в Zabbix
type Item struct {
	Key         string
	Name        string
	ValueType   int
	Description string
}

// Items возвращает список элементов данных самомониторинга
func Items() []Item {
	return []Item{
		// Проверка полей страниц
		{Key: "zbxinput.pages.checked", Name: "Pages checked", ValueType: ValueUnsigned, Description: "Page requests passed through field checks"},
		{Key: "zbxinput.pages.warnings", Name: "Pages with warnings", ValueType: ValueUnsigned},
		{Key: "zbxinput.pages.errors", Name: "Pages aborted", ValueType: ValueUnsigned, Description: "Requests aborted as incorrect"},
		{Key: "zbxinput.unauthorized", Name: "Unauthorized requests", ValueType: ValueUnsigned},
		{Key: "zbxinput.rate_limited", Name: "Rate limited requests", ValueType: ValueUnsigned},

		// API
		{Key: "zbxinput.api.calls", Name: "API calls", ValueType: ValueUnsigned},
		{Key: "zbxinput.api.rejected", Name: "API calls with invalid params", ValueType: ValueUnsigned},
		{Key: "zbxinput.api.failed", Name: "API calls failed", ValueType: ValueUnsigned},
		{Key: "zbxinput.sessions", Name: "Active sessions", ValueType: ValueUnsigned},

		// Процесс
		{Key: "proc.cpu.util[zbxinput]", Name: "Process CPU utilization", ValueType: ValueFloat},
		{Key: "proc.mem[zbxinput,,,,rss]", Name: "Process resident memory", ValueType: ValueUnsigned},
		{Key: "proc.num.threads[zbxinput]", Name: "Process threads", ValueType: ValueUnsigned},
		{Key: "proc.fds[zbxinput]", Name: "Process open files", ValueType: ValueUnsigned},
		{Key: "zbxinput.goroutines", Name: "Goroutines", ValueType: ValueUnsigned},

		// Система
		{Key: "system.cpu.util", Name: "CPU utilization", ValueType: ValueFloat},
		{Key: "system.cpu.load[all,avg1]", Name: "Load average (1m avg)", ValueType: ValueFloat},
		{Key: "vm.memory.size[total]", Name: "Total memory", ValueType: ValueUnsigned},
		{Key: "vm.memory.size[available]", Name: "Available memory", ValueType: ValueUnsigned},
		{Key: "vm.memory.util", Name: "Memory utilization", ValueType: ValueFloat},
	}
}

// Values значения элементов данных по ключу
func (m *MetricSet) Values() map[string]string {
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

	return map[string]string{
		"zbxinput.pages.checked":  u(m.Service.PagesChecked),
		"zbxinput.pages.warnings": u(m.Service.PageWarnings),
		"zbxinput.pages.errors":   u(m.Service.PageErrors),
		"zbxinput.unauthorized":   u(m.Service.Unauthorized),
		"zbxinput.rate_limited":   u(m.Service.RateLimited),
		"zbxinput.api.calls":      u(m.Service.APICalls),
		"zbxinput.api.rejected":   u(m.Service.APIRejected),
		"zbxinput.api.failed":     u(m.Service.APIFailed),
		"zbxinput.sessions":       strconv.Itoa(m.Sessions),

		"proc.cpu.util[zbxinput]":    f(m.Process.CPUPercent),
		"proc.mem[zbxinput,,,,rss]":  u(m.Process.RSSBytes),
		"proc.num.threads[zbxinput]": strconv.Itoa(int(m.Process.Threads)),
		"proc.fds[zbxinput]":         strconv.Itoa(int(m.Process.OpenFiles)),
		"zbxinput.goroutines":        strconv.Itoa(m.Process.Goroutines),

		"system.cpu.util":           f(m.CPU.UsagePercent),
		"system.cpu.load[all,avg1]": f(m.CPU.LoadAvg1),
		"vm.memory.size[total]":     u(m.Memory.TotalBytes),
		"vm.memory.size[available]": u(m.Memory.AvailableBytes),
		"vm.memory.util":            f(m.Memory.UsagePercent),
	}
}
