// Package stats счетчики работы сервиса для самомониторинга.
package stats

import "sync/atomic"

// Counters счетчики проверок; безопасны для конкурентного использования
type Counters struct {
	PagesChecked atomic.Uint64
	PageWarnings atomic.Uint64
	PageErrors   atomic.Uint64
	Unauthorized atomic.Uint64
	RateLimited  atomic.Uint64
	APICalls     atomic.Uint64
	APIRejected  atomic.Uint64
	APIFailed    atomic.Uint64
}

// Snapshot значения счетчиков на момент вызова
type Snapshot struct {
	PagesChecked uint64 `json:"pages_checked"`
	PageWarnings uint64 `json:"page_warnings"`
	PageErrors   uint64 `json:"page_errors"`
	Unauthorized uint64 `json:"unauthorized"`
	RateLimited  uint64 `json:"rate_limited"`
	APICalls     uint64 `json:"api_calls"`
	APIRejected  uint64 `json:"api_rejected"`
	APIFailed    uint64 `json:"api_failed"`
}

// Snapshot снимает значения всех счетчиков
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		PagesChecked: c.PagesChecked.Load(),
		PageWarnings: c.PageWarnings.Load(),
		PageErrors:   c.PageErrors.Load(),
		Unauthorized: c.Unauthorized.Load(),
		RateLimited:  c.RateLimited.Load(),
		APICalls:     c.APICalls.Load(),
		APIRejected:  c.APIRejected.Load(),
		APIFailed:    c.APIFailed.Load(),
	}
}
