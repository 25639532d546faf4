package pipeline

import (
	"log/slog"
	"sync/atomic"

	"github.com/bmordue/snowline/internal/domain"
)

// Progress receives a callback for each finished date. DateProcessed may be
// called from several goroutines at once.
type Progress interface {
	Start(total int)
	DateProcessed(result domain.SnowlineResult)
}

// NopProgress discards progress updates.
type NopProgress struct{}

func (NopProgress) Start(int)                           {}
func (NopProgress) DateProcessed(domain.SnowlineResult) {}

// LogProgress reports progress through a structured logger.
type LogProgress struct {
	logger *slog.Logger
	total  atomic.Int64
	done   atomic.Int64
}

func NewLogProgress(logger *slog.Logger) *LogProgress {
	return &LogProgress{logger: logger}
}

func (p *LogProgress) Start(total int) {
	p.total.Store(int64(total))
	p.done.Store(0)
}

func (p *LogProgress) DateProcessed(r domain.SnowlineResult) {
	n := p.done.Add(1)
	p.logger.Info("date processed",
		"date", r.Date.Format(domain.DateLayout),
		"status", r.Status,
		"observations", r.ObservationCount,
		"done", n,
		"total", p.total.Load(),
	)
}
