package job

import (
	"github.com/postdeck/calendar-engine/internal/service"
)

// CacheSweepJob evicts calendar ranges nobody has looked at recently.
type CacheSweepJob struct {
	cache service.CalendarService
}

func NewCacheSweepJob(cache service.CalendarService) *CacheSweepJob {
	return &CacheSweepJob{cache: cache}
}

func (c *CacheSweepJob) Sweep() {
	c.cache.Sweep()
}
