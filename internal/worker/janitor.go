package worker

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Sweeper drops expired entries and reports how many it removed.
type Sweeper interface {
	Sweep() int
}

// SweeperFunc adapts a function to Sweeper.
type SweeperFunc func() int

func (f SweeperFunc) Sweep() int { return f() }

// Janitor periodically sweeps the in-process stores: idle session states,
// expired temporary tokens and idle rate limit buckets.
type Janitor struct {
	interval time.Duration
	sweepers map[string]Sweeper
	logger   *zap.Logger
}

// NewJanitor builds a janitor running every interval.
func NewJanitor(interval time.Duration, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{interval: interval, sweepers: map[string]Sweeper{}, logger: logger}
}

// Add registers a sweeper under name. Nil sweepers are ignored.
func (j *Janitor) Add(name string, s Sweeper) {
	if s == nil {
		return
	}
	j.sweepers[name] = s
}

// RunOnce sweeps every registered store and returns the removal counts.
func (j *Janitor) RunOnce() map[string]int {
	names := make([]string, 0, len(j.sweepers))
	for name := range j.sweepers {
		names = append(names, name)
	}
	sort.Strings(names)

	removed := make(map[string]int, len(names))
	for _, name := range names {
		n := j.sweepers[name].Sweep()
		removed[name] = n
		if n > 0 {
			j.logger.Debug("janitor sweep", zap.String("store", name), zap.Int("removed", n))
		}
	}
	return removed
}

// Start runs the janitor in the background until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	if j.interval <= 0 || len(j.sweepers) == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.RunOnce()
			}
		}
	}()
}
