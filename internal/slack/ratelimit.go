package slack

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerMinute is the sustained call rate per workspace.
	DefaultRequestsPerMinute = 50

	// MaxBackoff caps the interval multiplier.
	MaxBackoff = 60.0
)

// DefaultRateInterval is the minimum spacing between calls at
// DefaultRequestsPerMinute.
var DefaultRateInterval = time.Minute / DefaultRequestsPerMinute

// RateController spaces outgoing calls of one client. Callers are let
// through one at a time, and each waits until interval*multiplier has passed
// since the previous caller was let through, using the multiplier in effect
// when its wait ends. Backoff stretches the interval; Reset restores it.
type RateController struct {
	acquireMu sync.Mutex

	mu         sync.Mutex
	interval   time.Duration
	multiplier float64
	gen        uint64 // bumped on every multiplier change
	last       time.Time

	// Owned by the holder of acquireMu.
	limiter *rate.Limiter
	limGen  uint64
}

// NewRateController creates a controller allowing one call per interval.
// A non-positive interval disables spacing.
func NewRateController(interval time.Duration) *RateController {
	return &RateController{
		interval:   interval,
		multiplier: 1,
	}
}

// Acquire blocks until the next call may be issued or ctx is done.
func (rc *RateController) Acquire(ctx context.Context) error {
	rc.acquireMu.Lock()
	defer rc.acquireMu.Unlock()

	for {
		lim, gen := rc.currentLimiter()
		if err := lim.Wait(ctx); err != nil {
			return err
		}

		rc.mu.Lock()
		now := time.Now()
		// A backoff that landed during the wait moves the deadline out.
		if gen != rc.gen && !rc.last.IsZero() && now.Before(rc.last.Add(rc.effectiveLocked())) {
			rc.mu.Unlock()
			continue
		}
		rc.last = now
		rc.mu.Unlock()
		return nil
	}
}

// currentLimiter returns a burst-1 limiter at the current effective rate.
// When the multiplier has changed it is rebuilt with its single token spent
// at the previous release, so the next permit falls exactly one effective
// interval after it and nothing accrued at the old rate carries over.
func (rc *RateController) currentLimiter() (*rate.Limiter, uint64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.limiter == nil || rc.limGen != rc.gen {
		rc.limiter = rate.NewLimiter(rc.limitLocked(), 1)
		if !rc.last.IsZero() {
			rc.limiter.ReserveN(rc.last, 1)
		}
		rc.limGen = rc.gen
	}
	return rc.limiter, rc.limGen
}

// Backoff doubles the interval multiplier, up to MaxBackoff.
func (rc *RateController) Backoff() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	next := rc.multiplier * 2
	if next > MaxBackoff {
		next = MaxBackoff
	}
	if next == rc.multiplier {
		return
	}
	rc.multiplier = next
	rc.gen++
}

// Reset restores the multiplier to 1.
func (rc *RateController) Reset() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.multiplier == 1 {
		return
	}
	rc.multiplier = 1
	rc.gen++
}

// Multiplier returns the current backoff multiplier.
func (rc *RateController) Multiplier() float64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.multiplier
}

// Interval returns the effective spacing between calls.
func (rc *RateController) Interval() time.Duration {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.effectiveLocked()
}

func (rc *RateController) effectiveLocked() time.Duration {
	return time.Duration(float64(rc.interval) * rc.multiplier)
}

func (rc *RateController) limitLocked() rate.Limit {
	if rc.interval <= 0 {
		return rate.Inf
	}
	return rate.Every(rc.effectiveLocked())
}
