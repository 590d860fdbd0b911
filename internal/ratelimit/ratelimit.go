package ratelimit

import (
	"sort"
	"sync"
	"time"
)

// RateLimiter enforces sliding-window limits on job launches
type RateLimiter struct {
	perMinute int
	perHour   int
	perDay    int
	enabled   bool
	now       func() time.Time

	minuteWindow []time.Time
	hourWindow   []time.Time
	dayWindow    []time.Time
	mu           sync.Mutex
}

// NewRateLimiter creates a limiter. A limit of zero or less is unbounded.
func NewRateLimiter(perMinute, perHour, perDay int, enabled bool) *RateLimiter {
	return &RateLimiter{
		perMinute: perMinute,
		perHour:   perHour,
		perDay:    perDay,
		enabled:   enabled,
		now:       time.Now,
	}
}

// Allow records a launch and reports whether it fits every window
func (rl *RateLimiter) Allow() bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.cleanup(now)

	if rl.perMinute > 0 && len(rl.minuteWindow) >= rl.perMinute {
		return false
	}
	if rl.perHour > 0 && len(rl.hourWindow) >= rl.perHour {
		return false
	}
	if rl.perDay > 0 && len(rl.dayWindow) >= rl.perDay {
		return false
	}

	rl.minuteWindow = append(rl.minuteWindow, now)
	rl.hourWindow = append(rl.hourWindow, now)
	rl.dayWindow = append(rl.dayWindow, now)
	return true
}

// cleanup removes expired entries from the time windows
func (rl *RateLimiter) cleanup(now time.Time) {
	rl.minuteWindow = filterTimes(rl.minuteWindow, now.Add(-time.Minute))
	rl.hourWindow = filterTimes(rl.hourWindow, now.Add(-time.Hour))
	rl.dayWindow = filterTimes(rl.dayWindow, now.Add(-24*time.Hour))
}

// filterTimes keeps only times after the cutoff
func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	result := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}

// Stats contains rate limiter statistics
type Stats struct {
	Key                 string `json:"key,omitempty"`
	Enabled             bool   `json:"enabled"`
	RunsLastMinute      int    `json:"runs_last_minute"`
	RunsLastHour        int    `json:"runs_last_hour"`
	RunsLastDay         int    `json:"runs_last_day"`
	RemainingThisMinute int    `json:"remaining_this_minute"`
	RemainingThisHour   int    `json:"remaining_this_hour"`
	RemainingThisDay    int    `json:"remaining_this_day"`
}

// GetStats returns current rate limiter statistics. Remaining counts are -1
// for unbounded windows.
func (rl *RateLimiter) GetStats() Stats {
	if !rl.enabled {
		return Stats{Enabled: false}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cleanup(rl.now())

	return Stats{
		Enabled:             true,
		RunsLastMinute:      len(rl.minuteWindow),
		RunsLastHour:        len(rl.hourWindow),
		RunsLastDay:         len(rl.dayWindow),
		RemainingThisMinute: remaining(rl.perMinute, len(rl.minuteWindow)),
		RemainingThisHour:   remaining(rl.perHour, len(rl.hourWindow)),
		RemainingThisDay:    remaining(rl.perDay, len(rl.dayWindow)),
	}
}

func remaining(limit, used int) int {
	if limit <= 0 {
		return -1
	}
	return max(0, limit-used)
}

// Reset clears all tracked launches
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.minuteWindow = nil
	rl.hourWindow = nil
	rl.dayWindow = nil
}

// KeyedLimiter keeps an independent RateLimiter per key, so one job kind
// exhausting its budget does not block another.
type KeyedLimiter struct {
	perMinute, perHour, perDay int
	enabled                    bool

	mu       sync.Mutex
	limiters map[string]*RateLimiter
}

// NewKeyedLimiter creates a limiter whose keys all share the same limits
func NewKeyedLimiter(perMinute, perHour, perDay int, enabled bool) *KeyedLimiter {
	return &KeyedLimiter{
		perMinute: perMinute,
		perHour:   perHour,
		perDay:    perDay,
		enabled:   enabled,
		limiters:  make(map[string]*RateLimiter),
	}
}

func (k *KeyedLimiter) get(key string) *RateLimiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	rl, ok := k.limiters[key]
	if !ok {
		rl = NewRateLimiter(k.perMinute, k.perHour, k.perDay, k.enabled)
		k.limiters[key] = rl
	}
	return rl
}

// Allow records a launch for key
func (k *KeyedLimiter) Allow(key string) bool {
	return k.get(key).Allow()
}

// AllStats returns the statistics of every key seen so far, sorted by key
func (k *KeyedLimiter) AllStats() []Stats {
	k.mu.Lock()
	keys := make([]string, 0, len(k.limiters))
	for key := range k.limiters {
		keys = append(keys, key)
	}
	k.mu.Unlock()
	sort.Strings(keys)

	stats := make([]Stats, 0, len(keys))
	for _, key := range keys {
		s := k.get(key).GetStats()
		s.Key = key
		stats = append(stats, s)
	}
	return stats
}
