package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"fintrack/internal/cache"
)

const (
	window     = time.Minute
	staleAfter = 10 * time.Minute
)

// Limiter counts mutating requests per client in fixed one-minute windows.
// Counters live in a bounded LRU: clients idle for staleAfter expire, and
// past MaxClients the least recently seen client is forgotten.
type Limiter struct {
	mu       sync.Mutex
	counters *cache.LRU[*counter]
	now      func() time.Time

	limit           int
	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once

	limited atomic.Int64
}

type counter struct {
	start time.Time
	n     int
}

// Decision is the outcome of one Take call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	MaxClients        int
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		MaxClients:        10000,
	}
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}

	rl := &Limiter{
		counters:        cache.NewLRU[*counter](config.MaxClients, staleAfter),
		now:             time.Now,
		limit:           config.RequestsPerMinute,
		cleanupInterval: config.CleanupInterval,
		stop:            make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Take records one request for client and reports whether it fits the window.
func (rl *Limiter) Take(client string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.counters.Get(client)
	if !ok || now.Sub(c.start) >= window {
		c = &counter{start: now}
	}
	c.n++
	rl.counters.Set(client, c)

	d := Decision{
		Allowed:   c.n <= rl.limit,
		Remaining: max(rl.limit-c.n, 0),
		ResetIn:   c.start.Add(window).Sub(now),
	}
	if !d.Allowed {
		rl.limited.Add(1)
	}
	return d
}

// Allow is Take reduced to its verdict.
func (rl *Limiter) Allow(client string) bool {
	return rl.Take(client).Allowed
}

func (rl *Limiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stop:
			return
		}
	}
}

func (rl *Limiter) cleanupStaleEntries() int {
	return rl.counters.CleanExpired()
}

func (rl *Limiter) ActiveClients() int {
	return rl.counters.Stats().Size
}

// SetClock replaces the time source of the limiter and its counter table.
func (rl *Limiter) SetClock(now func() time.Time) {
	rl.mu.Lock()
	rl.now = now
	rl.mu.Unlock()
	rl.counters.SetClock(now)
}

// Limited returns how many requests were rejected since start.
func (rl *Limiter) Limited() int64 {
	return rl.limited.Load()
}

// Stop ends the cleanup loop and forgets all counters.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stop)
		rl.counters.Purge()
	})
}

// Middleware limits POST, PUT, PATCH and DELETE. Reads pass through uncounted.
// Rejected requests get Retry-After before onLimit writes the body.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			d := rl.Take(extractIP(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.ResetIn.Seconds()))))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
