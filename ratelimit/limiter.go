package ratelimit

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// burstWindow is the trailing interval the burst guard counts over.
	burstWindow = time.Second

	// shardCount spreads identities over independent locks. Power of two.
	shardCount = 32

	// DefaultMaxIdentities is the default cap on tracked identities.
	// When a shard reaches its share of the cap, least recently used
	// entries are evicted.
	DefaultMaxIdentities = 10000

	// DefaultCleanupInterval is how often the background idle sweep runs.
	DefaultCleanupInterval = 5 * time.Minute
)

// Config holds the admission policy.
type Config struct {
	// MaxRequests is the sustained quota: at most this many admitted
	// requests per identity within any trailing Window.
	MaxRequests int

	// Window is the sliding-window length. It is also the lockout
	// duration for sustained-quota violations; burst violations lock
	// out for twice as long.
	Window time.Duration

	// BurstLimit is the maximum admitted requests within any trailing
	// second. Zero disables the burst guard.
	BurstLimit int

	// MaxIdentities caps tracked identities across all shards.
	// Zero means DefaultMaxIdentities.
	MaxIdentities int
}

// Result is an admission decision.
type Result struct {
	// Allowed reports whether the request was admitted.
	Allowed bool

	// RetryAfter is how long the caller should wait before retrying.
	// Zero when Allowed is true.
	RetryAfter time.Duration

	// LockoutApplied reports whether this denial newly placed the
	// identity under lockout, as opposed to hitting one already active.
	LockoutApplied bool
}

// identityState is the window bookkeeping for one caller identity.
type identityState struct {
	identity     string
	stamps       []time.Time // admitted-request timestamps, oldest first
	blockedUntil time.Time   // zero when not locked out
	lastAccess   time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // of *identityState, front = most recent
}

// Limiter is a sharded sliding-window admission controller. The check,
// prune, and record steps for one identity run under that identity's shard
// lock, so concurrent checks for the same identity cannot both take the
// last slot; checks for different identities proceed in parallel.
type Limiter struct {
	cfg             Config
	shards          [shardCount]*shard
	maxPerShard     int
	clock           Clock
	logger          *slog.Logger
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once

	totalAllowed   atomic.Int64
	totalDenied    atomic.Int64
	totalLockouts  atomic.Int64
	totalEvictions atomic.Int64
	totalCleanups  atomic.Int64
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock sets the time source, letting tests simulate waits.
func WithClock(clock Clock) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithCleanupInterval sets how often the background idle sweep runs.
func WithCleanupInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.cleanupInterval = d
		}
	}
}

// New creates a Limiter and starts its background idle sweep. Call Stop
// when the limiter is no longer needed.
func New(cfg Config, opts ...Option) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.MaxIdentities <= 0 {
		cfg.MaxIdentities = DefaultMaxIdentities
	}

	l := &Limiter{
		cfg:             cfg,
		maxPerShard:     (cfg.MaxIdentities + shardCount - 1) / shardCount,
		clock:           systemClock{},
		logger:          slog.Default(),
		cleanupInterval: DefaultCleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	for i := range l.shards {
		l.shards[i] = &shard{
			entries: make(map[string]*list.Element),
			lru:     list.New(),
		}
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.cleanupLoop()

	return l
}

// Check decides admission for one request from identity at the current
// time. The lockout check runs first and dominates window accounting:
// a locked-out identity is denied even if pruning would otherwise admit it.
func (l *Limiter) Check(identity string) Result {
	now := l.clock.Now()
	sh := l.shardFor(identity)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	ent := l.lookup(sh, identity, now)

	// 1. Active lockout.
	if ent.blockedUntil.After(now) {
		l.totalDenied.Add(1)
		return Result{RetryAfter: ent.blockedUntil.Sub(now)}
	}

	// 2. Prune timestamps that fell out of the window.
	windowStart := now.Add(-l.cfg.Window)
	n := 0
	for _, ts := range ent.stamps {
		if ts.After(windowStart) {
			ent.stamps[n] = ts
			n++
		}
	}
	ent.stamps = ent.stamps[:n]

	// 3. Burst guard over the trailing second.
	if l.cfg.BurstLimit > 0 {
		burstStart := now.Add(-burstWindow)
		burst := 0
		for i := len(ent.stamps) - 1; i >= 0 && ent.stamps[i].After(burstStart); i-- {
			burst++
		}
		if burst >= l.cfg.BurstLimit {
			return l.lockout(ent, now, 2*l.cfg.Window, "burst limit exceeded")
		}
	}

	// 4. Sustained quota.
	if len(ent.stamps) >= l.cfg.MaxRequests {
		return l.lockout(ent, now, l.cfg.Window, "request quota exceeded")
	}

	// 5. Record and admit.
	ent.stamps = append(ent.stamps, now)
	l.totalAllowed.Add(1)
	return Result{Allowed: true}
}

// lockout places ent under a denial lockout. Must hold the shard lock.
func (l *Limiter) lockout(ent *identityState, now time.Time, d time.Duration, reason string) Result {
	ent.blockedUntil = now.Add(d)
	l.totalDenied.Add(1)
	l.totalLockouts.Add(1)
	l.logger.Warn("rate limit lockout",
		"identity_hash", hashIdentity(ent.identity),
		"reason", reason,
		"lockout", d,
		"requests_in_window", len(ent.stamps))
	return Result{RetryAfter: d, LockoutApplied: true}
}

// lookup returns the state for identity, creating it (with capacity
// eviction) on first sight. Must hold the shard lock.
func (l *Limiter) lookup(sh *shard, identity string, now time.Time) *identityState {
	if elem, ok := sh.entries[identity]; ok {
		sh.lru.MoveToFront(elem)
		ent := elem.Value.(*identityState)
		ent.lastAccess = now
		return ent
	}

	if sh.lru.Len() >= l.maxPerShard {
		l.evictLRU(sh, now)
	}

	ent := &identityState{identity: identity, lastAccess: now}
	sh.entries[identity] = sh.lru.PushFront(ent)
	return ent
}

// evictLRU drops the least recently used entry in the shard, preferring
// entries that are not under an active lockout so eviction cannot be used
// to shake off a penalty. Must hold the shard lock.
func (l *Limiter) evictLRU(sh *shard, now time.Time) {
	var victim *list.Element
	for elem := sh.lru.Back(); elem != nil; elem = elem.Prev() {
		if !elem.Value.(*identityState).blockedUntil.After(now) {
			victim = elem
			break
		}
	}
	if victim == nil {
		victim = sh.lru.Back()
	}
	if victim == nil {
		return
	}

	ent := victim.Value.(*identityState)
	delete(sh.entries, ent.identity)
	sh.lru.Remove(victim)
	l.totalEvictions.Add(1)

	l.logger.Debug("rate limiter LRU eviction",
		"identity_hash", hashIdentity(ent.identity),
		"total_evictions", l.totalEvictions.Load())
}

func (l *Limiter) shardFor(identity string) *shard {
	h := fnv.New32a()
	h.Write([]byte(identity))
	return l.shards[h.Sum32()&(shardCount-1)]
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

// Cleanup removes identities that have been idle for at least twice the
// window. Identities under an active lockout are kept regardless of
// idleness so a lockout is always served in full.
func (l *Limiter) Cleanup() {
	now := l.clock.Now()
	maxIdle := 2 * l.cfg.Window
	removed := 0

	for _, sh := range l.shards {
		sh.mu.Lock()
		var next *list.Element
		for elem := sh.lru.Front(); elem != nil; elem = next {
			next = elem.Next()
			ent := elem.Value.(*identityState)
			if ent.blockedUntil.After(now) {
				continue
			}
			if now.Sub(ent.lastAccess) > maxIdle {
				delete(sh.entries, ent.identity)
				sh.lru.Remove(elem)
				removed++
			}
		}
		sh.mu.Unlock()
	}

	if removed > 0 {
		l.totalCleanups.Add(1)
		l.logger.Debug("rate limiter cleanup completed",
			"removed", removed,
			"remaining", l.trackedIdentities(),
			"total_cleanups", l.totalCleanups.Load())
	}
}

// Stop halts the background sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// Stats holds limiter counters for monitoring.
type Stats struct {
	TrackedIdentities int   // identities currently tracked
	MaxIdentities     int   // configured capacity
	TotalAllowed      int64 // admitted requests
	TotalDenied       int64 // denied requests (lockouts and quota)
	TotalLockouts     int64 // lockouts applied
	TotalEvictions    int64 // LRU capacity evictions
	TotalCleanups     int64 // idle sweeps that removed entries
}

// GetStats returns a snapshot of the limiter's counters.
func (l *Limiter) GetStats() Stats {
	return Stats{
		TrackedIdentities: l.trackedIdentities(),
		MaxIdentities:     l.cfg.MaxIdentities,
		TotalAllowed:      l.totalAllowed.Load(),
		TotalDenied:       l.totalDenied.Load(),
		TotalLockouts:     l.totalLockouts.Load(),
		TotalEvictions:    l.totalEvictions.Load(),
		TotalCleanups:     l.totalCleanups.Load(),
	}
}

func (l *Limiter) trackedIdentities() int {
	total := 0
	for _, sh := range l.shards {
		sh.mu.Lock()
		total += len(sh.entries)
		sh.mu.Unlock()
	}
	return total
}

// hashIdentity truncates a one-way hash of the identity for logging, so
// raw caller identifiers never reach log output.
func hashIdentity(identity string) string {
	if identity == "" {
		return "<empty>"
	}
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])[:16]
}
