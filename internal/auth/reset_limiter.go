package auth

import (
	"strings"
	"sync"
	"time"
)

const (
	defaultResetMaxAttempts = 3
	defaultResetWindow      = 15 * time.Minute
	defaultResetBlock       = 30 * time.Minute
)

// AttemptStore holds one AttemptRecord per identity key. Injectable so tests
// get a fresh instance and multi-instance deployments can later swap in a
// shared store.
type AttemptStore interface {
	Get(key string) (AttemptRecord, bool)
	Set(key string, record AttemptRecord)
	Delete(key string)
	Keys() []string
}

// MemoryAttemptStore is the process-wide default.
type MemoryAttemptStore struct {
	mu      sync.Mutex
	records map[string]AttemptRecord
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{records: make(map[string]AttemptRecord)}
}

func (s *MemoryAttemptStore) Get(key string) (AttemptRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	return record, ok
}

func (s *MemoryAttemptStore) Set(key string, record AttemptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = record
}

func (s *MemoryAttemptStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

func (s *MemoryAttemptStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	return keys
}

// ResetLimiter counts password-reset attempts per identity key in a fixed
// window and escalates to a hard block once the window's budget is spent.
// Limiting is per email, not per IP, so a targeted account cannot be spammed
// with reset mails while shared-IP users stay unaffected.
type ResetLimiter struct {
	mu          sync.Mutex
	store       AttemptStore
	maxAttempts int
	window      time.Duration
	block       time.Duration
	now         func() time.Time
}

func NewResetLimiter(store AttemptStore, maxAttempts int, window, block time.Duration) *ResetLimiter {
	if store == nil {
		store = NewMemoryAttemptStore()
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultResetMaxAttempts
	}
	if window <= 0 {
		window = defaultResetWindow
	}
	if block <= 0 {
		block = defaultResetBlock
	}

	return &ResetLimiter{
		store:       store,
		maxAttempts: maxAttempts,
		window:      window,
		block:       block,
		now:         time.Now,
	}
}

// NormalizeEmailKey builds the limiter's lookup key: trimmed, lower-cased.
func NormalizeEmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterAttempt records one attempt for the given email and decides whether
// it is allowed. The read-modify-write sequence runs under a single lock so
// concurrent attempts for the same key never lose an increment.
func (l *ResetLimiter) RegisterAttempt(email string) ResetDecision {
	key := NormalizeEmailKey(email)
	now := l.now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.store.Get(key)
	if !ok {
		record = AttemptRecord{WindowStart: now}
	}

	if !record.BlockedUntil.IsZero() && now.Before(record.BlockedUntil) {
		// While blocked, resetInSeconds still reports the window's own
		// remainder, not the block's. Kept as-is for client compatibility.
		return ResetDecision{
			Blocked:           true,
			RetryAfterSeconds: ceilSeconds(record.BlockedUntil.Sub(now)),
			RateLimit:         l.info(0, l.windowRemaining(record, now)),
		}
	}

	if now.Sub(record.WindowStart) > l.window {
		record.Attempts = 0
		record.WindowStart = now
		record.BlockedUntil = time.Time{}
	}

	record.Attempts++

	if record.Attempts > l.maxAttempts {
		record.BlockedUntil = now.Add(l.block)
		l.store.Set(key, record)
		// At the blocking transition the reported reset is the full window,
		// not the partial remainder.
		return ResetDecision{
			Blocked:           true,
			RetryAfterSeconds: int(l.block / time.Second),
			RateLimit:         l.info(0, int(l.window/time.Second)),
		}
	}

	l.store.Set(key, record)
	return ResetDecision{
		Blocked:   false,
		RateLimit: l.info(l.maxAttempts-record.Attempts, l.windowRemaining(record, now)),
	}
}

// Sweep drops records whose window and block have both expired. Called
// periodically from the maintenance endpoint so long-running processes do not
// accumulate one record per email ever seen.
func (l *ResetLimiter) Sweep() int {
	now := l.now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for _, key := range l.store.Keys() {
		record, ok := l.store.Get(key)
		if !ok {
			continue
		}
		if now.Sub(record.WindowStart) <= l.window {
			continue
		}
		if !record.BlockedUntil.IsZero() && now.Before(record.BlockedUntil) {
			continue
		}
		l.store.Delete(key)
		removed++
	}

	return removed
}

func (l *ResetLimiter) info(remaining, resetInSeconds int) RateLimitInfo {
	return RateLimitInfo{
		Max:            l.maxAttempts,
		Remaining:      remaining,
		WindowSeconds:  int(l.window / time.Second),
		ResetInSeconds: resetInSeconds,
		BlockSeconds:   int(l.block / time.Second),
	}
}

func (l *ResetLimiter) windowRemaining(record AttemptRecord, now time.Time) int {
	remaining := record.WindowStart.Add(l.window).Sub(now)
	if remaining <= 0 {
		return 0
	}
	return ceilSeconds(remaining)
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
