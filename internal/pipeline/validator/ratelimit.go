package validator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateDecision is the outcome of one check-and-record.
type RateDecision struct {
	Allowed bool
	// Count is the number of requests in the window after the check.
	Count      int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the wait up to whole seconds, never below one.
func (d RateDecision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// RateStore keeps one rolling window per session. Allow must prune, check and
// record as a single atomic step per session.
type RateStore interface {
	Allow(ctx context.Context, sessionID string, now time.Time) (RateDecision, error)
	Cleanup(ctx context.Context, now time.Time, idle time.Duration) (int, error)
}

type MemoryRateStore struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string][]time.Time
}

func NewMemoryRateStore(limit int, window time.Duration) *MemoryRateStore {
	return &MemoryRateStore{
		limit:   limit,
		window:  window,
		windows: make(map[string][]time.Time),
	}
}

func (s *MemoryRateStore) Allow(_ context.Context, sessionID string, now time.Time) (RateDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.window)
	recent := s.windows[sessionID][:0]
	for _, ts := range s.windows[sessionID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= s.limit {
		s.windows[sessionID] = recent
		return RateDecision{
			Allowed:    false,
			Count:      len(recent),
			RetryAfter: recent[0].Add(s.window).Sub(now),
		}, nil
	}

	recent = append(recent, now)
	s.windows[sessionID] = recent
	return RateDecision{Allowed: true, Count: len(recent)}, nil
}

func (s *MemoryRateStore) Cleanup(_ context.Context, now time.Time, idle time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-idle)
	removed := 0
	for session, stamps := range s.windows {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(s.windows, session)
			removed++
		}
	}
	return removed, nil
}

// Sessions reports how many windows are tracked.
func (s *MemoryRateStore) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// allowScript prunes, counts and records in one round trip. It returns
// {allowed, count, oldestMillis}.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  return {0, count, tonumber(oldest[2])}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`)

// RedisRateStore shares rate windows across replicas. Each window is a sorted
// set scored by arrival time in milliseconds.
type RedisRateStore struct {
	client    redis.Scripter
	limit     int
	window    time.Duration
	keyPrefix string
}

func NewRedisRateStore(client redis.Scripter, limit int, window time.Duration, keyPrefix string) *RedisRateStore {
	if keyPrefix == "" {
		keyPrefix = "assistant:rate"
	}
	return &RedisRateStore{client: client, limit: limit, window: window, keyPrefix: keyPrefix}
}

func (s *RedisRateStore) Allow(ctx context.Context, sessionID string, now time.Time) (RateDecision, error) {
	nowMs := now.UnixMilli()
	windowMs := s.window.Milliseconds()
	key := fmt.Sprintf("%s:%s", s.keyPrefix, sessionID)

	vals, err := allowScript.Run(ctx, s.client, []string{key},
		nowMs, windowMs, s.limit, fmt.Sprintf("%d-%s", nowMs, uuid.NewString()),
	).Int64Slice()
	if err != nil {
		return RateDecision{}, fmt.Errorf("rate check for session %s: %w", sessionID, err)
	}
	if len(vals) != 3 {
		return RateDecision{}, fmt.Errorf("rate check for session %s: unexpected reply %v", sessionID, vals)
	}

	decision := RateDecision{Allowed: vals[0] == 1, Count: int(vals[1])}
	if !decision.Allowed {
		decision.RetryAfter = time.Duration(vals[2]+windowMs-nowMs) * time.Millisecond
	}
	return decision, nil
}

// Cleanup is a no-op: Redis expires idle windows on its own.
func (s *RedisRateStore) Cleanup(context.Context, time.Time, time.Duration) (int, error) {
	return 0, nil
}
