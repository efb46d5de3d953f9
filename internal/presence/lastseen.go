package presence

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LastSeenStore persists per-identity last-seen timestamps and mirrors the
// online set so they survive relay restarts. The in-process Table stays the
// authoritative source of who is reachable.
type LastSeenStore interface {
	Touch(ctx context.Context, userID int, at time.Time) error
	Get(ctx context.Context, userID int) (time.Time, bool, error)
	SetOnline(ctx context.Context, userID int, online bool) error
}

const (
	lastSeenKeyPrefix = "presence:last_seen:"
	onlineSetKey      = "presence:online"
)

type RedisLastSeen struct {
	rdb *redis.Client
}

func NewRedisLastSeen(rdb *redis.Client) *RedisLastSeen {
	return &RedisLastSeen{rdb: rdb}
}

func (s *RedisLastSeen) Touch(ctx context.Context, userID int, at time.Time) error {
	key := lastSeenKeyPrefix + strconv.Itoa(userID)
	return s.rdb.Set(ctx, key, at.UnixMilli(), 0).Err()
}

func (s *RedisLastSeen) Get(ctx context.Context, userID int) (time.Time, bool, error) {
	key := lastSeenKeyPrefix + strconv.Itoa(userID)
	val, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

func (s *RedisLastSeen) SetOnline(ctx context.Context, userID int, online bool) error {
	if online {
		return s.rdb.SAdd(ctx, onlineSetKey, userID).Err()
	}
	return s.rdb.SRem(ctx, onlineSetKey, userID).Err()
}

// MemoryLastSeen backs local runs and tests.
type MemoryLastSeen struct {
	mu   sync.Mutex
	seen map[int]time.Time
}

func NewMemoryLastSeen() *MemoryLastSeen {
	return &MemoryLastSeen{seen: make(map[int]time.Time)}
}

func (s *MemoryLastSeen) Touch(_ context.Context, userID int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[userID] = at
	return nil
}

func (s *MemoryLastSeen) Get(_ context.Context, userID int) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.seen[userID]
	return t, ok, nil
}

func (s *MemoryLastSeen) SetOnline(_ context.Context, _ int, _ bool) error {
	return nil
}
