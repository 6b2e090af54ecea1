package persistence

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hostdesk/hosting-service/internal/domain"
)

// UsageStore holds the latest externally collected usage snapshot per domain.
// Snapshot returns nil without error when nothing has been recorded.
type UsageStore interface {
	Snapshot(ctx context.Context, domainID string) (*domain.UsageSnapshot, error)
	Record(ctx context.Context, domainID string, usage domain.UsageSnapshot) error
	Forget(ctx context.Context, domainID string) error
}

const (
	fieldStorage     = "storage"
	fieldBandwidth   = "bandwidth"
	fieldDatabase    = "database"
	fieldCollectedAt = "collected_at"
)

// RedisUsageStore keeps snapshots in a hash per domain.
type RedisUsageStore struct {
	client *redis.Client
}

// NewRedisUsageStore builds a Redis-backed store.
func NewRedisUsageStore(client *redis.Client) *RedisUsageStore {
	return &RedisUsageStore{client: client}
}

func usageKey(domainID string) string {
	return "usage:domain:" + domainID
}

func (s *RedisUsageStore) Snapshot(ctx context.Context, domainID string) (*domain.UsageSnapshot, error) {
	values, err := s.client.HGetAll(ctx, usageKey(domainID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read usage %s: %w", domainID, err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return parseUsage(values)
}

func (s *RedisUsageStore) Record(ctx context.Context, domainID string, usage domain.UsageSnapshot) error {
	if err := s.client.HSet(ctx, usageKey(domainID), encodeUsage(usage)).Err(); err != nil {
		return fmt.Errorf("write usage %s: %w", domainID, err)
	}
	return nil
}

func (s *RedisUsageStore) Forget(ctx context.Context, domainID string) error {
	return s.client.Del(ctx, usageKey(domainID)).Err()
}

func encodeUsage(usage domain.UsageSnapshot) map[string]any {
	return map[string]any{
		fieldStorage:     usage.Storage,
		fieldBandwidth:   usage.Bandwidth,
		fieldDatabase:    usage.Database,
		fieldCollectedAt: usage.CollectedAt.UTC().Format(time.RFC3339Nano),
	}
}

func parseUsage(values map[string]string) (*domain.UsageSnapshot, error) {
	var usage domain.UsageSnapshot
	for field, target := range map[string]*int64{
		fieldStorage:   &usage.Storage,
		fieldBandwidth: &usage.Bandwidth,
		fieldDatabase:  &usage.Database,
	} {
		raw, ok := values[field]
		if !ok {
			continue
		}
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse usage %s: %w", field, err)
		}
		*target = parsed
	}
	if raw, ok := values[fieldCollectedAt]; ok && raw != "" {
		collected, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse usage %s: %w", fieldCollectedAt, err)
		}
		usage.CollectedAt = collected
	}
	return &usage, nil
}

// MemoryUsageStore is the in-process fallback when Redis is unavailable.
type MemoryUsageStore struct {
	mu    sync.RWMutex
	usage map[string]domain.UsageSnapshot
}

// NewMemoryUsageStore returns an empty store.
func NewMemoryUsageStore() *MemoryUsageStore {
	return &MemoryUsageStore{usage: make(map[string]domain.UsageSnapshot)}
}

func (s *MemoryUsageStore) Snapshot(_ context.Context, domainID string) (*domain.UsageSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	usage, ok := s.usage[domainID]
	if !ok {
		return nil, nil
	}
	return &usage, nil
}

func (s *MemoryUsageStore) Record(_ context.Context, domainID string, usage domain.UsageSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[domainID] = usage
	return nil
}

func (s *MemoryUsageStore) Forget(_ context.Context, domainID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.usage, domainID)
	return nil
}
