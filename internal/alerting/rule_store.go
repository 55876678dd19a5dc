package alerting

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/logger"
)

// DefaultRuleTTL is how long fetched rules are used before refetching.
const DefaultRuleTTL = time.Minute

// RuleSource provides the alert rules configured for a device.
type RuleSource interface {
	GetAlertRules(ctx context.Context, deviceID string) ([]entities.AlertRule, error)
}

// RuleStore caches rules per device. Fresh entries expire after the TTL; the
// last successfully fetched rules are kept as a fallback for when the source
// fails.
type RuleStore struct {
	source RuleSource
	fresh  *cache.Cache
	group  singleflight.Group
	log    logger.Logger

	mu        sync.RWMutex
	snapshots map[string][]entities.AlertRule
}

// NewRuleStore creates a store reading from source.
func NewRuleStore(source RuleSource, ttl time.Duration, log logger.Logger) *RuleStore {
	if ttl <= 0 {
		ttl = DefaultRuleTTL
	}
	return &RuleStore{
		source:    source,
		fresh:     cache.New(ttl, 2*ttl),
		log:       log.Module("rules"),
		snapshots: make(map[string][]entities.AlertRule),
	}
}

// Rules returns the rules of a device, fetching them when the cached copy is
// stale. When the fetch fails the last good rules are returned together
// with the error; they are nil if the device was never fetched.
func (s *RuleStore) Rules(ctx context.Context, deviceID string) ([]entities.AlertRule, error) {
	if cached, ok := s.fresh.Get(deviceID); ok {
		rules, _ := cached.([]entities.AlertRule)
		return slices.Clone(rules), nil
	}
	return s.Refresh(ctx, deviceID)
}

// Refresh fetches the rules of a device regardless of the cache. Concurrent
// refreshes of the same device share one fetch.
func (s *RuleStore) Refresh(ctx context.Context, deviceID string) ([]entities.AlertRule, error) {
	result, err, _ := s.group.Do(deviceID, func() (any, error) {
		rules, err := s.source.GetAlertRules(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		if rules == nil {
			rules = []entities.AlertRule{}
		}
		s.fresh.SetDefault(deviceID, rules)
		s.mu.Lock()
		s.snapshots[deviceID] = rules
		s.mu.Unlock()
		s.log.Debug("alert rules refreshed",
			logger.String("device_id", deviceID),
			logger.Int("rules", len(rules)))
		return rules, nil
	})
	if err != nil {
		snapshot, _ := s.Snapshot(deviceID)
		return snapshot, err
	}
	rules, _ := result.([]entities.AlertRule)
	return slices.Clone(rules), nil
}

// Snapshot returns the last successfully fetched rules of a device.
func (s *RuleStore) Snapshot(deviceID string) ([]entities.AlertRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules, ok := s.snapshots[deviceID]
	return slices.Clone(rules), ok
}

// Invalidate marks the cached rules of a device stale so the next read
// refetches them. An empty device id invalidates every device. Snapshots are
// kept as the fallback.
func (s *RuleStore) Invalidate(deviceID string) {
	if deviceID == "" {
		s.fresh.Flush()
		return
	}
	s.fresh.Delete(deviceID)
}
