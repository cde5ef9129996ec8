// Package plancache memoises generated plans by goal.
package plancache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
	"github.com/felixgeelhaar/taskplanner/internal/log"
	"github.com/felixgeelhaar/taskplanner/internal/metrics"
	"github.com/felixgeelhaar/taskplanner/internal/planner"
)

// Config controls the cache.
type Config struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// DefaultConfig keeps up to 256 plans for an hour.
func DefaultConfig() Config {
	return Config{Enabled: true, Size: 256, TTL: time.Hour}
}

// Validate rejects non-positive sizes and TTLs on an enabled cache.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Size <= 0 {
		return errors.NewConfigInvalidError("cache.size must be positive")
	}
	if c.TTL <= 0 {
		return errors.NewConfigInvalidError("cache.ttl must be positive")
	}
	return nil
}

// Cache wraps a planner.Planner. Only fully generated plans are stored, so
// fallback and partial results are retried on the next request.
type Cache struct {
	next    planner.Planner
	lru     *expirable.LRU[string, planner.Result]
	metrics *metrics.Metrics
	logger  *log.Logger
	newID   func() string
}

// New wraps next. A disabled config returns next unchanged.
func New(next planner.Planner, cfg Config, m *metrics.Metrics, logger *log.Logger) planner.Planner {
	if !cfg.Enabled {
		return next
	}
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Cache{
		next:    next,
		lru:     expirable.NewLRU[string, planner.Result](cfg.Size, nil, cfg.TTL),
		metrics: m,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// Key derives the cache key for req. Goals differing only in case or
// surrounding whitespace share a key.
func Key(req planner.Request) string {
	hint := req.DesiredTaskCountHint
	if hint < 0 {
		hint = 0
	}
	hasher := blake3.New()
	_, _ = hasher.Write([]byte(strings.ToLower(strings.TrimSpace(req.Goal))))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(strconv.Itoa(hint)))
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Plan implements planner.Planner.
func (c *Cache) Plan(ctx context.Context, req planner.Request) (*planner.Result, error) {
	if strings.TrimSpace(req.Goal) == "" {
		return c.next.Plan(ctx, req)
	}

	key := Key(req)
	if cached, ok := c.lru.Get(key); ok {
		c.metrics.ObserveCache(true)
		res := clone(cached)
		if id, ok := planner.RequestIDFromContext(ctx); ok {
			res.RequestID = id
		} else {
			res.RequestID = c.newID()
		}
		c.logger.DebugContext(ctx, "plan cache hit", "request_id", res.RequestID, "cached_request_id", cached.RequestID)
		return &res, nil
	}
	c.metrics.ObserveCache(false)

	res, err := c.next.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.Source == planner.SourceGenerated {
		c.lru.Add(key, clone(*res))
	}
	return res, nil
}

// Len reports the number of cached plans.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge drops every cached plan.
func (c *Cache) Purge() { c.lru.Purge() }

func clone(r planner.Result) planner.Result {
	plan := make(planner.Plan, len(r.Plan))
	for i, t := range r.Plan {
		t.Dependencies = append([]string{}, t.Dependencies...)
		plan[i] = t
	}
	r.Plan = plan
	return r
}
