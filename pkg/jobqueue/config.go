package jobqueue

import (
	"context"
	"math"
	"strconv"

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue/logger"
)

// Recognized Config Registry keys (spec.md §3).
const (
	ConfigKeyBackoffBase  = "backoff_base"
	ConfigKeyLockTimeout  = "lock_timeout"
	ConfigKeyStopWorkers  = "stop_workers"
	ConfigKeyMaxOutputCap = "max_output_bytes"
)

// Defaults for recognized keys, substituted whenever a value is absent or
// fails to parse (spec.md §7 item 5: malformed config never crashes the
// engine).
const (
	DefaultBackoffBase  = 2.0
	DefaultLockTimeout  = 3600
	DefaultMaxOutputCap = 1 << 20 // 1 MiB per stream, see SPEC_FULL.md
)

// ConfigRegistry is a thin, validating wrapper over the store's key/value
// table (spec.md §4.2, "Config Registry"). All numeric conversion and
// default substitution happens here, never in Worker Loop or Executor
// logic.
type ConfigRegistry struct {
	store Store
	log   logger.StandardLogger
}

func NewConfigRegistry(store Store, log logger.StandardLogger) *ConfigRegistry {
	if log == nil {
		log = logger.DiscardLogger{}
	}
	return &ConfigRegistry{store: store, log: log}
}

// Get returns the raw string value, or ok=false if unset.
func (c *ConfigRegistry) Get(ctx context.Context, key string) (string, bool, error) {
	return c.store.ConfigGet(ctx, key)
}

// Set upserts a raw string value.
func (c *ConfigRegistry) Set(ctx context.Context, key, value string) error {
	return c.store.ConfigSet(ctx, key, value)
}

// BackoffBase reads backoff_base, falling back to DefaultBackoffBase on
// any missing or malformed (non-positive, non-finite) value.
func (c *ConfigRegistry) BackoffBase(ctx context.Context) float64 {
	raw, ok, err := c.store.ConfigGet(ctx, ConfigKeyBackoffBase)
	if err != nil || !ok {
		return DefaultBackoffBase
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		c.log.Warnw("malformed backoff_base, using default", "value", raw, "default", DefaultBackoffBase)
		return DefaultBackoffBase
	}
	return v
}

// LockTimeout reads lock_timeout (seconds), falling back to
// DefaultLockTimeout on any missing or malformed (non-positive) value.
func (c *ConfigRegistry) LockTimeout(ctx context.Context) int64 {
	raw, ok, err := c.store.ConfigGet(ctx, ConfigKeyLockTimeout)
	if err != nil || !ok {
		return DefaultLockTimeout
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		c.log.Warnw("malformed lock_timeout, using default", "value", raw, "default", DefaultLockTimeout)
		return DefaultLockTimeout
	}
	return v
}

// StopRequested reports whether stop_workers == "1". Any other value,
// including unset, is treated as false; eventual consistency of this read
// across workers is acceptable (spec.md §5).
func (c *ConfigRegistry) StopRequested(ctx context.Context) bool {
	raw, ok, err := c.store.ConfigGet(ctx, ConfigKeyStopWorkers)
	if err != nil || !ok {
		return false
	}
	return raw == "1"
}

// SetStopWorkers writes stop_workers. start_workers is the only other
// writer of this key (spec.md §9): an operator invoking worker:stop
// without ever restarting via start_workers leaves it set.
func (c *ConfigRegistry) SetStopWorkers(ctx context.Context, stop bool) error {
	v := "0"
	if stop {
		v = "1"
	}
	return c.store.ConfigSet(ctx, ConfigKeyStopWorkers, v)
}

// MaxOutputBytes reads max_output_bytes, falling back to
// DefaultMaxOutputCap on any missing or malformed (non-positive) value.
func (c *ConfigRegistry) MaxOutputBytes(ctx context.Context) int {
	raw, ok, err := c.store.ConfigGet(ctx, ConfigKeyMaxOutputCap)
	if err != nil || !ok {
		return DefaultMaxOutputCap
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		c.log.Warnw("malformed max_output_bytes, using default", "value", raw, "default", DefaultMaxOutputCap)
		return DefaultMaxOutputCap
	}
	return v
}
