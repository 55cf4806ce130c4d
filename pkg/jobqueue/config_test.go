package jobqueue_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue"
)

func TestConfigRegistryDefaults(t *testing.T) {
	ctx := context.Background()
	c := jobqueue.NewConfigRegistry(newMemStore(), nil)

	require.Equal(t, jobqueue.DefaultBackoffBase, c.BackoffBase(ctx))
	require.Equal(t, int64(jobqueue.DefaultLockTimeout), c.LockTimeout(ctx))
	require.False(t, c.StopRequested(ctx))
	require.Equal(t, jobqueue.DefaultMaxOutputCap, c.MaxOutputBytes(ctx))
}

func TestConfigRegistryMalformedValuesFallBackToDefault(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c := jobqueue.NewConfigRegistry(store, nil)

	require.NoError(t, store.ConfigSet(ctx, jobqueue.ConfigKeyBackoffBase, "not-a-number"))
	require.Equal(t, jobqueue.DefaultBackoffBase, c.BackoffBase(ctx))

	require.NoError(t, store.ConfigSet(ctx, jobqueue.ConfigKeyBackoffBase, "-1"))
	require.Equal(t, jobqueue.DefaultBackoffBase, c.BackoffBase(ctx))

	require.NoError(t, store.ConfigSet(ctx, jobqueue.ConfigKeyLockTimeout, "0"))
	require.Equal(t, int64(jobqueue.DefaultLockTimeout), c.LockTimeout(ctx))
}

func TestConfigRegistryStopWorkersRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := jobqueue.NewConfigRegistry(newMemStore(), nil)

	require.False(t, c.StopRequested(ctx))
	require.NoError(t, c.SetStopWorkers(ctx, true))
	require.True(t, c.StopRequested(ctx))
	require.NoError(t, c.SetStopWorkers(ctx, false))
	require.False(t, c.StopRequested(ctx))
}

func TestConfigRegistryGetSet(t *testing.T) {
	ctx := context.Background()
	c := jobqueue.NewConfigRegistry(newMemStore(), nil)

	_, ok, err := c.Get(ctx, "unset_key")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "unset_key", "value"))
	v, ok, err := c.Get(ctx, "unset_key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value", v)
}
