// Copyright 2025 James Ross
package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, ok, err := e.GetConfig(ctx, "heartbeat")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, e.SetConfig(ctx, "heartbeat", "45"))
	v, ok, err := e.GetConfig(ctx, "heartbeat")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "45", v)

	all, err := e.AllConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"heartbeat": "45"}, all)

	require.NoError(t, e.DeleteConfig(ctx, "heartbeat"))
	_, ok, err = e.GetConfig(ctx, "heartbeat")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHeartbeatIntervalResolution(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()

	// built-in default
	n, err := e.heartbeatInterval(ctx, rdb, "q1")
	require.NoError(t, err)
	assert.Equal(t, int64(defaultHeartbeat), n)

	// global setting
	require.NoError(t, e.SetConfig(ctx, "heartbeat", "90"))
	n, err = e.heartbeatInterval(ctx, rdb, "q1")
	require.NoError(t, err)
	assert.Equal(t, int64(90), n)

	// per-queue override wins
	require.NoError(t, e.SetConfig(ctx, "q1-heartbeat", "15"))
	n, err = e.heartbeatInterval(ctx, rdb, "q1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), n)

	// other queues still see the global value
	n, err = e.heartbeatInterval(ctx, rdb, "q2")
	require.NoError(t, err)
	assert.Equal(t, int64(90), n)
}

func TestConfigIntDefaults(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()

	n, err := e.configInt(ctx, rdb, "jobs-history", defaultJobsHistory)
	require.NoError(t, err)
	assert.Equal(t, int64(defaultJobsHistory), n)

	require.NoError(t, e.SetConfig(ctx, "jobs-history", "3600"))
	n, err = e.configInt(ctx, rdb, "jobs-history", defaultJobsHistory)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), n)
}
