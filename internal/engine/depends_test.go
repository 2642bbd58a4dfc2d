// Copyright 2025 James Ross
package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependsOnAndOff(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()

	plantJob(t, e, rdb, seed{jid: "x", queue: "qx", state: StateWaiting, put: 100})
	plantJob(t, e, rdb, seed{jid: "a", queue: "q2", state: StateDepends, put: 100, priority: 2})

	ok, err := e.Depends(ctx, 110, "a", DependsOn, "x")
	require.NoError(t, err)
	assert.True(t, ok)

	deps, err := rdb.SMembers(ctx, e.dependenciesKey("a")).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, deps)
	dependents, err := rdb.SMembers(ctx, e.dependentsKey("x")).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, dependents)

	// removing the only dependency releases the job into its work set
	ok, err = e.Depends(ctx, 120, "a", DependsOff, "x")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, StateWaiting, hget(t, rdb, e.jobKey("a"), "state"))
	assert.Empty(t, zmembers(t, rdb, e.queue("q2").dependsKey()))
	assert.Contains(t, zmembers(t, rdb, e.queue("q2").workKey()), "a")

	n, err := rdb.SCard(ctx, e.dependenciesKey("a")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = rdb.SCard(ctx, e.dependentsKey("x")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDependsOffAll(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()

	plantJob(t, e, rdb, seed{jid: "x", queue: "qx", state: StateWaiting, put: 100})
	plantJob(t, e, rdb, seed{jid: "y", queue: "qx", state: StateWaiting, put: 100})
	plantJob(t, e, rdb, seed{jid: "a", queue: "q2", state: StateDepends, put: 100})

	ok, err := e.Depends(ctx, 110, "a", DependsOn, "x", "y")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.Depends(ctx, 120, "a", DependsOff, "all")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, StateWaiting, hget(t, rdb, e.jobKey("a"), "state"))
	assert.Contains(t, zmembers(t, rdb, e.queue("q2").workKey()), "a")
	for _, d := range []string{"x", "y"} {
		n, err := rdb.SCard(ctx, e.dependentsKey(d)).Result()
		require.NoError(t, err)
		assert.Zero(t, n)
	}
}

func TestDependsOffPartial(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()

	plantJob(t, e, rdb, seed{jid: "x", queue: "qx", state: StateWaiting, put: 100})
	plantJob(t, e, rdb, seed{jid: "y", queue: "qx", state: StateWaiting, put: 100})
	plantJob(t, e, rdb, seed{jid: "a", queue: "q2", state: StateDepends, put: 100})

	_, err := e.Depends(ctx, 110, "a", DependsOn, "x", "y")
	require.NoError(t, err)

	ok, err := e.Depends(ctx, 120, "a", DependsOff, "x")
	require.NoError(t, err)
	assert.True(t, ok)

	// y still blocks a
	assert.Equal(t, StateDepends, hget(t, rdb, e.jobKey("a"), "state"))
	assert.Contains(t, zmembers(t, rdb, e.queue("q2").dependsKey()), "a")
	deps, err := rdb.SMembers(ctx, e.dependenciesKey("a")).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, deps)
}

func TestDependsSkipsCompleteDependencies(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()

	plantJob(t, e, rdb, seed{jid: "done", queue: "qx", state: StateComplete})
	plantJob(t, e, rdb, seed{jid: "a", queue: "q2", state: StateDepends, put: 100})

	ok, err := e.Depends(ctx, 110, "a", DependsOn, "done", "ghost")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := rdb.SCard(ctx, e.dependenciesKey("a")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDependsWrongState(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()
	plantJob(t, e, rdb, seed{jid: "a", queue: "q1", state: StateWaiting, put: 100})

	ok, err := e.Depends(ctx, 110, "a", DependsOn, "x")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.Depends(ctx, 110, "ghost", DependsOn, "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDependsUnknownCommand(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.Depends(context.Background(), 110, "a", "toggle", "x")
	assert.True(t, IsArgumentError(err))
}
