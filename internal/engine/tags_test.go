// Copyright 2025 James Ross
package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagAddAndRemove(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()
	plantJob(t, e, rdb, seed{
		jid: "a", queue: "q1", worker: "w1",
		retries: 3, remaining: 3, put: 90, popped: 95, expires: 160,
	})

	tags, err := e.Tag(ctx, 100, "a", TagAdd, "nightly", "batch")
	require.NoError(t, err)
	assert.Equal(t, []string{"nightly", "batch"}, tags)

	assert.Contains(t, zmembers(t, rdb, e.tagJobsKey("nightly")), "a")
	card, err := rdb.ZScore(ctx, e.tagsKey(), "nightly").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(1), card)

	// re-adding an existing tag is a no-op
	tags, err = e.Tag(ctx, 101, "a", TagAdd, "nightly")
	require.NoError(t, err)
	assert.Equal(t, []string{"nightly", "batch"}, tags)
	card, err = rdb.ZScore(ctx, e.tagsKey(), "nightly").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(1), card)

	tags, err = e.Tag(ctx, 102, "a", TagRemove, "nightly")
	require.NoError(t, err)
	assert.Equal(t, []string{"batch"}, tags)
	assert.NotContains(t, zmembers(t, rdb, e.tagJobsKey("nightly")), "a")
}

func TestTagErrors(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Tag(ctx, 100, "ghost", TagAdd, "x")
	assert.True(t, IsArgumentError(err))
	_, err = e.Tag(ctx, 100, "a", "flip", "x")
	assert.True(t, IsArgumentError(err))
	_, err = e.Tag(ctx, 100, "a", TagAdd)
	assert.True(t, IsArgumentError(err))
}

func TestTrackUntrack(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()
	plantJob(t, e, rdb, seed{
		jid: "a", queue: "q1", worker: "w1",
		retries: 3, remaining: 3, put: 90, popped: 95, expires: 160,
	})

	ok, err := e.Track(ctx, 100, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	tracked, err := e.isTracked(ctx, rdb, "a")
	require.NoError(t, err)
	assert.True(t, tracked)

	ok, err = e.Untrack(ctx, 110, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	tracked, err = e.isTracked(ctx, rdb, "a")
	require.NoError(t, err)
	assert.False(t, tracked)

	ok, err = e.Track(ctx, 100, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}
