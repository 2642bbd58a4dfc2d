// Copyright 2025 James Ross
package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataMissingJob(t *testing.T) {
	e, _, _ := newTestEngine(t)
	rec, err := e.Data(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, rec)

	fields, err := e.DataFields(context.Background(), "ghost", "state")
	require.NoError(t, err)
	assert.Nil(t, fields)
}

func TestDataFullRecord(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()
	plantJob(t, e, rdb, seed{
		jid: "a", queue: "q1", worker: "w1",
		priority: 3, retries: 5, remaining: 4,
		put: 90, popped: 95, expires: 160,
		tags: []string{"nightly"},
		data: `{"payload":1}`,
	})
	_, err := e.Track(ctx, 95, "a")
	require.NoError(t, err)

	rec, err := e.Data(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "a", rec.JID)
	assert.Equal(t, StateRunning, rec.State)
	assert.Equal(t, "q1", rec.Queue)
	assert.Equal(t, "w1", rec.Worker)
	assert.Equal(t, int64(3), rec.Priority)
	assert.Equal(t, int64(5), rec.Retries)
	assert.Equal(t, int64(4), rec.Remaining)
	assert.Equal(t, float64(160), rec.Expires)
	assert.Equal(t, []string{"nightly"}, rec.Tags)
	assert.True(t, rec.Tracked)
	assert.JSONEq(t, `{"payload":1}`, string(rec.Data))
	require.Len(t, rec.History, 1)
	assert.Equal(t, int64(95), rec.History[0].Popped)
	assert.Nil(t, rec.Failure)
	assert.Empty(t, rec.Dependencies)
	assert.Empty(t, rec.Dependents)
}

func TestDataEmptyCollections(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, rdb.HSet(ctx, e.jobKey("bare"), "jid", "bare", "state", StateWaiting).Err())

	rec, err := e.Data(ctx, "bare")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, json.RawMessage("{}"), rec.Data)
	assert.Equal(t, []string{}, rec.Tags)
	assert.Equal(t, []HistoryEntry{}, rec.History)
}

func TestDataProjection(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()
	plantJob(t, e, rdb, seed{
		jid: "a", queue: "q1", worker: "w1",
		priority: 3, retries: 5, remaining: 4,
		put: 90, popped: 95, expires: 160,
	})

	fields, err := e.DataFields(ctx, "a", "state", "queue", "priority", "failure")
	require.NoError(t, err)
	require.Len(t, fields, 4)
	assert.Equal(t, StateRunning, fields[0])
	assert.Equal(t, "q1", fields[1])
	assert.Equal(t, int64(3), fields[2])
	assert.Equal(t, map[string]interface{}{}, fields[3])
}

func TestDataExpiresAcceptsEmptySentinel(t *testing.T) {
	e, rdb, _ := newTestEngine(t)
	ctx := context.Background()
	plantJob(t, e, rdb, seed{
		jid: "a", queue: "q1", worker: "w1",
		retries: 3, remaining: 3, put: 290, popped: 295, expires: 360,
	})
	_, err := e.Fail(ctx, 300, "a", "w1", "Boom", "exploded", nil)
	require.NoError(t, err)

	rec, err := e.Data(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, float64(0), rec.Expires)
	require.NotNil(t, rec.Failure)
	assert.Equal(t, "Boom", rec.Failure.Group)
}
