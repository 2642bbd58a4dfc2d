// Copyright 2025 James Ross
package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestEngine(t *testing.T) (*Engine, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "ql", zaptest.NewLogger(t)), rdb, mr
}

// seed describes a job to plant directly in the store, the way the external
// put/pop path would have left it.
type seed struct {
	jid       string
	queue     string
	worker    string
	state     string
	priority  int64
	retries   int64
	remaining int64
	put       int64
	popped    int64
	expires   float64
	tags      []string
	data      string
}

func plantJob(t *testing.T, e *Engine, rdb *redis.Client, s seed) {
	t.Helper()
	ctx := context.Background()
	if s.data == "" {
		s.data = "{}"
	}
	if s.state == "" {
		s.state = StateRunning
	}

	entry := HistoryEntry{Queue: s.queue, Put: s.put}
	if s.state == StateRunning {
		entry.Popped = s.popped
		entry.Worker = s.worker
	}
	history, err := json.Marshal([]HistoryEntry{entry})
	require.NoError(t, err)

	fields := map[string]interface{}{
		"jid":       s.jid,
		"klass":     "jobs.Example",
		"state":     s.state,
		"queue":     s.queue,
		"worker":    s.worker,
		"priority":  s.priority,
		"retries":   s.retries,
		"remaining": s.remaining,
		"expires":   s.expires,
		"data":      s.data,
		"history":   string(history),
		"failure":   "{}",
	}
	if len(s.tags) > 0 {
		enc, err := json.Marshal(s.tags)
		require.NoError(t, err)
		fields["tags"] = string(enc)
		for _, tag := range s.tags {
			require.NoError(t, rdb.ZAdd(ctx, e.tagJobsKey(tag), redis.Z{Score: float64(s.put), Member: s.jid}).Err())
			require.NoError(t, rdb.ZIncrBy(ctx, e.tagsKey(), 1, tag).Err())
		}
	}
	require.NoError(t, rdb.HSet(ctx, e.jobKey(s.jid), fields).Err())
	if s.queue != "" {
		require.NoError(t, rdb.ZAddNX(ctx, e.queuesKey(), redis.Z{Score: float64(s.put), Member: s.queue}).Err())
	}

	q := e.queue(s.queue)
	switch s.state {
	case StateRunning:
		require.NoError(t, rdb.ZAdd(ctx, q.locksKey(), redis.Z{Score: s.expires, Member: s.jid}).Err())
		require.NoError(t, rdb.ZAdd(ctx, e.workerJobsKey(s.worker), redis.Z{Score: s.expires, Member: s.jid}).Err())
	case StateWaiting:
		require.NoError(t, rdb.ZAdd(ctx, q.workKey(), redis.Z{Score: workScore(s.priority, float64(s.put)), Member: s.jid}).Err())
	case StateScheduled:
		require.NoError(t, rdb.ZAdd(ctx, q.scheduledKey(), redis.Z{Score: s.expires, Member: s.jid}).Err())
	case StateDepends:
		require.NoError(t, rdb.ZAdd(ctx, q.dependsKey(), redis.Z{Score: float64(s.put), Member: s.jid}).Err())
	}
}

func redisZ(score float64, member string) redis.Z {
	return redis.Z{Score: score, Member: member}
}

func hget(t *testing.T, rdb *redis.Client, key, field string) string {
	t.Helper()
	v, err := rdb.HGet(context.Background(), key, field).Result()
	if err == redis.Nil {
		return ""
	}
	require.NoError(t, err)
	return v
}

func zmembers(t *testing.T, rdb *redis.Client, key string) []string {
	t.Helper()
	vals, err := rdb.ZRange(context.Background(), key, 0, -1).Result()
	require.NoError(t, err)
	return vals
}
