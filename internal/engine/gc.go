// Copyright 2025 James Ross
package engine

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/flyingrobots/go-redis-job-engine/internal/obs"
)

// Completed-GC bounds the retained completed-job set by age and by count.
// Evicted jobs are scrubbed from the tag indices and their hashes deleted.

// gcPlan is the set of evictions computed from reads inside a transaction.
type gcPlan struct {
	evict []string
	tags  map[string][]string
}

// prepareGC computes which completed jids to evict given that extra jobs
// (the one being completed in this transaction) are about to join the set.
// Age evictions go strictly by completion score; count evictions take the
// oldest excess beyond the configured bound.
func (e *Engine) prepareGC(ctx context.Context, tx redis.Cmdable, now float64, pending int64) (*gcPlan, error) {
	age, err := e.configInt(ctx, tx, "jobs-history", defaultJobsHistory)
	if err != nil {
		return nil, err
	}
	count, err := e.configInt(ctx, tx, "jobs-history-count", defaultJobsHistoryCount)
	if err != nil {
		return nil, err
	}

	cutoff := now - float64(age)
	aged, err := tx.ZRangeByScore(ctx, e.completedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatFloat(cutoff, 'f', -1, 64),
	}).Result()
	if err != nil {
		return nil, err
	}

	total, err := tx.ZCard(ctx, e.completedKey()).Result()
	if err != nil {
		return nil, err
	}
	total += pending

	evict := aged
	excess := total - int64(len(aged)) - count
	if excess > 0 {
		// The aged jids are the oldest members, so one rank read covers
		// both bounds.
		evict, err = tx.ZRange(ctx, e.completedKey(), 0, int64(len(aged))+excess-1).Result()
		if err != nil {
			return nil, err
		}
	}

	plan := &gcPlan{evict: evict, tags: make(map[string][]string, len(evict))}
	for _, jid := range evict {
		raw, err := tx.HGet(ctx, e.jobKey(jid), "tags").Result()
		if err == redis.Nil || raw == "" {
			continue
		}
		if err != nil {
			return nil, err
		}
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			continue
		}
		plan.tags[jid] = tags
	}
	return plan, nil
}

// applyGC queues the eviction writes onto the commit pipeline.
func (e *Engine) applyGC(ctx context.Context, pipe redis.Pipeliner, plan *gcPlan) {
	if len(plan.evict) == 0 {
		return
	}
	members := make([]interface{}, len(plan.evict))
	for i, jid := range plan.evict {
		members[i] = jid
	}
	pipe.ZRem(ctx, e.completedKey(), members...)
	for _, jid := range plan.evict {
		for _, tag := range plan.tags[jid] {
			pipe.ZRem(ctx, e.tagJobsKey(tag), jid)
			pipe.ZIncrBy(ctx, e.tagsKey(), -1, tag)
		}
		pipe.Del(ctx, e.jobKey(jid))
	}
}

// SweepCompleted runs the completed-job GC standalone, so retention bounds
// hold even when no completions are arriving. Returns how many jobs were
// evicted.
func (e *Engine) SweepCompleted(ctx context.Context, now float64) (int, error) {
	evicted := 0
	err := e.transact(ctx, func(tx *redis.Tx) error {
		plan, err := e.prepareGC(ctx, tx, now, 0)
		if err != nil {
			return err
		}
		evicted = len(plan.evict)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			e.applyGC(ctx, pipe, plan)
			return nil
		})
		return err
	}, e.completedKey())
	if err != nil {
		return 0, err
	}
	if evicted > 0 {
		obs.CompletedGCEvicted.Add(float64(evicted))
		e.log.Debug("completed sweep evicted jobs", obs.Int("evicted", evicted))
	}
	return evicted, nil
}
