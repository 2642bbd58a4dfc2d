// Copyright 2025 James Ross
package engine

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// queueHandle exposes the four ordered-set views a job operation needs on a
// queue, plus the stat sink. Writes go through a transaction pipeline so they
// commit with the rest of the operation.
type queueHandle struct {
	e    *Engine
	name string
}

func (e *Engine) queue(name string) queueHandle { return queueHandle{e: e, name: name} }

func (q queueHandle) workKey() string      { return q.e.ns + ":q:" + q.name + "-work" }
func (q queueHandle) locksKey() string     { return q.e.ns + ":q:" + q.name + "-locks" }
func (q queueHandle) scheduledKey() string { return q.e.ns + ":q:" + q.name + "-scheduled" }
func (q queueHandle) dependsKey() string   { return q.e.ns + ":q:" + q.name + "-depends" }

// workScore orders the work set by priority first, enqueue time second.
// Higher priorities sort above lower ones; within a priority, earlier
// enqueue times sort first. Pop reads the set highest-score-first.
func workScore(priority int64, now float64) float64 {
	return float64(priority) - now/1e10
}

func (q queueHandle) addWork(ctx context.Context, pipe redis.Pipeliner, now float64, priority int64, jid string) {
	pipe.ZAdd(ctx, q.workKey(), redis.Z{Score: workScore(priority, now), Member: jid})
}

func (q queueHandle) addLock(ctx context.Context, pipe redis.Pipeliner, expires float64, jid string) {
	pipe.ZAdd(ctx, q.locksKey(), redis.Z{Score: expires, Member: jid})
}

func (q queueHandle) addScheduled(ctx context.Context, pipe redis.Pipeliner, fireAt float64, jid string) {
	pipe.ZAdd(ctx, q.scheduledKey(), redis.Z{Score: fireAt, Member: jid})
}

func (q queueHandle) addDepends(ctx context.Context, pipe redis.Pipeliner, now float64, jid string) {
	pipe.ZAdd(ctx, q.dependsKey(), redis.Z{Score: now, Member: jid})
}

func (q queueHandle) removeLock(ctx context.Context, pipe redis.Pipeliner, jid string) {
	pipe.ZRem(ctx, q.locksKey(), jid)
}

func (q queueHandle) removeDepends(ctx context.Context, pipe redis.Pipeliner, jid string) {
	pipe.ZRem(ctx, q.dependsKey(), jid)
}

// removeAll takes the jid out of the work, locks, and scheduled views.
func (q queueHandle) removeAll(ctx context.Context, pipe redis.Pipeliner, jid string) {
	pipe.ZRem(ctx, q.workKey(), jid)
	pipe.ZRem(ctx, q.locksKey(), jid)
	pipe.ZRem(ctx, q.scheduledKey(), jid)
}

// statUpdate is a prepared stat write, computed from reads taken inside the
// transaction and applied to the commit pipeline.
type statUpdate struct {
	key    string
	stat   string
	count  int64
	mean   float64
	vk     float64
	bucket string
}

// prepareStat folds one duration sample into the day-binned stats hash,
// maintaining count, running mean, and variance, plus a coarse histogram
// bucket counter. Reads happen on tx; apply queues the writes.
func (q queueHandle) prepareStat(ctx context.Context, tx redis.Cmdable, now float64, stat string, val int64) (*statUpdate, error) {
	key := q.e.statsKey(dayBin(now), q.name)
	vals, err := tx.HMGet(ctx, key, stat, stat+".mean", stat+".vk").Result()
	if err != nil {
		return nil, fmt.Errorf("read stats %s: %w", key, err)
	}
	var count int64
	var mean, vk float64
	if s, ok := vals[0].(string); ok {
		count = parseInt(s)
	}
	if s, ok := vals[1].(string); ok {
		mean = parseFloat(s)
	}
	if s, ok := vals[2].(string); ok {
		vk = parseFloat(s)
	}
	count++
	oldMean := mean
	mean = mean + (float64(val)-mean)/float64(count)
	vk = vk + (float64(val)-mean)*(float64(val)-oldMean)
	return &statUpdate{
		key:    key,
		stat:   stat,
		count:  count,
		mean:   mean,
		vk:     vk,
		bucket: histBucket(val),
	}, nil
}

func (s *statUpdate) apply(ctx context.Context, pipe redis.Pipeliner) {
	pipe.HSet(ctx, s.key,
		s.stat, s.count,
		s.stat+".mean", s.mean,
		s.stat+".vk", s.vk,
	)
	pipe.HIncrBy(ctx, s.key, s.bucket, 1)
}

// histBucket picks the histogram field for a duration sample: per-second
// under a minute, then per-minute, per-hour, per-day.
func histBucket(val int64) string {
	if val < 0 {
		val = 0
	}
	switch {
	case val < 60:
		return fmt.Sprintf("s%d", val)
	case val < 3600:
		return fmt.Sprintf("m%d", val/60)
	case val < 86400:
		return fmt.Sprintf("h%d", val/3600)
	default:
		return fmt.Sprintf("d%d", val/86400)
	}
}
