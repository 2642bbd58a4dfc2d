// Copyright 2025 James Ross
package engine

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/flyingrobots/go-redis-job-engine/internal/obs"
)

// Priority updates a job's priority. A job sitting in its queue's work set
// is re-scored so the new priority takes effect immediately; jobs in the
// scheduled, depends, or locks views keep their position until they next
// enter work. Returns false when the job does not exist.
func (e *Engine) Priority(ctx context.Context, jid string, priority int64) (bool, error) {
	ctx, span := obs.StartOperationSpan(ctx, "priority", jid)
	defer span.End()

	found := false
	err := e.transact(ctx, func(tx *redis.Tx) error {
		j, err := e.loadJob(ctx, tx, jid)
		if err != nil {
			return err
		}
		if j == nil {
			return nil
		}
		found = true

		if j.queue == "" {
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, e.jobKey(jid), "priority", priority)
				return nil
			})
			return err
		}

		q := e.queue(j.queue)
		oldScore, err := tx.ZScore(ctx, q.workKey(), jid).Result()
		inWork := err == nil
		if err != nil && err != redis.Nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, e.jobKey(jid), "priority", priority)
			if inWork {
				// Shift only the priority component of the score; the
				// fractional enqueue-time part is preserved.
				newScore := oldScore - float64(j.priority) + float64(priority)
				pipe.ZAdd(ctx, q.workKey(), redis.Z{Score: newScore, Member: jid})
			}
			return nil
		})
		return err
	}, e.jobKey(jid))
	if err != nil {
		obs.RecordSpanError(span, err)
		return false, err
	}
	return found, nil
}
