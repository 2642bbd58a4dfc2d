// Copyright 2025 James Ross
package engine

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/flyingrobots/go-redis-job-engine/internal/obs"
)

// Retry releases a running job back to its queue, consuming one attempt.
// With a positive delay the job lands in the scheduled set instead of work.
// When attempts are exhausted the job fails under the synthetic group
// "failed-retries-<queue>". The returned count is the remaining attempts,
// negative on exhaustion.
func (e *Engine) Retry(ctx context.Context, now float64, jid, queue, worker string, delay int64) (int64, error) {
	ctx, span := obs.StartOperationSpan(ctx, "retry", jid)
	defer span.End()

	if queue == "" {
		return 0, argErrorf("retry: queue is required")
	}
	if worker == "" {
		return 0, argErrorf("retry: worker is required")
	}
	if delay < 0 {
		return 0, argErrorf("retry: delay must be non-negative")
	}

	var remaining int64
	err := e.transact(ctx, func(tx *redis.Tx) error {
		j, err := e.loadJob(ctx, tx, jid)
		if err != nil {
			return err
		}
		if j == nil || j.worker != worker {
			return ErrOwnershipLost
		}
		if j.state != StateRunning {
			return ErrStateViolation
		}

		remaining = j.remaining - 1
		q := e.queue(queue)

		var encHistory, encFailure string
		var group string
		if remaining < 0 {
			group = "failed-retries-" + queue
			history := j.history
			if n := len(history); n > 0 {
				history[n-1].Failed = int64(now)
			} else {
				history = []HistoryEntry{{Worker: worker, Failed: int64(now)}}
			}
			if encHistory, err = encodeHistory(history); err != nil {
				return err
			}
			encFailure, err = encodeFailure(&Failure{
				Group:   group,
				Message: fmt.Sprintf("Job exhausted retries in queue %q", queue),
				When:    int64(now),
				Worker:  worker,
			})
			if err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			q.removeLock(ctx, pipe, jid)
			pipe.HIncrBy(ctx, e.jobKey(jid), "remaining", -1)
			pipe.ZRem(ctx, e.workerJobsKey(worker), jid)

			switch {
			case remaining < 0:
				pipe.HSet(ctx, e.jobKey(jid),
					"state", StateFailed,
					"worker", "",
					"expires", "",
					"history", encHistory,
					"failure", encFailure,
				)
				pipe.SAdd(ctx, e.failureGroupsKey(), group)
				pipe.LPush(ctx, e.failedGroupKey(group), jid)
			case delay > 0:
				q.addScheduled(ctx, pipe, now+float64(delay), jid)
				pipe.HSet(ctx, e.jobKey(jid),
					"state", StateScheduled,
					"worker", "",
					"expires", 0,
				)
			default:
				q.addWork(ctx, pipe, now, j.priority, jid)
				pipe.HSet(ctx, e.jobKey(jid),
					"state", StateWaiting,
					"worker", "",
					"expires", 0,
				)
			}
			return nil
		})
		return err
	}, e.jobKey(jid))
	if err != nil {
		obs.RecordSpanError(span, err)
		return 0, err
	}

	obs.JobsRetried.Inc()
	e.log.Debug("job retried",
		obs.String("jid", jid),
		obs.String("queue", queue),
		obs.Int64("remaining", remaining),
	)
	return remaining, nil
}
