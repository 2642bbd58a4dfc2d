// Copyright 2025 James Ross
package engine

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/flyingrobots/go-redis-job-engine/internal/obs"
)

// Fail marks a running job as failed under the given failure group. The job
// is pulled out of its queue views and retained in the failed state until an
// external cancel or re-queue removes it. Returns the jid.
func (e *Engine) Fail(ctx context.Context, now float64, jid, worker, group, message string, data json.RawMessage) (string, error) {
	ctx, span := obs.StartOperationSpan(ctx, "fail", jid)
	defer span.End()

	if worker == "" {
		return "", argErrorf("fail: worker is required")
	}
	if group == "" {
		return "", argErrorf("fail: group is required")
	}
	if message == "" {
		return "", argErrorf("fail: message is required")
	}
	if data != nil {
		if err := validateDataMapping(data); err != nil {
			return "", err
		}
	}

	err := e.transact(ctx, func(tx *redis.Tx) error {
		j, err := e.loadJob(ctx, tx, jid)
		if err != nil {
			return err
		}
		if j == nil || j.state != StateRunning {
			return ErrStateViolation
		}

		tracked, err := e.isTracked(ctx, tx, jid)
		if err != nil {
			return err
		}

		// Stamp every history entry owned by this worker, walking from the
		// tail; an empty history is seeded with the failure alone.
		history := j.history
		if len(history) == 0 {
			history = []HistoryEntry{{Worker: worker, Failed: int64(now)}}
		} else {
			for i := len(history) - 1; i >= 0; i-- {
				if history[i].Worker == worker {
					history[i].Failed = int64(now)
				}
			}
		}
		encHistory, err := encodeHistory(history)
		if err != nil {
			return err
		}
		encFailure, err := encodeFailure(&Failure{
			Group:   group,
			Message: message,
			When:    int64(now),
			Worker:  worker,
		})
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if err := e.publishLog(ctx, pipe, map[string]interface{}{
				"jid":     jid,
				"event":   "failed",
				"worker":  worker,
				"group":   group,
				"message": message,
			}); err != nil {
				return err
			}
			if tracked {
				e.publishTracked(ctx, pipe, channelFailed, jid)
			}
			pipe.ZRem(ctx, e.workerJobsKey(worker), jid)

			statsKey := e.statsKey(dayBin(now), j.queue)
			pipe.HIncrBy(ctx, statsKey, "failures", 1)
			pipe.HIncrBy(ctx, statsKey, "failed", 1)

			e.queue(j.queue).removeAll(ctx, pipe, jid)

			if data != nil {
				pipe.HSet(ctx, e.jobKey(jid), "data", string(data))
			}
			pipe.HSet(ctx, e.jobKey(jid),
				"state", StateFailed,
				"worker", "",
				"expires", "",
				"history", encHistory,
				"failure", encFailure,
			)

			pipe.SAdd(ctx, e.failureGroupsKey(), group)
			pipe.LPush(ctx, e.failedGroupKey(group), jid)
			return nil
		})
		return err
	}, e.jobKey(jid))
	if err != nil {
		obs.RecordSpanError(span, err)
		return "", err
	}

	obs.JobsFailed.Inc()
	e.log.Debug("job failed",
		obs.String("jid", jid),
		obs.String("group", group),
		obs.String("worker", worker),
	)
	return jid, nil
}
