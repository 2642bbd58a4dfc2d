// Copyright 2025 James Ross
package engine

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/flyingrobots/go-redis-job-engine/internal/obs"
)

// Heartbeat extends the caller's lock on a job. The new expiry is now plus
// the queue's heartbeat setting (per-queue override, then global, then 60s).
// If the job has been handed to another worker the call fails with
// ErrOwnershipLost and writes nothing. Returns the new expiry.
func (e *Engine) Heartbeat(ctx context.Context, now float64, jid, worker string, data json.RawMessage) (float64, error) {
	ctx, span := obs.StartOperationSpan(ctx, "heartbeat", jid)
	defer span.End()

	if worker == "" {
		return 0, argErrorf("heartbeat: worker is required")
	}
	if data != nil {
		if err := validateDataMapping(data); err != nil {
			return 0, err
		}
	}

	var expires float64
	err := e.transact(ctx, func(tx *redis.Tx) error {
		j, err := e.loadJob(ctx, tx, jid)
		if err != nil {
			return err
		}
		if j == nil || j.worker == "" || j.worker != worker {
			return ErrOwnershipLost
		}

		interval, err := e.heartbeatInterval(ctx, tx, j.queue)
		if err != nil {
			return err
		}
		expires = now + float64(interval)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, e.jobKey(jid), "expires", expires, "worker", worker)
			if data != nil {
				pipe.HSet(ctx, e.jobKey(jid), "data", string(data))
			}
			pipe.ZAdd(ctx, e.workerJobsKey(worker), redis.Z{Score: expires, Member: jid})
			e.queue(j.queue).addLock(ctx, pipe, expires, jid)
			return nil
		})
		return err
	}, e.jobKey(jid))
	if err != nil {
		obs.RecordSpanError(span, err)
		return 0, err
	}

	obs.HeartbeatsExtended.Inc()
	e.log.Debug("heartbeat extended",
		obs.String("jid", jid),
		obs.String("worker", worker),
	)
	return expires, nil
}
