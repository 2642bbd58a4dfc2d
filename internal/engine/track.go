// Copyright 2025 James Ross
package engine

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Track adds a job to the tracked set, which turns on publication of the
// per-jid completed/failed channels for it. Returns false when the job does
// not exist.
func (e *Engine) Track(ctx context.Context, now float64, jid string) (bool, error) {
	return e.setTracked(ctx, now, jid, true)
}

// Untrack removes a job from the tracked set. Returns false when the job
// does not exist.
func (e *Engine) Untrack(ctx context.Context, now float64, jid string) (bool, error) {
	return e.setTracked(ctx, now, jid, false)
}

func (e *Engine) setTracked(ctx context.Context, now float64, jid string, on bool) (bool, error) {
	found := false
	err := e.transact(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, e.jobKey(jid)).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return nil
		}
		found = true
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			event := "track"
			if on {
				pipe.ZAdd(ctx, e.trackedKey(), redis.Z{Score: now, Member: jid})
			} else {
				pipe.ZRem(ctx, e.trackedKey(), jid)
				event = "untrack"
			}
			return e.publishLog(ctx, pipe, map[string]interface{}{
				"jid":   jid,
				"event": event,
			})
		})
		return err
	}, e.jobKey(jid))
	if err != nil {
		return false, err
	}
	return found, nil
}
