// Copyright 2025 James Ross
package engine

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/flyingrobots/go-redis-job-engine/internal/obs"
)

// Depends commands.
const (
	DependsOn  = "on"
	DependsOff = "off"
)

// Depends adds or removes dependencies on a job that is currently in the
// depends state. "on jid..." adds edges to each incomplete dependency;
// "off all" and "off jid..." remove them, moving the job back to its queue's
// work set once no dependencies remain. Returns false without mutating when
// the job is missing or not in the depends state.
func (e *Engine) Depends(ctx context.Context, now float64, jid, command string, args ...string) (bool, error) {
	ctx, span := obs.StartOperationSpan(ctx, "depends", jid)
	defer span.End()

	if command != DependsOn && command != DependsOff {
		return false, argErrorf("depends: unknown command %q", command)
	}

	changed := false
	err := e.transact(ctx, func(tx *redis.Tx) error {
		j, err := e.loadJob(ctx, tx, jid)
		if err != nil {
			return err
		}
		if j == nil || j.state != StateDepends {
			return nil
		}
		changed = true

		if command == DependsOn {
			newDeps, err := e.filterDependencies(ctx, tx, args)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				e.applyEdges(ctx, pipe, jid, newDeps)
				return nil
			})
			return err
		}

		current, err := tx.SMembers(ctx, e.dependenciesKey(jid)).Result()
		if err != nil {
			return err
		}

		if len(args) == 1 && args[0] == "all" {
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, d := range current {
					pipe.SRem(ctx, e.dependentsKey(d), jid)
				}
				pipe.Del(ctx, e.dependenciesKey(jid))
				e.moveToWork(ctx, pipe, now, j)
				return nil
			})
			return err
		}

		remaining := make(map[string]struct{}, len(current))
		for _, d := range current {
			remaining[d] = struct{}{}
		}
		moved := false
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, d := range args {
				pipe.SRem(ctx, e.dependenciesKey(jid), d)
				pipe.SRem(ctx, e.dependentsKey(d), jid)
				delete(remaining, d)
				if len(remaining) == 0 && !moved {
					moved = true
					e.moveToWork(ctx, pipe, now, j)
				}
			}
			return nil
		})
		return err
	}, e.jobKey(jid))
	if err != nil {
		obs.RecordSpanError(span, err)
		return false, err
	}
	if changed {
		e.log.Debug("job dependencies updated",
			obs.String("jid", jid),
			obs.String("command", command),
		)
	}
	return changed, nil
}

// moveToWork flips a job out of its queue's depends set into work and marks
// it waiting. No-op on jobs without a queue; their state is left as is.
func (e *Engine) moveToWork(ctx context.Context, pipe redis.Pipeliner, now float64, j *jobState) {
	if j.queue != "" {
		q := e.queue(j.queue)
		q.removeDepends(ctx, pipe, j.jid)
		q.addWork(ctx, pipe, now, j.priority, j.jid)
		pipe.HSet(ctx, e.jobKey(j.jid), "state", StateWaiting)
	}
}
