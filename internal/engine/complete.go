// Copyright 2025 James Ross
package engine

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/flyingrobots/go-redis-job-engine/internal/obs"
)

// CompleteOptions carries the optional advance directives for Complete.
// Next moves the job into another queue; Delay defers that move; Depends
// gates it on other jids. Delay and Depends are mutually exclusive, and both
// require Next.
type CompleteOptions struct {
	Next    string
	Delay   int64
	Depends []string
}

// Complete finishes a running job owned by worker. With no Next the job
// becomes terminal and enters the completed-GC window; with Next it advances
// to the target queue, either immediately, after Delay seconds, or once its
// new dependencies resolve. Returns the job's resulting state.
func (e *Engine) Complete(ctx context.Context, now float64, jid, worker, queue string, data json.RawMessage, opts *CompleteOptions) (string, error) {
	ctx, span := obs.StartOperationSpan(ctx, "complete", jid)
	defer span.End()

	if worker == "" {
		return "", argErrorf("complete: worker is required")
	}
	if queue == "" {
		return "", argErrorf("complete: queue is required")
	}
	if err := validateDataMapping(data); err != nil {
		return "", err
	}
	if opts == nil {
		opts = &CompleteOptions{}
	}
	if opts.Delay > 0 && len(opts.Depends) > 0 {
		return "", argErrorf("complete: delay and depends are mutually exclusive")
	}
	if opts.Next == "" && (opts.Delay > 0 || len(opts.Depends) > 0) {
		return "", argErrorf("complete: delay and depends require next")
	}

	var result string
	var released, evicted int
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

		history := j.history
		var popped int64
		if n := len(history); n > 0 {
			history[n-1].Done = int64(now)
			popped = history[n-1].Popped
		}

		q := e.queue(queue)
		var runStat *statUpdate
		if popped > 0 {
			// Bucketed as the time since pop; the stat keeps its
			// historical wire label.
			runStat, err = q.prepareStat(ctx, tx, now, "run", int64(now)-popped)
			if err != nil {
				return err
			}
		}

		tracked, err := e.isTracked(ctx, tx, jid)
		if err != nil {
			return err
		}

		// Branch-specific reads, all taken before the commit pipeline.
		var plan *gcPlan
		var dependents []string
		var releases []release
		var newDeps []string
		if opts.Next != "" && opts.Delay == 0 {
			if newDeps, err = e.filterDependencies(ctx, tx, opts.Depends); err != nil {
				return err
			}
		}
		if opts.Next == "" {
			if plan, err = e.prepareGC(ctx, tx, now, 1); err != nil {
				return err
			}
			evicted = len(plan.evict)
			if dependents, releases, err = e.prepareCascade(ctx, tx, jid); err != nil {
				return err
			}
			released = len(releases)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			jobKey := e.jobKey(jid)
			pipe.HSet(ctx, jobKey, "data", string(data))
			q.removeAll(ctx, pipe, jid)
			if runStat != nil {
				runStat.apply(ctx, pipe)
			}
			pipe.ZRem(ctx, e.workerJobsKey(worker), jid)
			if tracked {
				e.publishTracked(ctx, pipe, channelCompleted, jid)
			}

			if opts.Next != "" {
				if err := e.publishLog(ctx, pipe, map[string]interface{}{
					"jid":   jid,
					"event": "advanced",
					"queue": queue,
					"to":    opts.Next,
				}); err != nil {
					return err
				}
				history = append(history, HistoryEntry{Queue: opts.Next, Put: int64(now)})
				enc, err := encodeHistory(history)
				if err != nil {
					return err
				}
				pipe.ZAddNX(ctx, e.queuesKey(), redis.Z{Score: now, Member: opts.Next})
				pipe.HSet(ctx, jobKey,
					"state", StateWaiting,
					"worker", "",
					"failure", "{}",
					"queue", opts.Next,
					"expires", 0,
					"remaining", j.retries,
					"history", enc,
				)
				next := e.queue(opts.Next)
				switch {
				case opts.Delay > 0:
					next.addScheduled(ctx, pipe, now+float64(opts.Delay), jid)
					pipe.HSet(ctx, jobKey, "state", StateScheduled)
					result = StateScheduled
				default:
					e.applyEdges(ctx, pipe, jid, newDeps)
					if len(newDeps) > 0 {
						next.addDepends(ctx, pipe, now, jid)
						pipe.HSet(ctx, jobKey, "state", StateDepends)
						result = StateDepends
					} else {
						next.addWork(ctx, pipe, now, j.priority, jid)
						result = StateWaiting
					}
				}
				return nil
			}

			if err := e.publishLog(ctx, pipe, map[string]interface{}{
				"jid":   jid,
				"event": "completed",
				"queue": queue,
			}); err != nil {
				return err
			}
			enc, err := encodeHistory(history)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, jobKey,
				"state", StateComplete,
				"worker", "",
				"queue", "",
				"expires", 0,
				"failure", "{}",
				"remaining", j.retries,
				"history", enc,
			)
			pipe.ZAdd(ctx, e.completedKey(), redis.Z{Score: now, Member: jid})
			e.applyGC(ctx, pipe, plan)
			e.applyCascade(ctx, pipe, now, jid, dependents, releases)
			result = StateComplete
			return nil
		})
		return err
	}, e.jobKey(jid), e.statsKey(dayBin(now), queue))
	if err != nil {
		obs.RecordSpanError(span, err)
		return "", err
	}

	obs.JobsCompleted.Inc()
	if opts.Next != "" {
		obs.JobsAdvanced.Inc()
	}
	if released > 0 {
		obs.DependencyReleases.Add(float64(released))
	}
	if evicted > 0 {
		obs.CompletedGCEvicted.Add(float64(evicted))
	}
	e.log.Debug("job completed",
		obs.String("jid", jid),
		obs.String("queue", queue),
		obs.String("result", result),
	)
	return result, nil
}
