// Copyright 2025 James Ross
package engine

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Tag commands.
const (
	TagAdd    = "add"
	TagRemove = "remove"
)

// Tag adds or removes tags on a job, maintaining both the per-tag jid index
// and the global tag-cardinality set that completed-GC cleans up against.
// Returns the job's resulting tag list.
func (e *Engine) Tag(ctx context.Context, now float64, jid, command string, tags ...string) ([]string, error) {
	if command != TagAdd && command != TagRemove {
		return nil, argErrorf("tag: unknown command %q", command)
	}
	if len(tags) == 0 {
		return nil, argErrorf("tag: at least one tag is required")
	}

	var result []string
	err := e.transact(ctx, func(tx *redis.Tx) error {
		j, err := e.loadJob(ctx, tx, jid)
		if err != nil {
			return err
		}
		if j == nil {
			return argErrorf("tag: job %s does not exist", jid)
		}

		current := j.tags
		have := make(map[string]bool, len(current))
		for _, t := range current {
			have[t] = true
		}

		var added, removed []string
		if command == TagAdd {
			for _, t := range tags {
				if !have[t] {
					have[t] = true
					current = append(current, t)
					added = append(added, t)
				}
			}
		} else {
			drop := make(map[string]bool, len(tags))
			for _, t := range tags {
				if have[t] {
					drop[t] = true
					removed = append(removed, t)
				}
			}
			kept := current[:0]
			for _, t := range current {
				if !drop[t] {
					kept = append(kept, t)
				}
			}
			current = kept
		}
		result = append([]string{}, current...)

		enc, err := json.Marshal(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, e.jobKey(jid), "tags", string(enc))
			for _, t := range added {
				pipe.ZAdd(ctx, e.tagJobsKey(t), redis.Z{Score: now, Member: jid})
				pipe.ZIncrBy(ctx, e.tagsKey(), 1, t)
			}
			for _, t := range removed {
				pipe.ZRem(ctx, e.tagJobsKey(t), jid)
				pipe.ZIncrBy(ctx, e.tagsKey(), -1, t)
			}
			return nil
		})
		return err
	}, e.jobKey(jid))
	if err != nil {
		return nil, err
	}
	return result, nil
}
