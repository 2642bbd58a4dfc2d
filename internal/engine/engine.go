// Copyright 2025 James Ross
package engine

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Job states.
const (
	StateWaiting   = "waiting"
	StateRunning   = "running"
	StateScheduled = "scheduled"
	StateDepends   = "depends"
	StateComplete  = "complete"
	StateFailed    = "failed"
)

// maxTxRetries bounds the optimistic-transaction retry loop. Conflicts on a
// single job hash are rare; a handful of attempts is plenty.
const maxTxRetries = 10

// Engine executes job lifecycle operations against a shared Redis store.
// Every mutating job operation except Update runs as one optimistic
// transaction: WATCH on the job hash, reads and precondition checks, then all
// writes and publishes in a single MULTI/EXEC pipeline. Concurrent callers
// touching the same jid are serialised; a conflicting write aborts the EXEC
// and the operation retries. Update is a single HSET with no reads.
type Engine struct {
	rdb *redis.Client
	ns  string
	log *zap.Logger
}

// New returns an Engine writing under the given key namespace (e.g. "ql").
func New(rdb *redis.Client, namespace string, log *zap.Logger) *Engine {
	if namespace == "" {
		namespace = "ql"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{rdb: rdb, ns: namespace, log: log}
}

// Namespace returns the key namespace this engine writes under.
func (e *Engine) Namespace() string { return e.ns }

// transact runs fn under WATCH on the given keys, retrying on EXEC conflicts.
func (e *Engine) transact(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = e.rdb.Watch(ctx, fn, keys...)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return fmt.Errorf("transaction contention: %w", err)
}

// Key layout. All keys live under the engine namespace; the patterns match
// the deployed store so existing data remains readable.

func (e *Engine) jobKey(jid string) string          { return e.ns + ":j:" + jid }
func (e *Engine) dependenciesKey(jid string) string { return e.jobKey(jid) + "-dependencies" }
func (e *Engine) dependentsKey(jid string) string   { return e.jobKey(jid) + "-dependents" }
func (e *Engine) workerJobsKey(worker string) string {
	return e.ns + ":w:" + worker + ":jobs"
}
func (e *Engine) trackedKey() string   { return e.ns + ":tracked" }
func (e *Engine) queuesKey() string    { return e.ns + ":queues" }
func (e *Engine) completedKey() string { return e.ns + ":completed" }
func (e *Engine) failureGroupsKey() string {
	return e.ns + ":failures"
}
func (e *Engine) failedGroupKey(group string) string { return e.ns + ":f:" + group }
func (e *Engine) tagJobsKey(tag string) string       { return e.ns + ":t:" + tag }
func (e *Engine) tagsKey() string                    { return e.ns + ":tags" }
func (e *Engine) statsKey(bin int64, queue string) string {
	return fmt.Sprintf("%s:s:stats:%d:%s", e.ns, bin, queue)
}

// dayBin returns the start-of-UTC-day bin for a stats key suffix.
func dayBin(now float64) int64 {
	n := int64(now)
	return n - (n % 86400)
}
