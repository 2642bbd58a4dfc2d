// Copyright 2025 James Ross
package engine

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// The dependency DAG is stored as two sets per node; both sides of an edge
// are always written in the same transaction so symmetry holds at every
// committed state.

// filterDependencies keeps the candidate dependencies an edge may be added
// for: those that exist and are not already complete.
func (e *Engine) filterDependencies(ctx context.Context, tx redis.Cmdable, deps []string) ([]string, error) {
	var kept []string
	for _, d := range deps {
		state, err := tx.HGet(ctx, e.jobKey(d), "state").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		if state == StateComplete {
			continue
		}
		kept = append(kept, d)
	}
	return kept, nil
}

// applyEdges writes the edge d -> jid on both sides for each dependency.
func (e *Engine) applyEdges(ctx context.Context, pipe redis.Pipeliner, jid string, deps []string) {
	for _, d := range deps {
		pipe.SAdd(ctx, e.dependenciesKey(jid), d)
		pipe.SAdd(ctx, e.dependentsKey(d), jid)
	}
}

// release describes a dependent that loses its last dependency in the
// current transaction and moves back to its queue's work set.
type release struct {
	jid      string
	queue    string
	priority int64
}

// prepareCascade reads everything needed to release the dependents of jid.
// For each dependent whose only remaining dependency is jid, the move from
// its queue's depends set to the work set is returned as a release.
func (e *Engine) prepareCascade(ctx context.Context, tx redis.Cmdable, jid string) (dependents []string, releases []release, err error) {
	dependents, err = tx.SMembers(ctx, e.dependentsKey(jid)).Result()
	if err != nil {
		return nil, nil, err
	}
	for _, dep := range dependents {
		remaining, err := tx.SMembers(ctx, e.dependenciesKey(dep)).Result()
		if err != nil {
			return nil, nil, err
		}
		if len(remaining) != 1 || remaining[0] != jid {
			continue
		}
		fields, err := tx.HMGet(ctx, e.jobKey(dep), "queue", "priority").Result()
		if err != nil {
			return nil, nil, err
		}
		rel := release{jid: dep}
		if s, ok := fields[0].(string); ok {
			rel.queue = s
		}
		if s, ok := fields[1].(string); ok {
			rel.priority = parseInt(s)
		}
		releases = append(releases, rel)
	}
	return dependents, releases, nil
}

// applyCascade removes jid from each dependent's dependency set and flips
// the released dependents to waiting in their queues.
func (e *Engine) applyCascade(ctx context.Context, pipe redis.Pipeliner, now float64, jid string, dependents []string, releases []release) {
	for _, dep := range dependents {
		pipe.SRem(ctx, e.dependenciesKey(dep), jid)
	}
	for _, rel := range releases {
		if rel.queue != "" {
			q := e.queue(rel.queue)
			q.removeDepends(ctx, pipe, rel.jid)
			q.addWork(ctx, pipe, now, rel.priority, rel.jid)
		}
		pipe.HSet(ctx, e.jobKey(rel.jid), "state", StateWaiting)
	}
	pipe.Del(ctx, e.dependentsKey(jid))
}
