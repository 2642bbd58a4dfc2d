// Copyright 2025 James Ross
package engine

import (
	"context"
	"encoding/json"
)

// Data returns the decoded job record including the tracked flag and both
// sides of the dependency graph. Returns nil when no job hash exists.
func (e *Engine) Data(ctx context.Context, jid string) (*Record, error) {
	j, err := e.loadJob(ctx, e.rdb, jid)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, nil
	}

	deps, err := e.rdb.SMembers(ctx, e.dependenciesKey(jid)).Result()
	if err != nil {
		return nil, err
	}
	dependents, err := e.rdb.SMembers(ctx, e.dependentsKey(jid)).Result()
	if err != nil {
		return nil, err
	}
	tracked, err := e.isTracked(ctx, e.rdb, jid)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		JID:          j.jid,
		Klass:        j.klass,
		State:        j.state,
		Queue:        j.queue,
		Worker:       j.worker,
		Priority:     j.priority,
		Expires:      j.expires,
		Retries:      j.retries,
		Remaining:    j.remaining,
		Data:         json.RawMessage(j.data),
		Tags:         j.tags,
		History:      j.history,
		Failure:      j.failure,
		Tracked:      tracked,
		Dependencies: deps,
		Dependents:   dependents,
	}
	if len(rec.Data) == 0 {
		rec.Data = json.RawMessage("{}")
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if rec.History == nil {
		rec.History = []HistoryEntry{}
	}
	return rec, nil
}

// DataFields projects the record onto the given keys, in order. Returns nil
// when the job does not exist.
func (e *Engine) DataFields(ctx context.Context, jid string, keys ...string) ([]interface{}, error) {
	rec, err := e.Data(ctx, jid)
	if err != nil || rec == nil {
		return nil, err
	}
	out := make([]interface{}, len(keys))
	for i, k := range keys {
		out[i] = rec.field(k)
	}
	return out, nil
}

func (r *Record) field(name string) interface{} {
	switch name {
	case "jid":
		return r.JID
	case "klass":
		return r.Klass
	case "state":
		return r.State
	case "queue":
		return r.Queue
	case "worker":
		return r.Worker
	case "priority":
		return r.Priority
	case "expires":
		return r.Expires
	case "retries":
		return r.Retries
	case "remaining":
		return r.Remaining
	case "data":
		return r.Data
	case "tags":
		return r.Tags
	case "history":
		return r.History
	case "failure":
		if r.Failure == nil {
			return map[string]interface{}{}
		}
		return r.Failure
	case "tracked":
		return r.Tracked
	case "dependencies":
		return r.Dependencies
	case "dependents":
		return r.Dependents
	default:
		return nil
	}
}
