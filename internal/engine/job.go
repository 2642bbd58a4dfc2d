// Copyright 2025 James Ross
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// HistoryEntry is one stage of a job's lifecycle. A job gains an entry each
// time it is put into a queue; pop, completion, and failure stamp the entry.
type HistoryEntry struct {
	Queue  string `json:"q,omitempty"`
	Put    int64  `json:"put,omitempty"`
	Popped int64  `json:"popped,omitempty"`
	Done   int64  `json:"done,omitempty"`
	Worker string `json:"worker,omitempty"`
	Failed int64  `json:"failed,omitempty"`
}

// Failure describes why a job last failed.
type Failure struct {
	Group   string `json:"group"`
	Message string `json:"message"`
	When    int64  `json:"when"`
	Worker  string `json:"worker"`
}

// Record is the fully decoded view of a job as returned by Data.
type Record struct {
	JID          string          `json:"jid"`
	Klass        string          `json:"klass"`
	State        string          `json:"state"`
	Queue        string          `json:"queue"`
	Worker       string          `json:"worker"`
	Priority     int64           `json:"priority"`
	Expires      float64         `json:"expires"`
	Retries      int64           `json:"retries"`
	Remaining    int64           `json:"remaining"`
	Data         json.RawMessage `json:"data"`
	Tags         []string        `json:"tags"`
	History      []HistoryEntry  `json:"history"`
	Failure      *Failure        `json:"failure,omitempty"`
	Tracked      bool            `json:"tracked"`
	Dependencies []string        `json:"dependencies"`
	Dependents   []string        `json:"dependents"`
}

// jobState is the raw job hash, parsed. Numeric fields tolerate absent and
// empty values: `expires` in particular is written as "" by fail and 0
// elsewhere, and both mean "not owned".
type jobState struct {
	jid       string
	klass     string
	state     string
	queue     string
	worker    string
	priority  int64
	retries   int64
	remaining int64
	expires   float64
	data      string
	tags      []string
	history   []HistoryEntry
	failure   *Failure
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// loadJob reads and parses the job hash. Returns nil when no hash exists.
func (e *Engine) loadJob(ctx context.Context, c redis.Cmdable, jid string) (*jobState, error) {
	vals, err := c.HGetAll(ctx, e.jobKey(jid)).Result()
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jid, err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	j := &jobState{
		jid:       jid,
		klass:     vals["klass"],
		state:     vals["state"],
		queue:     vals["queue"],
		worker:    vals["worker"],
		priority:  parseInt(vals["priority"]),
		retries:   parseInt(vals["retries"]),
		remaining: parseInt(vals["remaining"]),
		expires:   parseFloat(vals["expires"]),
		data:      vals["data"],
	}
	if s := vals["tags"]; s != "" {
		if err := json.Unmarshal([]byte(s), &j.tags); err != nil {
			return nil, fmt.Errorf("job %s: decode tags: %w", jid, err)
		}
	}
	if s := vals["history"]; s != "" {
		if err := json.Unmarshal([]byte(s), &j.history); err != nil {
			return nil, fmt.Errorf("job %s: decode history: %w", jid, err)
		}
	}
	if s := vals["failure"]; s != "" && s != "{}" {
		var f Failure
		if err := json.Unmarshal([]byte(s), &f); err != nil {
			return nil, fmt.Errorf("job %s: decode failure: %w", jid, err)
		}
		j.failure = &f
	}
	return j, nil
}

func encodeHistory(h []HistoryEntry) (string, error) {
	if h == nil {
		h = []HistoryEntry{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}
	return string(b), nil
}

func encodeFailure(f *Failure) (string, error) {
	if f == nil {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode failure: %w", err)
	}
	return string(b), nil
}

// validateDataMapping rejects payloads that are not a JSON object.
func validateDataMapping(data json.RawMessage) error {
	if len(data) == 0 {
		return argErrorf("data is required and must be a JSON mapping")
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return argErrorf("data must be a JSON mapping: %v", err)
	}
	return nil
}

// isTracked reports membership of jid in the tracked set.
func (e *Engine) isTracked(ctx context.Context, c redis.Cmdable, jid string) (bool, error) {
	_, err := c.ZScore(ctx, e.trackedKey(), jid).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
