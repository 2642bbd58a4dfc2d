// Copyright 2025 James Ross
package engine

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Channels the engine publishes on. "log" carries one structured event per
// significant transition; "completed" and "failed" carry just the jid and
// only fire for tracked jobs.
const (
	channelLog       = "log"
	channelCompleted = "completed"
	channelFailed    = "failed"
)

func (e *Engine) channel(name string) string { return e.ns + ":" + name }

// publishLog queues a structured event onto the log channel as part of the
// commit pipeline.
func (e *Engine) publishLog(ctx context.Context, pipe redis.Pipeliner, event map[string]interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	pipe.Publish(ctx, e.channel(channelLog), string(payload))
	return nil
}

func (e *Engine) publishTracked(ctx context.Context, pipe redis.Pipeliner, channel, jid string) {
	pipe.Publish(ctx, e.channel(channel), jid)
}

// TailEvents subscribes to the log channel and invokes handler for each
// event payload until ctx is cancelled. Intended for operator daemons that
// want a structured feed of engine transitions.
func (e *Engine) TailEvents(ctx context.Context, handler func(payload string)) error {
	sub := e.rdb.Subscribe(ctx, e.channel(channelLog))
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handler(msg.Payload)
		}
	}
}
