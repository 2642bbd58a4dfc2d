// Copyright 2025 James Ross
package engine

import (
	"context"
	"encoding/json"
	"strconv"
)

// updatableFields is the set of scalar job-hash fields Update may overwrite,
// with the validation each value must pass.
var updatableFields = map[string]func(string) error{
	"klass":  nil,
	"queue":  nil,
	"worker": nil,
	"state":  nil,
	"priority": func(v string) error {
		_, err := strconv.ParseInt(v, 10, 64)
		return err
	},
	"retries": func(v string) error {
		_, err := strconv.ParseInt(v, 10, 64)
		return err
	},
	"remaining": func(v string) error {
		_, err := strconv.ParseInt(v, 10, 64)
		return err
	},
	"expires": func(v string) error {
		// "" is an accepted not-owned sentinel.
		if v == "" {
			return nil
		}
		_, err := strconv.ParseFloat(v, 64)
		return err
	},
	"data": func(v string) error {
		return validateDataMapping(json.RawMessage(v))
	},
}

// Update bulk-overwrites recognised scalar fields on the job hash. It checks
// neither state nor ownership; it exists for administrative paths and for
// composition from queue-level operations.
func (e *Engine) Update(ctx context.Context, jid string, fields map[string]string) error {
	if len(fields) == 0 {
		return argErrorf("update: no fields given")
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		check, ok := updatableFields[k]
		if !ok {
			return argErrorf("update: unrecognised field %q", k)
		}
		if check != nil {
			if err := check(v); err != nil {
				return argErrorf("update: invalid value for %q: %v", k, err)
			}
		}
		args = append(args, k, v)
	}
	return e.rdb.HSet(ctx, e.jobKey(jid), args...).Err()
}
