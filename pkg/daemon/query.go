package daemon

import (
	"context"
	"fmt"

	"stint/pkg/protocol"
)

// runQuery executes an ad hoc {sql, params, format, single} frame. Queries
// share the serialized loop with typed commands, so even a caller-supplied
// statement observes a totally ordered view of the store.
func (s *Server) runQuery(ctx context.Context, frame protocol.Request) protocol.Response {
	rows, err := s.db.QueryContext(ctx, frame.SQL, frame.Params...)
	if err != nil {
		return protocol.Response{OK: false, Error: protocol.ErrQueryFailed, Message: err.Error()}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return protocol.Response{OK: false, Error: protocol.ErrQueryFailed, Message: err.Error()}
	}

	asArrays := frame.Format == "arrays"
	var objects []map[string]any
	var arrays [][]any

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return protocol.Response{OK: false, Error: protocol.ErrQueryFailed, Message: err.Error()}
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		if asArrays {
			arrays = append(arrays, values)
		} else {
			obj := make(map[string]any, len(cols))
			for i, col := range cols {
				obj[col] = values[i]
			}
			objects = append(objects, obj)
		}
		if frame.Single {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return protocol.Response{OK: false, Error: protocol.ErrQueryFailed,
			Message: fmt.Sprintf("iterate rows: %v", err)}
	}

	if frame.Single {
		var first any
		if asArrays && len(arrays) > 0 {
			first = arrays[0]
		} else if !asArrays && len(objects) > 0 {
			first = objects[0]
		}
		return protocol.Response{OK: true, Data: first}
	}
	if asArrays {
		if arrays == nil {
			arrays = [][]any{}
		}
		return protocol.Response{OK: true, Data: arrays}
	}
	if objects == nil {
		objects = []map[string]any{}
	}
	return protocol.Response{OK: true, Data: objects}
}
