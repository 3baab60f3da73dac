package protocol

import "encoding/json"

// Request is one newline-delimited JSON frame received by the daemon.
// Two request shapes share the channel: a typed RPC ({cmd, args}) and an
// ad hoc read query ({sql, params, format, single}). A frame with a
// non-empty SQL field is a query; otherwise it is a command.
type Request struct {
	Cmd  string          `json:"cmd,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`

	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`
	Format string `json:"format,omitempty"` // "objects" (default) | "arrays"
	Single bool   `json:"single,omitempty"` // return first row only
}

// Response is the envelope written back for every frame.
type Response struct {
	OK      bool    `json:"ok"`
	Data    any     `json:"data,omitempty"`
	Error   string  `json:"error,omitempty"`
	Message string  `json:"message,omitempty"`
	Details []Issue `json:"details,omitempty"`
}

// Issue is one field-level validation problem.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Dispatch-level error codes. These come from the dispatch layer itself,
// never from handlers.
const (
	ErrUnknownCommand = "UNKNOWN_COMMAND"
	ErrValidation     = "VALIDATION_ERROR"
	ErrHandler        = "HANDLER_ERROR"
	ErrMalformedFrame = "MALFORMED_FRAME"
	ErrQueryFailed    = "QUERY_FAILED"
)

// Domain fault codes reported by handlers as ordinary ok:false responses.
const (
	FaultNotFound        = "NOT_FOUND"
	FaultAlreadyFinished = "ALREADY_FINISHED"
	FaultAlreadyEnded    = "ALREADY_ENDED"
	FaultNoActiveEffort  = "NO_ACTIVE_EFFORT"
)
