// Package dispatch is the single entry point for every typed command the
// daemon executes. A closed, compile-time-typed command table maps dotted
// command names to a (decode, validate, handle) triple; Dispatch validates
// the raw arguments, runs the handler inside the registered middleware
// chain, and classifies the outcome into a wire envelope.
//
// Handlers compose by calling engine methods directly — never by
// re-entering Dispatch — so composite operations stay inside one serialized
// turn and one transaction.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"stint/pkg/protocol"
	"stint/pkg/store"
)

// Args is implemented by every command argument struct. Validate returns
// field-level issues; an empty slice means the arguments are acceptable.
type Args interface {
	Validate() []protocol.Issue
}

// Context carries per-request state through the middleware chain into the
// handler. Tx is bound by the transaction middleware; Effects by the
// effects middleware.
type Context struct {
	Ctx     context.Context
	ConnID  string
	Tx      store.Querier
	Effects *Effects
}

// Middleware wraps handler execution. The outermost middleware is the one
// registered first.
type Middleware func(rc *Context, next func() (any, error)) (any, error)

type command struct {
	// run decodes and validates raw args, then invokes the typed handler.
	// Validation happens before the middleware chain runs.
	decode func(raw json.RawMessage) (func(rc *Context) (any, error), []protocol.Issue, error)
}

// Registry is the closed command table.
type Registry struct {
	commands   map[string]command
	middleware []Middleware
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]command)}
}

// Use appends a middleware. Middlewares run in registration order, outermost
// first.
func (r *Registry) Use(m Middleware) {
	r.middleware = append(r.middleware, m)
}

// Register binds a command name to a typed handler. The argument type is
// fixed at compile time; duplicate names panic at start-up, the only moment
// the table changes.
func Register[A Args](r *Registry, name string, fn func(rc *Context, args A) (any, error)) {
	if _, exists := r.commands[name]; exists {
		panic(fmt.Sprintf("dispatch: duplicate command %q", name))
	}
	r.commands[name] = command{
		decode: func(raw json.RawMessage) (func(rc *Context) (any, error), []protocol.Issue, error) {
			if len(raw) == 0 {
				raw = json.RawMessage("{}")
			}
			var args A
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, nil, fmt.Errorf("decode args: %w", err)
			}
			if issues := args.Validate(); len(issues) > 0 {
				return nil, issues, nil
			}
			return func(rc *Context) (any, error) { return fn(rc, args) }, nil, nil
		},
	}
}

// Commands returns the registered command names, for introspection.
func (r *Registry) Commands() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	return names
}

// Dispatch resolves, validates, and executes one command, returning the
// response envelope. Expected domain conditions (protocol.Fault) surface as
// ok:false without an internal failure; anything else a handler returns as
// an error is classified HANDLER_ERROR.
func (r *Registry) Dispatch(ctx context.Context, connID, name string, raw json.RawMessage) protocol.Response {
	cmd, ok := r.commands[name]
	if !ok {
		return protocol.Response{
			OK:      false,
			Error:   protocol.ErrUnknownCommand,
			Message: fmt.Sprintf("unknown command %q", name),
		}
	}

	handler, issues, err := cmd.decode(raw)
	if err != nil || len(issues) > 0 {
		resp := protocol.Response{
			OK:      false,
			Error:   protocol.ErrValidation,
			Details: issues,
		}
		if err != nil {
			resp.Message = err.Error()
		} else {
			resp.Message = fmt.Sprintf("invalid arguments for %q", name)
		}
		return resp
	}

	rc := &Context{Ctx: ctx, ConnID: connID}

	run := func() (any, error) { return handler(rc) }
	for i := len(r.middleware) - 1; i >= 0; i-- {
		m := r.middleware[i]
		next := run
		run = func() (any, error) { return m(rc, next) }
	}

	data, err := run()
	if err != nil {
		if f := protocol.AsFault(err); f != nil {
			return protocol.Response{OK: false, Error: f.Code, Message: f.Message}
		}
		return protocol.Response{OK: false, Error: protocol.ErrHandler, Message: err.Error()}
	}
	return protocol.Response{OK: true, Data: data}
}
