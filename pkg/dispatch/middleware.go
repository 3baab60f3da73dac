package dispatch

import (
	"database/sql"
	"fmt"
	"log"

	"stint/pkg/protocol"
)

// Transaction returns the middleware that gives every handler call
// all-or-nothing visibility. It opens a transaction before the handler runs
// and commits on any returned response — success or a reported domain fault
// (guard-before-mutate means a fault has nothing to undo). Only an
// unexpected handler error or panic rolls back.
func Transaction(db *sql.DB) Middleware {
	return func(rc *Context, next func() (any, error)) (data any, err error) {
		tx, txErr := db.BeginTx(rc.Ctx, nil)
		if txErr != nil {
			return nil, fmt.Errorf("begin tx: %w", txErr)
		}
		rc.Tx = tx

		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				data, err = nil, fmt.Errorf("handler panic: %v", p)
			}
		}()

		data, err = next()
		if err != nil && protocol.AsFault(err) == nil {
			_ = tx.Rollback()
			return nil, err
		}
		if commitErr := tx.Commit(); commitErr != nil {
			return nil, fmt.Errorf("commit tx: %w", commitErr)
		}
		return data, err
	}
}

// Effect is one staged non-transactional side effect.
type Effect struct {
	Name string
	Fn   func() error
}

// Effects buffers side effects (filesystem writes and the like) that must
// not become visible unless the surrounding transaction commits.
type Effects struct {
	staged []Effect
}

// Stage queues a side effect for post-commit execution.
func (e *Effects) Stage(name string, fn func() error) {
	e.staged = append(e.staged, Effect{Name: name, Fn: fn})
}

// Len returns the number of staged effects.
func (e *Effects) Len() int {
	return len(e.staged)
}

// flush runs every staged effect in order. Effect failures are best-effort:
// the transaction is already committed, so they are logged, not propagated.
func (e *Effects) flush() {
	for _, eff := range e.staged {
		if err := eff.Fn(); err != nil {
			log.Printf("effect %s: %v", eff.Name, err)
		}
	}
	e.staged = nil
}

// Buffered returns the middleware that lets handlers stage non-transactional
// side effects. Register it before Transaction so effects flush only after
// the commit inside it has succeeded, and are discarded on rollback.
func Buffered() Middleware {
	return func(rc *Context, next func() (any, error)) (any, error) {
		rc.Effects = &Effects{}
		data, err := next()
		if err != nil && protocol.AsFault(err) == nil {
			rc.Effects.staged = nil
			return data, err
		}
		rc.Effects.flush()
		return data, err
	}
}
