package protocol

import (
	"errors"
	"fmt"
)

// Fault is an expected domain condition reported by a handler. It travels
// as an error through the handler chain but is not an internal failure:
// the dispatch layer commits the transaction and renders it as an
// {ok:false, error:code} response. Guard-before-mutate means a Fault never
// has writes behind it that would need undoing.
type Fault struct {
	Code    string
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// NotFoundf builds a NOT_FOUND fault.
func NotFoundf(format string, args ...any) *Fault {
	return &Fault{Code: FaultNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyFinishedf builds an ALREADY_FINISHED fault.
func AlreadyFinishedf(format string, args ...any) *Fault {
	return &Fault{Code: FaultAlreadyFinished, Message: fmt.Sprintf(format, args...)}
}

// AlreadyEndedf builds an ALREADY_ENDED fault.
func AlreadyEndedf(format string, args ...any) *Fault {
	return &Fault{Code: FaultAlreadyEnded, Message: fmt.Sprintf(format, args...)}
}

// AsFault returns the Fault wrapped anywhere in err's chain, or nil.
func AsFault(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return nil
}
