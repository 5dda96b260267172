package emit

import (
	"errors"
	"fmt"

	"ilmerge/internal/sig"
)

var (
	// ErrUnresolvedLocation reports a reference to an entity whose home
	// module has no known location, so no AssemblyRef or ModuleRef can scope it.
	ErrUnresolvedLocation = errors.New("emit: reference to an entity with unknown location")
	// ErrMalformedIR reports IR the emitter cannot encode.
	ErrMalformedIR = errors.New("emit: malformed IR")
)

// emitFailure carries an error out of deep recursion to the session
// boundary, where Emit recovers it.
type emitFailure struct {
	err error
}

func (f emitFailure) Error() string { return f.err.Error() }

func (e *Emitter) fail(err error) {
	panic(emitFailure{err: err})
}

func (e *Emitter) failf(kind error, format string, args ...any) {
	e.fail(fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)))
}

// check converts a signature encoder error into a session failure.
func (e *Emitter) check(err error, what string) {
	if err == nil {
		return
	}
	if errors.Is(err, sig.ErrMalformed) {
		e.fail(fmt.Errorf("%w: %s: %w", ErrMalformedIR, what, err))
	}
	e.fail(fmt.Errorf("emit: %s: %w", what, err))
}

// recoverFailure turns an emitFailure panic into *err. Other panics keep
// unwinding.
func recoverFailure(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if f, ok := r.(emitFailure); ok {
		*err = f.err
		return
	}
	panic(r)
}
