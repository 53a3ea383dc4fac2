package pkgerror

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// PanicError carries a recovered panic value that is not an error.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string {
	return fmt.Sprint(p.Value)
}

// NewPanic turns a recovered panic value into an error carrying the current
// stack. It must be called from the deferred function that recovered, so the
// captured stack still contains the panicking frames.
func NewPanic(rvr any) error {
	err, ok := rvr.(error)
	if !ok {
		err = &PanicError{Value: rvr}
	}
	if hasStack(err) {
		return err
	}
	return pkgerrors.WithStack(err)
}
