package pkgerror

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// helperFuncs are the constructors that capture a stack; their own frame is
// never the failure point.
//
//nolint:gochecknoglobals // computed once
var helperFuncs = map[string]struct{}{
	funcName(WithStack): {},
	funcName(NewServer): {},
	funcName(NewPanic):  {},
}

func funcName(f any) string {
	return runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()
}

// WithStack annotates err with the caller's stack. A nil err returns nil and an
// err that already carries a stack is returned as is.
func WithStack(err error) error {
	if err == nil || hasStack(err) {
		return err
	}
	return pkgerrors.WithStack(err)
}

func hasStack(err error) bool {
	var st stackTracer
	return errors.As(err, &st)
}

// TypeName reports the Go type of err once stack annotations are stripped, for
// example "*fs.PathError". It returns "" for a nil err.
func TypeName(err error) string {
	if err == nil {
		return ""
	}
	cause := pkgerrors.Cause(err)
	if ge, ok := cause.(*Error); ok && ge.err != nil {
		cause = pkgerrors.Cause(ge.err)
	}
	t := reflect.TypeOf(cause)
	if t == nil {
		return ""
	}
	return t.String()
}

// StackFrames returns at most n formatted frames closest to where err was
// raised, outermost first, so the last frame is the raise site. For a panic
// that is the panicking function; the runtime and recovery frames above it are
// dropped. It returns nil when err carries no stack.
func StackFrames(err error, n int) []string {
	var st stackTracer
	if n <= 0 || !errors.As(err, &st) {
		return nil
	}

	trace := st.StackTrace()
	for i, f := range trace {
		if frameFunc(f) == "runtime.gopanic" {
			trace = trace[i+1:]
			break
		}
	}

	frames := make([]string, 0, n)
	for _, f := range trace {
		if len(frames) == n {
			break
		}
		name := frameFunc(f)
		if _, helper := helperFuncs[name]; helper || strings.HasPrefix(name, "runtime.") {
			continue
		}
		frames = append(frames, strings.TrimSpace(fmt.Sprintf("%+v", f)))
	}
	slices.Reverse(frames)
	return frames
}

func frameFunc(f pkgerrors.Frame) string {
	fn := runtime.FuncForPC(uintptr(f) - 1)
	if fn == nil {
		return ""
	}
	return fn.Name()
}
