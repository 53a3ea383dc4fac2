package pkglog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shandysiswandi/goservice/internal/pkg/pkgctx"
	"github.com/shandysiswandi/goservice/internal/pkg/pkgerror"
)

// TimestampLayout is the UTC layout of the timestamp field.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// maxStackFrames bounds exception_stack.
const maxStackFrames = 3

//nolint:gochecknoglobals // fixed field names of a log line
var reservedKeys = map[string]struct{}{
	"timestamp":         {},
	"level":             {},
	"proc":              {},
	"thrd":              {},
	"request_id":        {},
	"function":          {},
	"message":           {},
	"exception_type":    {},
	"exception_message": {},
	"exception_stack":   {},
	ErrorKey:            {},
}

// Entry is one log line. Fields holds the caller's attributes, written after
// the fixed fields.
type Entry struct {
	Timestamp string
	Level     string
	Proc      string
	Thrd      string
	RequestID string
	Function  string
	Message   string
	Exception *Exception
	Fields    []slog.Attr
}

// Exception describes the error attached to a record. Type and Message are nil
// when the attached error is nil; Stack is empty when the error has no stack.
type Exception struct {
	Type    *string
	Message *string
	Stack   string
}

// MarshalJSON writes the fixed fields in a stable order followed by Fields.
func (e Entry) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	w.field("timestamp", e.Timestamp)
	w.field("level", e.Level)
	w.field("proc", e.Proc)
	w.field("thrd", e.Thrd)
	w.field("request_id", e.RequestID)
	w.field("function", e.Function)
	w.field("message", e.Message)
	if e.Exception != nil {
		w.field("exception_type", e.Exception.Type)
		w.field("exception_message", e.Exception.Message)
		if e.Exception.Stack != "" {
			w.field("exception_stack", e.Exception.Stack)
		}
	}
	for _, a := range e.Fields {
		w.attr(a)
	}
	return w.close(), nil
}

type formatter struct {
	mu        sync.Mutex
	out       io.Writer
	level     slog.Leveler
	errorOnly []string
	proc      string
	module    string
}

func newFormatter(opts Options) *formatter {
	f := &formatter{
		out:       opts.Output,
		level:     opts.Level,
		errorOnly: opts.ErrorOnly,
		proc:      defaultProc(),
	}
	if f.out == nil {
		f.out = os.Stdout
	}
	if f.level == nil {
		f.level = slog.LevelInfo
	}
	if f.errorOnly == nil {
		f.errorOnly = append([]string(nil), DefaultErrorOnly...)
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		f.module = bi.Main.Path
	}
	return f
}

func (f *formatter) enabled(name string, level slog.Level) bool {
	if level < f.level.Level() {
		return false
	}
	return level >= slog.LevelError || !f.isErrorOnly(name)
}

func (f *formatter) isErrorOnly(name string) bool {
	if name == "" {
		return false
	}
	for _, p := range f.errorOnly {
		if name == p || strings.HasPrefix(name, p+"/") || strings.HasPrefix(name, p+".") {
			return true
		}
	}
	return false
}

func (f *formatter) handle(ctx context.Context, h *contextHandler, r slog.Record) error {
	name, line := h.name, 0
	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		line = frame.Line
		if name == "" {
			name = f.packageOf(frame.Function)
		}
	}
	// records from unnamed loggers are only attributable once the caller is known
	if h.name == "" && !f.enabled(name, r.Level) {
		return nil
	}

	out := f.format(ctx, h, r, name+":"+strconv.Itoa(line))

	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.out.Write(out)
	return err
}

func (f *formatter) format(ctx context.Context, h *contextHandler, r slog.Record, function string) []byte {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	e := Entry{
		Timestamp: ts.UTC().Format(TimestampLayout),
		Level:     levelName(r.Level),
		Proc:      f.proc,
		Thrd:      goroutineName(),
		RequestID: pkgctx.RequestID(ctx),
		Function:  function,
		Message:   r.Message,
	}

	fields := newFieldSet(len(h.attrs) + r.NumAttrs())
	collect := func(a slog.Attr) {
		a.Value = a.Value.Resolve()
		switch a.Key {
		case "timestamp":
			e.Timestamp = timestampOf(a.Value)
		case "level":
			e.Level = strings.ToUpper(a.Value.String())
		case ErrorKey:
			if ex, ok := exceptionOf(a.Value); ok {
				e.Exception = ex
				return
			}
			fields.add(a)
		default:
			if _, reserved := reservedKeys[a.Key]; !reserved {
				fields.add(a)
			}
		}
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(withPrefix(h.prefix, a))
		return true
	})
	e.Fields = fields.attrs

	//nolint:errcheck // MarshalJSON never fails
	b, _ := e.MarshalJSON()
	return append(b, '\n')
}

// packageOf turns "example.com/mod/internal/pkg/pkgrouter.fn.func1" into
// "internal/pkg/pkgrouter" when example.com/mod is the main module.
func (f *formatter) packageOf(function string) string {
	if function == "" {
		return "unknown"
	}
	slash := strings.LastIndex(function, "/")
	pkg := function
	if dot := strings.Index(function[slash+1:], "."); dot >= 0 {
		pkg = function[:slash+1+dot]
	}
	if f.module != "" && strings.HasPrefix(pkg, f.module+"/") {
		pkg = strings.TrimPrefix(pkg, f.module+"/")
	}
	return pkg
}

func exceptionOf(v slog.Value) (*Exception, bool) {
	if v.Kind() != slog.KindAny {
		return nil, false
	}
	raw := v.Any()
	if raw == nil {
		return &Exception{}, true
	}
	err, ok := raw.(error)
	if !ok {
		return nil, false
	}

	typ, msg := pkgerror.TypeName(err), err.Error()
	return &Exception{
		Type:    &typ,
		Message: &msg,
		Stack:   strings.TrimSpace(strings.Join(pkgerror.StackFrames(err, maxStackFrames), "\n")),
	}, true
}

func timestampOf(v slog.Value) string {
	if v.Kind() == slog.KindTime {
		return v.Time().UTC().Format(TimestampLayout)
	}
	return v.String()
}

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

func goroutineName() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine 18 [running]:"
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return "goroutine"
	}
	return "goroutine-" + string(fields[1])
}

// fieldSet keeps attributes in first-seen order; a repeated key replaces the
// earlier value.
type fieldSet struct {
	attrs []slog.Attr
	index map[string]int
}

func newFieldSet(n int) *fieldSet {
	return &fieldSet{attrs: make([]slog.Attr, 0, n), index: make(map[string]int, n)}
}

func (s *fieldSet) add(a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Key == "" && a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			s.add(ga)
		}
		return
	}
	if i, ok := s.index[a.Key]; ok {
		s.attrs[i] = a
		return
	}
	s.index[a.Key] = len(s.attrs)
	s.attrs = append(s.attrs, a)
}

type objectWriter struct {
	buf   bytes.Buffer
	first bool
}

func newObjectWriter() *objectWriter {
	w := &objectWriter{first: true}
	w.buf.WriteByte('{')
	return w
}

func (w *objectWriter) key(k string) {
	if !w.first {
		w.buf.WriteByte(',')
	}
	w.first = false
	w.buf.Write(marshal(k))
	w.buf.WriteByte(':')
}

func (w *objectWriter) field(k string, v any) {
	w.key(k)
	w.buf.Write(marshal(v))
}

func (w *objectWriter) attr(a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return
		}
		if a.Key == "" {
			for _, ga := range group {
				w.attr(ga)
			}
			return
		}
		nested := newObjectWriter()
		for _, ga := range group {
			nested.attr(ga)
		}
		w.key(a.Key)
		w.buf.Write(nested.close())
		return
	}
	w.field(a.Key, valueOf(a.Value))
}

func (w *objectWriter) close() []byte {
	w.buf.WriteByte('}')
	return w.buf.Bytes()
}

func valueOf(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(TimestampLayout)
	default:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case json.Marshaler:
			return x
		case fmt.Stringer:
			return x.String()
		default:
			return x
		}
	}
}

func marshal(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		buf.Reset()
		//nolint:errcheck,errchkjson // a string always encodes
		enc.Encode(fmt.Sprintf("%+v", v))
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}
