package pkglog

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrorKey is the attribute key whose error value is rendered as the
// exception_* fields of a log line.
const ErrorKey = "error"

// DefaultErrorOnly lists logger-name prefixes of chatty dependencies that only
// log at error level.
//
//nolint:gochecknoglobals // shared default, copied by InitLogging
var DefaultErrorOnly = []string{
	"net/http",
	"github.com/rs/cors",
	"github.com/spf13/viper",
	"github.com/julienschmidt/httprouter",
	"github.com/prometheus",
}

// Options configures InitLogging.
type Options struct {
	// Level is the minimum level written. Defaults to slog.LevelInfo.
	Level slog.Leveler
	// Output receives one JSON line per record. Defaults to os.Stdout.
	Output io.Writer
	// ErrorOnly holds logger-name prefixes restricted to error level.
	// Nil means DefaultErrorOnly; an empty slice disables the restriction.
	ErrorOnly []string
}

//nolint:gochecknoglobals // process-wide logging state
var (
	initMu sync.Mutex
	active atomic.Pointer[formatter]
)

// InitLogging configures the process-wide slog logger.
//
// Every record goes through a single formatter that writes JSON lines with the
// request id of the record's context. Calling InitLogging again swaps the
// output, level and error-only list in place: loggers obtained earlier follow
// the new configuration and no line is ever written twice.
func InitLogging(opts Options) {
	initMu.Lock()
	defer initMu.Unlock()

	active.Store(newFormatter(opts))
	slog.SetDefault(slog.New(&contextHandler{}))
}

// Named returns a logger whose records carry name as their logger name. The
// name selects the error-only restriction and prefixes the function field.
func Named(name string) *slog.Logger {
	return slog.New(&contextHandler{name: name})
}

// NewStdLogger returns a *log.Logger that writes through the named logger at
// the given level, for APIs such as http.Server.ErrorLog.
func NewStdLogger(name string, level slog.Level) *log.Logger {
	return slog.NewLogLogger(&contextHandler{name: name}, level)
}

// PrintfLogger adapts a named logger to Printf-style logging interfaces such as
// the one used by github.com/rs/cors.
type PrintfLogger struct {
	h     slog.Handler
	level slog.Level
}

// NewPrintfLogger returns a PrintfLogger writing at level.
func NewPrintfLogger(name string, level slog.Level) *PrintfLogger {
	return &PrintfLogger{h: &contextHandler{name: name}, level: level}
}

// Printf formats and logs one record attributed to the caller of Printf.
func (p *PrintfLogger) Printf(format string, args ...any) {
	ctx := context.Background()
	if !p.h.Enabled(ctx, p.level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(2, pcs[:]) // skip [Callers, Printf]
	r := slog.NewRecord(time.Now(), p.level, fmt.Sprintf(format, args...), pcs[0])
	_ = p.h.Handle(ctx, r) //nolint:errcheck // nowhere to report
}

// ParseLevel maps a level name such as "debug" or "WARNING" to a slog.Level.
// Unknown names fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL", "FATAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// contextHandler is the single slog.Handler installed by InitLogging. It holds
// no output of its own and always delegates to the active formatter.
type contextHandler struct {
	name   string
	prefix string
	attrs  []slog.Attr
}

func (h *contextHandler) Enabled(_ context.Context, level slog.Level) bool {
	f := active.Load()
	return f != nil && f.enabled(h.name, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	f := active.Load()
	if f == nil {
		return nil
	}
	return f.handle(ctx, h, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, withPrefix(h.prefix, a))
	}
	return &clone
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func withPrefix(prefix string, a slog.Attr) slog.Attr {
	if prefix == "" || a.Key == "" {
		return a
	}
	a.Key = prefix + a.Key
	return a
}

func defaultProc() string {
	if len(os.Args) == 0 {
		return "main"
	}
	return filepath.Base(os.Args[0])
}
