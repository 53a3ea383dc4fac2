package pkgrouter

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shandysiswandi/goservice/internal/pkg/pkgctx"
	"github.com/shandysiswandi/goservice/internal/pkg/pkgerror"
	"github.com/shandysiswandi/goservice/internal/pkg/pkglog"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

// healthCheckPaths are served without the started/completed log lines.
//
//nolint:gochecknoglobals // fixed set
var healthCheckPaths = map[string]struct{}{
	"/health":    {},
	"/readiness": {},
	"/liveness":  {},
	"/ping":      {},
}

// IsHealthCheck reports whether path is one of the health-check paths.
func IsHealthCheck(path string) bool {
	_, ok := healthCheckPaths[path]
	return ok
}

func middlewareRequestLogging(uid Generator, obs Observer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = generateID(uid)
			}

			ctx := pkgctx.With(r.Context(), pkgctx.RequestContext{
				RequestID: requestID,
				Method:    r.Method,
				URL:       fullURL(r),
				Headers:   headerSnapshot(r),
				QueryArgs: querySnapshot(r.URL),
			})
			r = r.WithContext(ctx)

			method, path := r.Method, r.URL.Path
			healthCheck := IsHealthCheck(path)

			if !healthCheck {
				slog.InfoContext(ctx, fmt.Sprintf("Request started: %s %s", method, path),
					"method", method,
					"path", path,
					"remote_addr", remoteHost(r),
					"user_agent", r.UserAgent(),
					"request_id", requestID,
				)
			}

			rec := &statusRecorder{ResponseWriter: w, requestID: requestID}
			start := time.Now()

			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				//nolint:err113,errorlint // this must compare directly
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				elapsed := time.Since(start)
				err := pkgerror.NewPanic(rvr)
				slog.ErrorContext(ctx,
					fmt.Sprintf("Request error: %s %s - Exception: %s (%s)", method, path, err.Error(), durationMS(elapsed)),
					"method", method,
					"path", path,
					"duration_ms", durationMS(elapsed),
					"request_id", requestID,
					pkglog.ErrorKey, err,
				)
				observe(obs, method, http.StatusInternalServerError, elapsed)

				panic(rvr)
			}()

			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			rec.ensureHeader()

			if !healthCheck {
				slog.InfoContext(ctx,
					fmt.Sprintf("Request completed: %s %s - %d (%s)", method, path, rec.status, durationMS(elapsed)),
					"method", method,
					"path", path,
					"status_code", rec.status,
					"duration_ms", durationMS(elapsed),
					"request_id", requestID,
				)
			}
			observe(obs, method, rec.status, elapsed)
		})
	}
}

func generateID(uid Generator) string {
	if uid != nil {
		if id := uid.Generate(); id != "" {
			return id
		}
	}
	return pkgctx.GenerateID()
}

func observe(obs Observer, method string, status int, d time.Duration) {
	if obs != nil {
		obs.ObserveRequest(method, status, d)
	}
}

func durationMS(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}

func fullURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	}
	return u.String()
}

// headerSnapshot lower-cases names and joins repeated values with ", ".
func headerSnapshot(r *http.Request) map[string]string {
	headers := make(map[string]string, len(r.Header)+1)
	for k, v := range r.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	if _, ok := headers["host"]; !ok && r.Host != "" {
		headers["host"] = r.Host
	}
	return headers
}

// querySnapshot keeps the last value of repeated keys.
func querySnapshot(u *url.URL) map[string]string {
	values := u.Query()
	args := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			args[k] = v[len(v)-1]
		}
	}
	return args
}

// remoteHost returns the peer host, or nil when the peer is unknown.
func remoteHost(r *http.Request) any {
	if r.RemoteAddr == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder remembers the response status and sets the request id header
// right before the status line goes out.
type statusRecorder struct {
	http.ResponseWriter
	requestID   string
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	// informational responses may precede the final one
	if !w.wroteHeader && (code >= http.StatusOK || code == http.StatusSwitchingProtocols) {
		w.wroteHeader = true
		w.status = code
		w.Header().Set(HeaderRequestID, w.requestID)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

// ensureHeader covers handlers that returned without writing anything.
func (w *statusRecorder) ensureHeader() {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = http.StatusOK
	w.Header().Set(HeaderRequestID, w.requestID)
}

func (w *statusRecorder) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

//nolint:err113 // it use dynamic error
func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := w.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
