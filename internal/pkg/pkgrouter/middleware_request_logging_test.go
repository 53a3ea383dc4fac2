package pkgrouter

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shandysiswandi/goservice/internal/pkg/pkgctx"
	"github.com/shandysiswandi/goservice/internal/pkg/pkguid"
)

func logOwner(r *http.Request) {
	slog.InfoContext(r.Context(), "handling", "owner", pkgctx.QueryArgs(r.Context())["owner"])
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequestLoggingGeneratesRequestID(t *testing.T) {
	buf := captureLogs(t)
	gen := pkguid.NewPrefixed(pkgctx.RequestIDPrefix, pkguid.NewUUID())
	h := middlewareRequestLogging(gen, nil)(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/items", nil))

	got := rec.Header().Get(HeaderRequestID)
	if !strings.HasPrefix(got, "req-") {
		t.Fatalf("expected req- prefix, got %q", got)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(got, "req-")); err != nil {
		t.Fatalf("expected uuid suffix, got %q: %v", got, err)
	}

	entries := buf.entries(t)
	if len(entries) != 2 {
		t.Fatalf("expected started and completed lines, got %d", len(entries))
	}
	for _, e := range entries {
		if e["request_id"] != got {
			t.Fatalf("expected request_id %q, got %v", got, e["request_id"])
		}
	}
}

func TestRequestLoggingNilGeneratorFallsBack(t *testing.T) {
	captureLogs(t)
	h := middlewareRequestLogging(nil, nil)(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/items", nil))

	if got := rec.Header().Get(HeaderRequestID); !strings.HasPrefix(got, "req-") {
		t.Fatalf("expected generated id, got %q", got)
	}
}

func TestRequestLoggingUsesInboundRequestID(t *testing.T) {
	buf := captureLogs(t)
	gen := &staticGenerator{value: "generated"}

	var inHandler string
	h := middlewareRequestLogging(gen, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inHandler = pkgctx.RequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "http://example.com/items", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Fatalf("expected abc-123, got %q", got)
	}
	if inHandler != "abc-123" {
		t.Fatalf("expected handler to see abc-123, got %q", inHandler)
	}
	if gen.calls != 0 {
		t.Fatalf("expected generator not called")
	}

	entries := buf.entries(t)
	if len(entries) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(entries))
	}
	started, completed := entries[0], entries[1]
	if started["message"] != "Request started: POST /items" {
		t.Fatalf("unexpected started message %v", started["message"])
	}
	if started["remote_addr"] != "192.0.2.1" || started["path"] != "/items" || started["method"] != "POST" {
		t.Fatalf("unexpected started fields %v", started)
	}
	if ua, ok := started["user_agent"]; !ok || ua != "" {
		t.Fatalf("expected empty user_agent, got %v (present=%v)", ua, ok)
	}
	msg, _ := completed["message"].(string)
	if !strings.HasPrefix(msg, "Request completed: POST /items - 201 (") || !strings.HasSuffix(msg, "ms)") {
		t.Fatalf("unexpected completed message %q", msg)
	}
	if completed["status_code"] != float64(http.StatusCreated) {
		t.Fatalf("unexpected status_code %v", completed["status_code"])
	}
	if d, _ := completed["duration_ms"].(string); !strings.HasSuffix(d, "ms") {
		t.Fatalf("unexpected duration_ms %v", completed["duration_ms"])
	}
}

func TestRequestLoggingRemoteAddr(t *testing.T) {
	cases := map[string]any{
		"":               nil,
		"10.1.2.3:55000": "10.1.2.3",
		"[::1]:8080":     "::1",
		"@":              "@",
	}
	for remote, want := range cases {
		buf := captureLogs(t)
		h := middlewareRequestLogging(nil, nil)(http.HandlerFunc(okHandler))

		req := httptest.NewRequest(http.MethodGet, "http://example.com/items", nil)
		req.RemoteAddr = remote
		h.ServeHTTP(httptest.NewRecorder(), req)

		started := buf.entries(t)[0]
		got, ok := started["remote_addr"]
		if !ok || got != want {
			t.Fatalf("RemoteAddr %q: expected remote_addr %v, got %v (present=%v)", remote, want, got, ok)
		}
	}
}

func TestRequestLoggingPopulatesContext(t *testing.T) {
	captureLogs(t)

	var rc pkgctx.RequestContext
	var found bool
	h := middlewareRequestLogging(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, found = pkgctx.From(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/search?q=a&q=b&page=2", nil)
	req.Header.Add("X-Tag", "one")
	req.Header.Add("X-Tag", "two")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !found {
		t.Fatalf("expected request context")
	}
	if rc.Method != http.MethodGet {
		t.Fatalf("unexpected method %q", rc.Method)
	}
	if rc.URL != "http://example.com/search?q=a&q=b&page=2" {
		t.Fatalf("unexpected url %q", rc.URL)
	}
	if rc.Headers["x-tag"] != "one, two" || rc.Headers["host"] != "example.com" {
		t.Fatalf("unexpected headers %v", rc.Headers)
	}
	if rc.QueryArgs["q"] != "b" || rc.QueryArgs["page"] != "2" {
		t.Fatalf("unexpected query args %v", rc.QueryArgs)
	}
}

func TestRequestLoggingHealthCheckIsQuiet(t *testing.T) {
	buf := captureLogs(t)

	var requestID string
	h := middlewareRequestLogging(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = pkgctx.RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	for path := range healthCheckPaths {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com"+path, nil))

		if requestID == "" || requestID == pkgctx.None {
			t.Fatalf("expected context populated on %s", path)
		}
		if got := rec.Header().Get(HeaderRequestID); got != requestID {
			t.Fatalf("expected header %q on %s, got %q", requestID, path, got)
		}
	}

	if entries := buf.entries(t); len(entries) != 0 {
		t.Fatalf("expected no log lines, got %v", entries)
	}
}

func TestRequestLoggingHealthCheckIsExact(t *testing.T) {
	buf := captureLogs(t)
	h := middlewareRequestLogging(nil, nil)(http.HandlerFunc(okHandler))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example.com/Health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example.com/health/", nil))

	if entries := buf.entries(t); len(entries) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(entries))
	}
}

func TestRequestLoggingPanicIsLoggedAndPropagated(t *testing.T) {
	buf := captureLogs(t)
	obs := &recordingObserver{}

	h := middlewareRequestLogging(nil, obs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/boom", nil))
	}()

	if recovered != "boom" {
		t.Fatalf("expected original panic value, got %v", recovered)
	}
	if got := rec.Header().Get(HeaderRequestID); got != "" {
		t.Fatalf("expected no request id header, got %q", got)
	}

	entries := buf.entries(t)
	if len(entries) != 2 {
		t.Fatalf("expected started and error lines, got %d", len(entries))
	}
	e := entries[1]
	if e["level"] != "ERROR" {
		t.Fatalf("expected ERROR, got %v", e["level"])
	}
	msg, _ := e["message"].(string)
	if !strings.HasPrefix(msg, "Request error: GET /boom - Exception: boom (") {
		t.Fatalf("unexpected message %q", msg)
	}
	if e["exception_type"] != "*pkgerror.PanicError" || e["exception_message"] != "boom" {
		t.Fatalf("unexpected exception fields %v", e)
	}
	stack, _ := e["exception_stack"].(string)
	if frames := strings.Count(stack, "\n\t"); frames == 0 || frames > 3 {
		t.Fatalf("expected 1..3 frames, got %d:\n%s", frames, stack)
	}
	lines := strings.Split(stack, "\n")
	if len(lines) < 2 || !strings.Contains(lines[len(lines)-2], "TestRequestLoggingPanicIsLoggedAndPropagated") {
		t.Fatalf("expected stack to end at the panicking function:\n%s", stack)
	}
	if e["request_id"] != entries[0]["request_id"] {
		t.Fatalf("expected same request id on both lines")
	}

	if got := obs.all(); len(got) != 1 || got[0].status != http.StatusInternalServerError {
		t.Fatalf("unexpected observations %v", got)
	}
}

func TestRequestLoggingPanicOnHealthCheckIsLogged(t *testing.T) {
	buf := captureLogs(t)
	h := middlewareRequestLogging(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(fmt.Errorf("db down"))
	}))

	func() {
		defer func() { _ = recover() }()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example.com/readiness", nil))
	}()

	entries := buf.entries(t)
	if len(entries) != 1 {
		t.Fatalf("expected only the error line, got %d", len(entries))
	}
	if entries[0]["exception_type"] != "*errors.errorString" || entries[0]["exception_message"] != "db down" {
		t.Fatalf("unexpected exception fields %v", entries[0])
	}
}

func TestRequestLoggingHandlerWithoutWrite(t *testing.T) {
	captureLogs(t)
	obs := &recordingObserver{}
	h := middlewareRequestLogging(&staticGenerator{value: "fixed"}, obs)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "http://example.com/items/1", nil))

	if got := rec.Header().Get(HeaderRequestID); got != "fixed" {
		t.Fatalf("expected fixed, got %q", got)
	}
	if got := obs.all(); len(got) != 1 || got[0] != (observation{method: http.MethodDelete, status: http.StatusOK}) {
		t.Fatalf("unexpected observations %v", got)
	}
}

func TestRequestLoggingConcurrentRequestsStayIsolated(t *testing.T) {
	buf := captureLogs(t)
	h := middlewareRequestLogging(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logOwner(r)
		w.WriteHeader(http.StatusOK)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("http://example.com/work?owner=id-%d", i), nil)
			req.Header.Set(HeaderRequestID, fmt.Sprintf("id-%d", i))
			h.ServeHTTP(httptest.NewRecorder(), req)
		}(i)
	}
	wg.Wait()

	entries := buf.entries(t)
	if len(entries) != 40*3 {
		t.Fatalf("expected %d lines, got %d", 40*3, len(entries))
	}
	for _, e := range entries {
		if owner, ok := e["owner"]; ok && owner != e["request_id"] {
			t.Fatalf("request %v logged with id %v", owner, e["request_id"])
		}
	}
}
