package pkgctx

import (
	"context"
	"maps"

	"github.com/shandysiswandi/goservice/internal/pkg/pkguid"
)

const (
	// None is returned for string fields that were never set.
	None = "None"
	// RequestIDPrefix starts every generated request id.
	RequestIDPrefix = "req-"
)

// RequestContext is the metadata captured for one in-flight request.
type RequestContext struct {
	RequestID string
	Method    string
	URL       string
	Headers   map[string]string
	QueryArgs map[string]string
}

type requestContextKey struct{}

//nolint:gochecknoglobals // stateless generator
var requestIDs pkguid.StringID = pkguid.NewPrefixed(RequestIDPrefix, pkguid.NewUUID())

// GenerateID returns a new unique request id such as "req-0b6f...".
func GenerateID() string {
	return requestIDs.Generate()
}

// With returns a copy of ctx carrying rc.
func With(ctx context.Context, rc RequestContext) context.Context {
	rc.Headers = maps.Clone(rc.Headers)
	rc.QueryArgs = maps.Clone(rc.QueryArgs)
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// From returns the RequestContext stored in ctx, if any.
func From(ctx context.Context) (RequestContext, bool) {
	if ctx == nil {
		return RequestContext{}, false
	}
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}

// RequestID returns the request id stored in ctx or None.
func RequestID(ctx context.Context) string {
	rc, _ := From(ctx)
	return orNone(rc.RequestID)
}

// Method returns the HTTP method stored in ctx or None.
func Method(ctx context.Context) string {
	rc, _ := From(ctx)
	return orNone(rc.Method)
}

// URL returns the full request URL stored in ctx or None.
func URL(ctx context.Context) string {
	rc, _ := From(ctx)
	return orNone(rc.URL)
}

// Headers returns a copy of the inbound header snapshot, never nil.
func Headers(ctx context.Context) map[string]string {
	rc, _ := From(ctx)
	return cloneOrEmpty(rc.Headers)
}

// QueryArgs returns a copy of the query parameter snapshot, never nil.
func QueryArgs(ctx context.Context) map[string]string {
	rc, _ := From(ctx)
	return cloneOrEmpty(rc.QueryArgs)
}

func orNone(v string) string {
	if v == "" {
		return None
	}
	return v
}

func cloneOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}
