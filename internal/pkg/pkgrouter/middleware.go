package pkgrouter

import (
	"net/http"
	"time"
)

// Middleware wraps an http.Handler, typically to add cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// Generator generates a unique string (used for request IDs).
type Generator interface {
	Generate() string
}

// Observer receives the outcome of every request that passed the request
// logging middleware. Failed requests are reported with status 500.
type Observer interface {
	ObserveRequest(method string, status int, d time.Duration)
}

// Chain applies middleware in order, returning the final wrapped handler.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
