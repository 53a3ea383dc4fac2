// Package pkgctx stores per-request metadata in a context.Context.
//
// The request logging middleware writes a RequestContext once, at the start of
// a request, and everything running on behalf of that request (handlers, log
// calls, goroutines started with the same context) reads it back. Contexts are
// immutable, so concurrent requests never observe each other's values and
// nothing has to be cleared when a request finishes.
//
// Reads never fail: unset string fields return None and unset maps are empty.
package pkgctx
