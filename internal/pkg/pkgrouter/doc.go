// Package pkgrouter wraps HTTP routing and the middleware every request
// passes through.
//
// The router assigns each request an id (taken from X-Request-Id or
// generated), stores it with the request metadata in the request context, logs
// request start, completion and failure, and echoes the id back in the
// X-Request-Id response header. Health-check paths skip the start and
// completion lines.
package pkgrouter
