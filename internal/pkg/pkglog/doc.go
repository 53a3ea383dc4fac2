// Package pkglog contains logging helpers used across the application.
//
// It is built around slog and keeps logs consistent by:
//   - Writing exactly one JSON line per record with stable keys (timestamp,
//     level, proc, thrd, request_id, function, message).
//   - Attaching the request id of the record's context, or "None".
//   - Rendering an "error" attribute as exception_type, exception_message and
//     a short exception_stack.
//   - Allowing InitLogging to be called again without duplicating output.
package pkglog
