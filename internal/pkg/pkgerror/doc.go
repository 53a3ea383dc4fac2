// Package pkgerror defines shared error types used across the application.
//
// It helps keep error handling consistent by:
//   - Providing a structured Error type that carries a client message, a code
//     and an optional cause; the router maps the code to an HTTP status.
//   - Attaching stacks to errors (WithStack, NewPanic) and trimming them to the
//     few frames that end up in a log line (StackFrames).
package pkgerror
