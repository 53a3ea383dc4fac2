// Package pkguid provides helpers for generating unique identifiers.
//
// The codebase uses the StringID interface to avoid hard-coding a specific UID
// strategy. UUID produces random UUIDs and Prefixed tags the output of another
// generator, for example the "req-" correlation ids.
package pkguid
