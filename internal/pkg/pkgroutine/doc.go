// Package pkgroutine contains helpers for running goroutines safely.
//
// The Manager type limits concurrency, hands the caller's context to every
// task, collects returned errors, and turns panics into logged errors so that
// background work does not crash the process silently.
package pkgroutine
