// Package analytics derives rating aggregates from fetched rating and movie rows.
//
// Every function is a pure computation over its arguments: nothing is cached, no I/O is
// performed and malformed rows are skipped rather than reported. Calling a builder twice
// with the same input yields identical output.
package analytics
