package main

import "fmt"

// ConfigError reports a malformed filter, projection, or job definition.
// It is always raised before any database mutation.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ConnectionError reports an unreachable or unauthenticated database.
// Fatal for the job it belongs to.
type ConnectionError struct {
	Role string // "source" or "target"
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Role, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SchemaError reports a DDL failure on the target schema or a table.
// Fatal for the job; already-applied DDL is not rolled back.
type SchemaError struct {
	Op  string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// NotFoundError reports a table that does not exist in the source schema.
type NotFoundError struct {
	Schema string
	Table  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("table %s.%s does not exist", e.Schema, e.Table)
}

// TransferError reports a failed bulk copy. Rows holds the count the
// COPY had acknowledged before the failure; whether those rows persist
// depends on the transaction the caller wrapped the transfer in.
type TransferError struct {
	Table string
	Rows  int64
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s: %v (after %d rows)", e.Table, e.Err, e.Rows)
}

func (e *TransferError) Unwrap() error { return e.Err }
