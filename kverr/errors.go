// Package kverr defines the error kinds of the kv protocol and their
// mapping conventions. Per-request kinds (NotFound, InvalidCommand,
// ConvertError, StorageError) are encoded into a CommandResponse and sent
// back on the same stream; FrameError is fatal to the logical stream;
// certificate and handshake failures are fatal to the connection.
package kverr

import "fmt"

// NotFoundError reports a missing key (or, on the pub/sub path, a missing
// subscription within a topic). Maps to status 404.
type NotFoundError struct {
	Table string
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Not found for table: %s, key: %s", e.Table, e.Key)
}

// InvalidCommandError reports a request that cannot be dispatched.
// Maps to status 400.
type InvalidCommandError struct {
	Reason string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("Cannot parse command: `%s`", e.Reason)
}

// ConvertError reports a value whose variant does not match the requested
// kind. Maps to status 500.
type ConvertError struct {
	Value  string
	Target string
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("Cannot convert value %s to %s", e.Value, e.Target)
}

// StorageError reports a backend failure for one storage operation.
// Maps to status 500.
type StorageError struct {
	Op     string
	Table  string
	Key    string
	Detail string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("Cannot process command %s with table: %s, key: %s. Error: %s", e.Op, e.Table, e.Key, e.Detail)
}

// FrameError reports a malformed or oversized frame. Fatal to the
// logical stream that produced it.
type FrameError struct {
	Detail string
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("Frame error: %s", e.Detail)
}

// CertificateParseError reports unusable PEM material. Fatal to the
// connection attempt.
type CertificateParseError struct {
	Role string // "server", "client", "private"
	Kind string // "cert", "key", "ca"
}

func (e *CertificateParseError) Error() string {
	return fmt.Sprintf("Failed to parse certificate: %s-%s", e.Role, e.Kind)
}

// InternalError is the catch-all for invariant violations. Maps to
// status 500.
type InternalError struct {
	Detail string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("Internal error: %s", e.Detail)
}
