// Package storage defines the storage port the dispatcher executes
// one-shot commands against, plus the in-memory and disk-backed
// implementations.
package storage

import (
	"iter"

	"github.com/caelansar/kv/pb"
)

// Storage is the port consumed by the dispatcher. All operations are
// synchronous. Absent values are returned as nil, not errors; errors are
// reserved for backend failures.
type Storage interface {
	// Get returns the value for key in table, or nil if absent.
	Get(table, key string) (*pb.Value, error)
	// Set stores value for key in table and returns the previous value,
	// or nil if the key was absent.
	Set(table, key string, value *pb.Value) (*pb.Value, error)
	// Contains reports whether key exists in table.
	Contains(table, key string) (bool, error)
	// Del removes key from table and returns the previous value, or nil
	// if the key was absent.
	Del(table, key string) (*pb.Value, error)
	// GetAll returns every kv pair in table.
	GetAll(table string) ([]*pb.Kvpair, error)
	// GetIter returns a lazy iterator over the kv pairs in table.
	GetIter(table string) (iter.Seq[*pb.Kvpair], error)
}
