package storage

import (
	"iter"
	"sync"

	"github.com/caelansar/kv/pb"
)

// MemTable is the in-memory backend: a table map of mutex-guarded key
// maps. Tables are created on first write and never removed.
type MemTable struct {
	tables sync.Map // table name -> *memTable
}

type memTable struct {
	mu sync.RWMutex
	kv map[string]*pb.Value
}

// NewMemTable returns an empty in-memory store.
func NewMemTable() *MemTable {
	return &MemTable{}
}

func (m *MemTable) table(name string, create bool) *memTable {
	if t, ok := m.tables.Load(name); ok {
		return t.(*memTable)
	}
	if !create {
		return nil
	}
	t, _ := m.tables.LoadOrStore(name, &memTable{kv: make(map[string]*pb.Value)})
	return t.(*memTable)
}

func (m *MemTable) Get(table, key string) (*pb.Value, error) {
	t := m.table(table, false)
	if t == nil {
		return nil, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.kv[key], nil
}

func (m *MemTable) Set(table, key string, value *pb.Value) (*pb.Value, error) {
	if value == nil {
		value = pb.NullValue()
	}
	t := m.table(table, true)
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.kv[key]
	t.kv[key] = value
	return prev, nil
}

func (m *MemTable) Contains(table, key string) (bool, error) {
	t := m.table(table, false)
	if t == nil {
		return false, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.kv[key]
	return ok, nil
}

func (m *MemTable) Del(table, key string) (*pb.Value, error) {
	t := m.table(table, false)
	if t == nil {
		return nil, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.kv[key]
	if !ok {
		return nil, nil
	}
	delete(t.kv, key)
	return prev, nil
}

func (m *MemTable) GetAll(table string) ([]*pb.Kvpair, error) {
	t := m.table(table, false)
	if t == nil {
		return nil, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	pairs := make([]*pb.Kvpair, 0, len(t.kv))
	for k, v := range t.kv {
		pairs = append(pairs, &pb.Kvpair{Key: k, Value: v})
	}
	return pairs, nil
}

// GetIter snapshots the table under the read lock and iterates the
// snapshot, so the iterator never observes concurrent writes.
func (m *MemTable) GetIter(table string) (iter.Seq[*pb.Kvpair], error) {
	pairs, err := m.GetAll(table)
	if err != nil {
		return nil, err
	}
	return func(yield func(*pb.Kvpair) bool) {
		for _, p := range pairs {
			if !yield(p) {
				return
			}
		}
	}, nil
}
