package storage

import (
	"iter"
	"strings"

	"github.com/peterbourgon/diskv"

	"github.com/caelansar/kv/kverr"
	"github.com/caelansar/kv/pb"
)

// DiskStore is the embedded disk backend. The keyspace is flat with
// "table:key" names, one directory per table, and values are persisted as
// standalone protobuf-encoded Value messages.
type DiskStore struct {
	db *diskv.Diskv
}

const diskCacheSize = 8 << 20

// NewDiskStore opens (or creates) a disk store rooted at path.
func NewDiskStore(path string) *DiskStore {
	db := diskv.New(diskv.Options{
		BasePath: path,
		Transform: func(key string) []string {
			if i := strings.IndexByte(key, ':'); i >= 0 {
				return []string{key[:i]}
			}
			return nil
		},
		CacheSizeMax: diskCacheSize,
	})
	return &DiskStore{db: db}
}

func fullKey(table, key string) string {
	return table + ":" + key
}

func tablePrefix(table string) string {
	return table + ":"
}

func storageErr(op, table, key string, err error) error {
	return &kverr.StorageError{Op: op, Table: table, Key: key, Detail: err.Error()}
}

func (d *DiskStore) read(op, table, key string) (*pb.Value, error) {
	name := fullKey(table, key)
	if !d.db.Has(name) {
		return nil, nil
	}
	data, err := d.db.Read(name)
	if err != nil {
		return nil, storageErr(op, table, key, err)
	}
	v, err := pb.DecodeValue(data)
	if err != nil {
		return nil, storageErr(op, table, key, err)
	}
	return v, nil
}

func (d *DiskStore) Get(table, key string) (*pb.Value, error) {
	return d.read("get", table, key)
}

func (d *DiskStore) Set(table, key string, value *pb.Value) (*pb.Value, error) {
	prev, err := d.read("set", table, key)
	if err != nil {
		return nil, err
	}
	data, err := pb.EncodeValue(value)
	if err != nil {
		return nil, storageErr("set", table, key, err)
	}
	if err := d.db.Write(fullKey(table, key), data); err != nil {
		return nil, storageErr("set", table, key, err)
	}
	return prev, nil
}

func (d *DiskStore) Contains(table, key string) (bool, error) {
	return d.db.Has(fullKey(table, key)), nil
}

func (d *DiskStore) Del(table, key string) (*pb.Value, error) {
	prev, err := d.read("del", table, key)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, nil
	}
	if err := d.db.Erase(fullKey(table, key)); err != nil {
		return nil, storageErr("del", table, key, err)
	}
	return prev, nil
}

func (d *DiskStore) GetAll(table string) ([]*pb.Kvpair, error) {
	var pairs []*pb.Kvpair
	it, err := d.GetIter(table)
	if err != nil {
		return nil, err
	}
	for p := range it {
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func (d *DiskStore) GetIter(table string) (iter.Seq[*pb.Kvpair], error) {
	prefix := tablePrefix(table)
	return func(yield func(*pb.Kvpair) bool) {
		cancel := make(chan struct{})
		defer close(cancel)
		for name := range d.db.KeysPrefix(prefix, cancel) {
			data, err := d.db.Read(name)
			if err != nil {
				continue
			}
			v, err := pb.DecodeValue(data)
			if err != nil {
				continue
			}
			if !yield(&pb.Kvpair{Key: strings.TrimPrefix(name, prefix), Value: v}) {
				return
			}
		}
	}, nil
}
