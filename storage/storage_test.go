package storage_test

import (
	"sort"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/caelansar/kv/pb"
	"github.com/caelansar/kv/storage"
)

func testBasicInterface(c *qt.C, store storage.Storage) {
	// insert new kv pair
	prev, err := store.Set("t1", "hello", pb.StringValue("world"))
	c.Assert(err, qt.IsNil)
	c.Assert(prev, qt.IsNil)

	// update existed key
	prev, err = store.Set("t1", "hello", pb.StringValue("world1"))
	c.Assert(err, qt.IsNil)
	c.Assert(prev, qt.DeepEquals, pb.StringValue("world"))

	// get existed key
	v, err := store.Get("t1", "hello")
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, pb.StringValue("world1"))

	// get non-existed key or table
	v, err = store.Get("t1", "hello1")
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.IsNil)
	v, err = store.Get("t2", "hello1")
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.IsNil)

	// contains
	ok, err := store.Contains("t1", "hello")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	ok, err = store.Contains("t1", "hello1")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
	ok, err = store.Contains("t2", "hello")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	// del
	prev, err = store.Del("t1", "hello")
	c.Assert(err, qt.IsNil)
	c.Assert(prev, qt.DeepEquals, pb.StringValue("world1"))

	// del absent
	prev, err = store.Del("t1", "hello1")
	c.Assert(err, qt.IsNil)
	c.Assert(prev, qt.IsNil)
	prev, err = store.Del("t2", "hello")
	c.Assert(err, qt.IsNil)
	c.Assert(prev, qt.IsNil)
}

func sortPairs(pairs []*pb.Kvpair) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
}

func testGetAll(c *qt.C, store storage.Storage) {
	_, err := store.Set("t2", "k1", pb.StringValue("v1"))
	c.Assert(err, qt.IsNil)
	_, err = store.Set("t2", "k2", pb.StringValue("v2"))
	c.Assert(err, qt.IsNil)

	pairs, err := store.GetAll("t2")
	c.Assert(err, qt.IsNil)
	sortPairs(pairs)
	c.Assert(pairs, qt.DeepEquals, []*pb.Kvpair{
		{Key: "k1", Value: pb.StringValue("v1")},
		{Key: "k2", Value: pb.StringValue("v2")},
	})
}

func testGetIter(c *qt.C, store storage.Storage) {
	_, err := store.Set("t3", "k1", pb.StringValue("v1"))
	c.Assert(err, qt.IsNil)
	_, err = store.Set("t3", "k2", pb.StringValue("v2"))
	c.Assert(err, qt.IsNil)

	it, err := store.GetIter("t3")
	c.Assert(err, qt.IsNil)
	var pairs []*pb.Kvpair
	for p := range it {
		pairs = append(pairs, p)
	}
	sortPairs(pairs)
	c.Assert(pairs, qt.DeepEquals, []*pb.Kvpair{
		{Key: "k1", Value: pb.StringValue("v1")},
		{Key: "k2", Value: pb.StringValue("v2")},
	})

	// early break must not deadlock or panic
	it, err = store.GetIter("t3")
	c.Assert(err, qt.IsNil)
	for range it {
		break
	}
}

func backends(t *testing.T) map[string]storage.Storage {
	return map[string]storage.Storage{
		"memtable": storage.NewMemTable(),
		"disk":     storage.NewDiskStore(t.TempDir()),
	}
}

func TestBasicInterface(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			testBasicInterface(qt.New(t), store)
		})
	}
}

func TestGetAll(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			testGetAll(qt.New(t), store)
		})
	}
}

func TestGetIter(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			testGetIter(qt.New(t), store)
		})
	}
}

func TestDiskStoreValueKinds(t *testing.T) {
	c := qt.New(t)
	store := storage.NewDiskStore(t.TempDir())

	values := []*pb.Value{
		pb.StringValue("v"),
		pb.IntValue(-7),
		pb.BoolValue(true),
		pb.FloatValue(10.1),
		pb.BytesValue([]byte{1, 2, 3}),
	}
	for i, v := range values {
		key := string(rune('a' + i))
		_, err := store.Set("kinds", key, v)
		c.Assert(err, qt.IsNil)
		got, err := store.Get("kinds", key)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.DeepEquals, v)
	}

	// null round-trips through the disk encoding as well
	_, err := store.Set("kinds", "null", pb.NullValue())
	c.Assert(err, qt.IsNil)
	got, err := store.Get("kinds", "null")
	c.Assert(err, qt.IsNil)
	c.Assert(got.IsNull(), qt.IsTrue)
}
