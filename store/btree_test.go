package store

import (
	"bytes"
	"testing"
)

func TestCacheWrapShadowsWrites(t *testing.T) {
	db := MemStore()
	if err := db.Set([]byte("a"), []byte("base")); err != nil {
		t.Fatalf("set: %+v", err)
	}

	cache := db.CacheWrap()
	if err := cache.Set([]byte("a"), []byte("shadow")); err != nil {
		t.Fatalf("set: %+v", err)
	}
	if err := cache.Set([]byte("b"), []byte("new")); err != nil {
		t.Fatalf("set: %+v", err)
	}

	// The cache sees its own writes, the parent does not yet.
	raw, err := cache.Get([]byte("a"))
	if err != nil || !bytes.Equal(raw, []byte("shadow")) {
		t.Fatalf("cache read: %q, %+v", raw, err)
	}
	raw, err = db.Get([]byte("a"))
	if err != nil || !bytes.Equal(raw, []byte("base")) {
		t.Fatalf("parent read: %q, %+v", raw, err)
	}
	if ok, _ := db.Has([]byte("b")); ok {
		t.Fatal("parent must not see uncommitted writes")
	}

	if err := cache.Write(); err != nil {
		t.Fatalf("write: %+v", err)
	}
	raw, err = db.Get([]byte("a"))
	if err != nil || !bytes.Equal(raw, []byte("shadow")) {
		t.Fatalf("flushed read: %q, %+v", raw, err)
	}
	if ok, _ := db.Has([]byte("b")); !ok {
		t.Fatal("flush lost a key")
	}
}

func TestCacheWrapDiscard(t *testing.T) {
	db := MemStore()
	if err := db.Set([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("set: %+v", err)
	}

	cache := db.CacheWrap()
	if err := cache.Set([]byte("b"), []byte("2")); err != nil {
		t.Fatalf("set: %+v", err)
	}
	if err := cache.Delete([]byte("a")); err != nil {
		t.Fatalf("delete: %+v", err)
	}
	cache.Discard()

	if ok, _ := db.Has([]byte("a")); !ok {
		t.Fatal("discard must not delete parent data")
	}
	if ok, _ := db.Has([]byte("b")); ok {
		t.Fatal("discard leaked a write")
	}
}

func TestCacheWrapDeleteShadowsParent(t *testing.T) {
	db := MemStore()
	if err := db.Set([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("set: %+v", err)
	}

	cache := db.CacheWrap()
	if err := cache.Delete([]byte("a")); err != nil {
		t.Fatalf("delete: %+v", err)
	}
	if ok, _ := cache.Has([]byte("a")); ok {
		t.Fatal("cache must see the delete")
	}
	raw, err := cache.Get([]byte("a"))
	if err != nil || raw != nil {
		t.Fatalf("deleted key read: %q, %+v", raw, err)
	}
	if ok, _ := db.Has([]byte("a")); !ok {
		t.Fatal("parent must still hold the key")
	}
}

func TestIteratorMergesShadowAndParent(t *testing.T) {
	db := MemStore()
	for _, k := range []string{"a", "c", "e"} {
		if err := db.Set([]byte(k), []byte("parent")); err != nil {
			t.Fatalf("set: %+v", err)
		}
	}

	cache := db.CacheWrap()
	// Shadow a new key, overwrite one and delete another.
	if err := cache.Set([]byte("b"), []byte("shadow")); err != nil {
		t.Fatalf("set: %+v", err)
	}
	if err := cache.Set([]byte("c"), []byte("shadow")); err != nil {
		t.Fatalf("set: %+v", err)
	}
	if err := cache.Delete([]byte("e")); err != nil {
		t.Fatalf("delete: %+v", err)
	}

	it, err := cache.Iterator(nil, nil)
	if err != nil {
		t.Fatalf("iterator: %+v", err)
	}
	defer it.Close()

	want := []struct{ key, value string }{
		{"a", "parent"},
		{"b", "shadow"},
		{"c", "shadow"},
	}
	for _, w := range want {
		if !it.Valid() {
			t.Fatalf("iterator ended before %q", w.key)
		}
		if string(it.Key()) != w.key || string(it.Value()) != w.value {
			t.Fatalf("got %q=%q, want %q=%q", it.Key(), it.Value(), w.key, w.value)
		}
		if err := it.Next(); err != nil {
			t.Fatalf("next: %+v", err)
		}
	}
	if it.Valid() {
		t.Fatalf("unexpected trailing key %q", it.Key())
	}
}

func TestReverseIterator(t *testing.T) {
	db := MemStore()
	for _, k := range []string{"a", "b", "c"} {
		if err := db.Set([]byte(k), []byte{1}); err != nil {
			t.Fatalf("set: %+v", err)
		}
	}

	it, err := db.ReverseIterator(nil, nil)
	if err != nil {
		t.Fatalf("iterator: %+v", err)
	}
	defer it.Close()

	var got []string
	for it.Valid() {
		got = append(got, string(it.Key()))
		if err := it.Next(); err != nil {
			t.Fatalf("next: %+v", err)
		}
	}
	want := []string{"c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestIteratorRange(t *testing.T) {
	db := MemStore()
	for _, k := range []string{"a", "b", "c", "d"} {
		if err := db.Set([]byte(k), []byte{1}); err != nil {
			t.Fatalf("set: %+v", err)
		}
	}

	// End is exclusive.
	it, err := db.Iterator([]byte("b"), []byte("d"))
	if err != nil {
		t.Fatalf("iterator: %+v", err)
	}
	defer it.Close()

	var got []string
	for it.Valid() {
		got = append(got, string(it.Key()))
		if err := it.Next(); err != nil {
			t.Fatalf("next: %+v", err)
		}
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("got %v", got)
	}
}
