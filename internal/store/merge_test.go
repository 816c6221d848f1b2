package store

import (
	"reflect"
	"testing"
)

type rec struct {
	Key  string
	Name string
}

func key(r rec) string { return r.Key }

func TestMergeLastKeepsLastValuePerKey(t *testing.T) {
	in := []rec{
		{"SKU1", "first name"},
		{"SKU2", "other"},
		{"SKU1", "last name"},
	}
	out := MergeLast(in, key)

	want := []rec{
		{"SKU1", "last name"},
		{"SKU2", "other"},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %+v, want %+v", out, want)
	}
}

func TestMergeLastPreservesFirstSeenOrder(t *testing.T) {
	in := []rec{{"c", "1"}, {"a", "2"}, {"b", "3"}, {"a", "4"}, {"c", "5"}}
	out := MergeLast(in, key)

	order := make([]string, len(out))
	for i, r := range out {
		order[i] = r.Key
	}
	if !reflect.DeepEqual(order, []string{"c", "a", "b"}) {
		t.Errorf("order: got %v", order)
	}
}

func TestMergeLastIsIdempotent(t *testing.T) {
	in := []rec{{"a", "1"}, {"b", "2"}, {"a", "3"}}
	once := MergeLast(in, key)
	twice := MergeLast(once, key)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent: %+v vs %+v", once, twice)
	}
}

func TestMergeLastEmptyInput(t *testing.T) {
	if out := MergeLast([]rec(nil), key); len(out) != 0 {
		t.Errorf("got %+v, want empty", out)
	}
}
