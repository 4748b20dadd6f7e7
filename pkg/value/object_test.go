package value

import "testing"

func TestMapPreservesInsertionPositionOnUpdate(t *testing.T) {
	m := NewMap()
	m.MapSet(StrKey("a"), Int(1))
	m.MapSet(StrKey("b"), Int(2))
	m.MapSet(StrKey("c"), Int(3))

	// Updating "a" must not move it to the end.
	m.MapSet(StrKey("a"), Int(100))

	want := []string{"a", "b", "c"}
	if m.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", m.Len(), len(want))
	}
	for i, k := range want {
		if got := m.MapKeyAt(i).Str(); got != k {
			t.Errorf("MapKeyAt(%d) = %q, want %q", i, got, k)
		}
	}
	v, ok := m.MapGet(StrKey("a"))
	if !ok || v.AsInt() != 100 {
		t.Errorf("MapGet(a) = (%v, %v), want (100, true)", v, ok)
	}
}

func TestMapDeleteShiftsPositions(t *testing.T) {
	m := NewMap()
	m.MapSet(IntKey(1), StrS("one"))
	m.MapSet(IntKey(2), StrS("two"))
	m.MapSet(IntKey(3), StrS("three"))

	m.MapDelete(IntKey(2))

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if m.MapKeyAt(0).Int() != 1 || m.MapKeyAt(1).Int() != 3 {
		t.Errorf("order after delete = [%d, %d], want [1, 3]", m.MapKeyAt(0).Int(), m.MapKeyAt(1).Int())
	}
}

func TestListIterator(t *testing.T) {
	list := NewList([]Value{Int(1), Int(2), Int(3)})
	it := NewListIterator(list)

	var got []int64
	for {
		v, ok := it.ListIteratorNext()
		if !ok {
			break
		}
		got = append(got, v.AsInt())
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("iteration = %v, want [1 2 3]", got)
	}
}

func TestMapIteratorProducesLiveEntries(t *testing.T) {
	m := NewMap()
	m.MapSet(StrKey("x"), Int(10))
	it := NewMapIterator(m)

	entry, ok := it.MapIteratorNext()
	if !ok {
		t.Fatal("expected one entry")
	}
	v, ok := entry.EntryValue()
	if !ok || v.AsInt() != 10 {
		t.Errorf("EntryValue() = (%v, %v), want (10, true)", v, ok)
	}

	// Mutating the underlying map through a later MapSet is visible via the
	// entry's live lookup.
	m.MapSet(StrKey("x"), Int(99))
	v, ok = entry.EntryValue()
	if !ok || v.AsInt() != 99 {
		t.Errorf("after mutation EntryValue() = (%v, %v), want (99, true)", v, ok)
	}

	if _, ok := it.MapIteratorNext(); ok {
		t.Error("expected iterator exhausted")
	}
}

func TestRefcountOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on refcount overflow")
		}
	}()
	o := NewBuffer(nil)
	o.refs = maxRefs
	o.Retain()
}
