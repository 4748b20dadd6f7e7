package value

import "fmt"

// ObjKind identifies the payload variant carried by a heap Object (spec §3).
type ObjKind byte

const (
	ObjBuffer ObjKind = iota
	ObjMap
	ObjList
	ObjMapEntry
	ObjListIterator
	ObjMapIterator
)

func (k ObjKind) String() string {
	switch k {
	case ObjBuffer:
		return "buffer"
	case ObjMap:
		return "map"
	case ObjList:
		return "list"
	case ObjMapEntry:
		return "map-entry"
	case ObjListIterator:
		return "list-iterator"
	case ObjMapIterator:
		return "map-iterator"
	default:
		return "?unknown-obj?"
	}
}

// maxRefs bounds the reference count; spec §3 requires at least a 16-bit
// counter with overflow detection. An int32 gives ample headroom while
// still being checked explicitly, per spec.
const maxRefs = 1<<31 - 1

// Object is a reference-counted heap cell. Exactly one of the payload
// fields below is meaningful, selected by Kind. Objects are allocated from
// a per-run Arena (see pkg/vm) and never individually freed; refs exists
// for behavioral conformance (overflow checks, well-defined iterator
// lifetimes) rather than manual memory management — see DESIGN.md.
type Object struct {
	Kind ObjKind
	refs int32

	// ObjBuffer
	Buf []byte

	// ObjMap: insertion-ordered. order holds keys in insertion order;
	// buckets is a separate-chaining hash table over Key.Hash(), so
	// re-insertion of an existing key updates its slot's value in place
	// without touching order. count tracks live entries to decide when to
	// grow buckets.
	order   []Key
	buckets []*mapSlot
	count   int

	// ObjList
	List []Value

	// ObjMapEntry: live view into a Map slot, produced only by map
	// iteration.
	EntryMap *Object
	EntryKey Key

	// ObjListIterator
	IterList  *Object
	IterIndex int

	// ObjMapIterator
	IterMap    *Object
	IterCursor int
}

type mapSlot struct {
	key  Key
	pos  int
	val  Value
	next *mapSlot
}

// mapInitialBuckets is the starting bucket count for a new Map; buckets
// double whenever the load factor would exceed 3/4.
const mapInitialBuckets = 8

// Retain increments the reference count, panicking (as an internal
// invariant violation, not a spec-level TypeError) if it would overflow.
func (o *Object) Retain() {
	if o.refs >= maxRefs {
		panic(fmt.Sprintf("embervm: refcount overflow on %s object", o.Kind))
	}
	o.refs++
}

// Release decrements the reference count. Because heap objects live in a
// per-run arena (see pkg/vm.Arena) rather than being individually freed,
// reaching zero here is informational only — it does not deallocate.
func (o *Object) Release() {
	if o.refs > 0 {
		o.refs--
	}
}

// Refs reports the current reference count (test/debug use).
func (o *Object) Refs() int32 { return o.refs }

// NewBuffer constructs a growable byte-vector object with an initial copy
// of b (the caller's slice is not aliased).
func NewBuffer(b []byte) *Object {
	buf := make([]byte, len(b))
	copy(buf, b)
	return &Object{Kind: ObjBuffer, Buf: buf, refs: 1}
}

// NewList constructs a list object from the given elements (copied).
func NewList(elems []Value) *Object {
	list := make([]Value, len(elems))
	copy(list, elems)
	return &Object{Kind: ObjList, List: list, refs: 1}
}

// NewMap constructs an empty ordered map object.
func NewMap() *Object {
	return &Object{Kind: ObjMap, buckets: make([]*mapSlot, mapInitialBuckets), refs: 1}
}

// bucketIndex returns k's home bucket, per spec §3.1's "fast
// non-cryptographic hash" (Key.Hash, backed by xxhash).
func (o *Object) bucketIndex(k Key) int {
	return int(k.Hash() % uint64(len(o.buckets)))
}

// findSlot walks k's bucket chain looking for an exact key match.
func (o *Object) findSlot(k Key) *mapSlot {
	for s := o.buckets[o.bucketIndex(k)]; s != nil; s = s.next {
		if s.key.equal(k) {
			return s
		}
	}
	return nil
}

// growBuckets doubles the bucket count and rehashes every live slot.
func (o *Object) growBuckets() {
	grown := make([]*mapSlot, len(o.buckets)*2)
	for _, head := range o.buckets {
		for s := head; s != nil; {
			next := s.next
			idx := int(s.key.Hash() % uint64(len(grown)))
			s.next = grown[idx]
			grown[idx] = s
			s = next
		}
	}
	o.buckets = grown
}

// Len reports element/entry count for List and Map objects.
func (o *Object) Len() int {
	switch o.Kind {
	case ObjList:
		return len(o.List)
	case ObjMap:
		return len(o.order)
	default:
		return 0
	}
}

// MapGet returns the value for k and whether it was present.
func (o *Object) MapGet(k Key) (Value, bool) {
	slot := o.findSlot(k)
	if slot == nil {
		return Value{}, false
	}
	return slot.val, true
}

// MapSet inserts or updates k. Per spec §3/§8 invariant 4, updating an
// existing key preserves its insertion position; a new key is appended.
func (o *Object) MapSet(k Key, v Value) {
	if slot := o.findSlot(k); slot != nil {
		slot.val = v
		return
	}
	if o.count >= len(o.buckets)*3/4 {
		o.growBuckets()
	}
	idx := o.bucketIndex(k)
	slot := &mapSlot{key: k, pos: len(o.order), val: v, next: o.buckets[idx]}
	o.buckets[idx] = slot
	o.order = append(o.order, k)
	o.count++
}

// MapDelete removes k if present, shifting subsequent insertion positions
// down so order stays contiguous. Any live MapEntry/MapIterator pointed at
// this slot becomes stale; per spec §3 that is explicitly undefined for
// iteration order (but never unsafe, since the container stays reachable).
func (o *Object) MapDelete(k Key) {
	idx := o.bucketIndex(k)
	var prev *mapSlot
	for s := o.buckets[idx]; s != nil; s = s.next {
		if !s.key.equal(k) {
			prev = s
			continue
		}
		if prev == nil {
			o.buckets[idx] = s.next
		} else {
			prev.next = s.next
		}
		o.count--
		o.order = append(o.order[:s.pos], o.order[s.pos+1:]...)
		for i := s.pos; i < len(o.order); i++ {
			o.findSlot(o.order[i]).pos = i
		}
		return
	}
}

// MapKeyAt returns the key at insertion-order index i.
func (o *Object) MapKeyAt(i int) Key { return o.order[i] }

// NewMapEntry produces a live view into map's slot for k. The returned
// object retains a strong reference to map, per spec §3.
func NewMapEntry(m *Object, k Key) *Object {
	m.Retain()
	return &Object{Kind: ObjMapEntry, EntryMap: m, EntryKey: k, refs: 1}
}

// EntryValue reads through to the live map slot for EntryKey; this is what
// makes a MapEntry "invalid" (but never dangling) once the key is removed.
func (o *Object) EntryValue() (Value, bool) { return o.EntryMap.MapGet(o.EntryKey) }

// NewListIterator produces {index:0, list_ref} retaining a strong
// reference to list, per spec §3.
func NewListIterator(list *Object) *Object {
	list.Retain()
	return &Object{Kind: ObjListIterator, IterList: list, IterIndex: 0, refs: 1}
}

// NewMapIterator produces {cursor:0, map_ref} retaining a strong reference
// to m, per spec §3.
func NewMapIterator(m *Object) *Object {
	m.Retain()
	return &Object{Kind: ObjMapIterator, IterMap: m, IterCursor: 0, refs: 1}
}

// ListIteratorNext advances the iterator and returns the next element, or
// ok=false once index reaches the list's current length.
func (o *Object) ListIteratorNext() (Value, bool) {
	if o.IterIndex >= len(o.IterList.List) {
		return Value{}, false
	}
	v := o.IterList.List[o.IterIndex]
	o.IterIndex++
	return v, true
}

// MapIteratorNext advances the iterator and returns the next entry object,
// or ok=false once cursor reaches the map's current entry count.
func (o *Object) MapIteratorNext() (*Object, bool) {
	if o.IterCursor >= len(o.IterMap.order) {
		return nil, false
	}
	k := o.IterMap.order[o.IterCursor]
	o.IterCursor++
	return NewMapEntry(o.IterMap, k), true
}

func (o *Object) write(w *[]byte, escape bool) {
	switch o.Kind {
	case ObjBuffer:
		writeBytes(w, o.Buf, escape)
	case ObjList:
		*w = append(*w, '[')
		for i, e := range o.List {
			if i > 0 {
				*w = append(*w, ',', ' ')
			}
			e.Write(w, escape)
		}
		*w = append(*w, ']')
	case ObjMap:
		*w = append(*w, '{')
		for i, k := range o.order {
			if i > 0 {
				*w = append(*w, ',', ' ')
			}
			k.write(w, escape)
			*w = append(*w, ':', ' ')
			v, _ := o.MapGet(k)
			v.Write(w, escape)
		}
		*w = append(*w, '}')
	case ObjMapEntry:
		*w = append(*w, '{')
		o.EntryKey.write(w, escape)
		*w = append(*w, ':', ' ')
		if v, ok := o.EntryValue(); ok {
			v.Write(w, escape)
		} else {
			*w = append(*w, "null"...)
		}
		*w = append(*w, '}')
	case ObjListIterator:
		*w = append(*w, "[...]"...)
	case ObjMapIterator:
		*w = append(*w, "{...}"...)
	}
}
