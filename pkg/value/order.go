package value

// Ordering is the three-way result of Order.
type Ordering int

const (
	Less Ordering = -1
	Equal Ordering = 0
	Greater Ordering = 1
)

// tagOrdinal assigns each value a fixed, deterministic rank used when the
// two operands' kinds differ and neither is the int/float numeric pair
// (spec §4.1 "order(a,b)": "order by a fixed tag ordinal
// (implementation-defined but deterministic)"). Iterators rank below every
// other ref kind, as the spec requires explicitly.
func tagOrdinal(v Value) int {
	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 2
	case KindStr:
		return 3
	case KindRef:
		switch v.ref.Kind {
		case ObjListIterator, ObjMapIterator:
			return 4
		case ObjList:
			return 5
		case ObjMap:
			return 6
		case ObjMapEntry:
			return 7
		case ObjBuffer:
			return 3 // normalized away before this is reached
		}
	}
	return -1
}

// Order implements spec §4.1 "order(a, b)".
func Order(a, b Value) Ordering {
	a, b = normalize(a), normalize(b)

	aIter, bIter := isIterator(a), isIterator(b)
	if aIter || bIter {
		if aIter && bIter {
			return Equal
		}
		// an iterator is smaller than anything else it's compared with.
		if aIter {
			return Less
		}
		return Greater
	}

	// numeric promotion when kinds differ but both are numeric.
	if a.kind != b.kind {
		an, aIsNum := asFloat(a)
		bn, bIsNum := asFloat(b)
		if aIsNum && bIsNum {
			return compareFloat(an, bn)
		}
		return compareInt(tagOrdinal(a), tagOrdinal(b))
	}

	switch a.kind {
	case KindInt:
		return compareInt64(a.i, b.i)
	case KindFloat:
		return compareFloat(a.f, b.f)
	case KindBool:
		return compareInt64(a.i, b.i) // false(0) < true(1)
	case KindNull:
		return Equal
	case KindStr:
		return compareBytes(a.s, b.s)
	case KindRef:
		return orderRef(a.ref, b.ref)
	}
	return Equal
}

func asFloat(v Value) (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

func orderRef(a, b *Object) Ordering {
	if a.Kind != b.Kind {
		return compareInt(tagRank(a.Kind), tagRank(b.Kind))
	}
	switch a.Kind {
	case ObjList:
		if len(a.List) != len(b.List) {
			return compareInt(len(a.List), len(b.List))
		}
		for i := range a.List {
			if o := Order(a.List[i], b.List[i]); o != Equal {
				return o
			}
		}
		return Equal
	case ObjMap:
		return compareInt(a.Len(), b.Len())
	case ObjMapEntry:
		if o := a.EntryKey.order(b.EntryKey); o != Equal {
			return o
		}
		av, _ := a.EntryValue()
		bv, _ := b.EntryValue()
		return Order(av, bv)
	default:
		return Equal
	}
}

func tagRank(k ObjKind) int {
	switch k {
	case ObjListIterator, ObjMapIterator:
		return 4
	case ObjList:
		return 5
	case ObjMap:
		return 6
	case ObjMapEntry:
		return 7
	default:
		return 3
	}
}

func (k Key) order(o Key) Ordering {
	if k.kind != o.kind {
		return compareInt(int(k.kind), int(o.kind))
	}
	if k.kind == keyInt {
		return compareInt64(k.i, o.i)
	}
	return compareString(k.s, o.s)
}

func compareInt64(a, b int64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func compareInt(a, b int) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func compareFloat(a, b float64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func compareBytes(a, b []byte) Ordering {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return Less
			}
			return Greater
		}
	}
	return compareInt(len(a), len(b))
}

func compareString(a, b string) Ordering {
	return compareBytes([]byte(a), []byte(b))
}
