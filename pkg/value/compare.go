package value

import "errors"

// ErrIncompatible is returned by Equal when the two values' kinds cannot be
// compared at all (spec §4.1, rule 10).
var ErrIncompatible = errors.New("incompatible types")

// Equal implements spec §4.1 "equal(a, b)". It normalizes Ref(Buffer) to
// Str first, then applies the rule table in order.
func Equal(a, b Value) (bool, error) {
	a, b = normalize(a), normalize(b)

	// Iterators are never equal to anything, including themselves (rule 9).
	if isIterator(a) || isIterator(b) {
		return false, nil
	}

	switch {
	case a.kind == KindNull || b.kind == KindNull:
		// rule 4: Null vs anything (including Null vs Null) is handled
		// here; Null==Null is true, Null vs non-Null is false, never
		// incompatible.
		return a.kind == b.kind, nil

	case a.kind == KindInt && b.kind == KindInt:
		return a.i == b.i, nil
	case a.kind == KindFloat && b.kind == KindFloat:
		return a.f == b.f, nil
	case a.kind == KindBool && b.kind == KindBool:
		return a.i == b.i, nil
	case a.kind == KindInt && b.kind == KindFloat:
		return float64(a.i) == b.f, nil
	case a.kind == KindFloat && b.kind == KindInt:
		return a.f == float64(b.i), nil
	case a.kind == KindStr && b.kind == KindStr:
		return bytesEqual(a.s, b.s), nil

	case a.kind == KindRef && b.kind == KindRef:
		return equalRef(a.ref, b.ref)

	default:
		return false, ErrIncompatible
	}
}

func isIterator(v Value) bool {
	return v.kind == KindRef && (v.ref.Kind == ObjListIterator || v.ref.Kind == ObjMapIterator)
}

func equalRef(a, b *Object) (bool, error) {
	if a.Kind != b.Kind {
		return false, ErrIncompatible
	}
	switch a.Kind {
	case ObjList:
		if len(a.List) != len(b.List) {
			return false, nil
		}
		for i := range a.List {
			eq, err := Equal(a.List[i], b.List[i])
			if err != nil {
				// rule 6: a nested Incompatible result coerces to false.
				return false, nil
			}
			if !eq {
				return false, nil
			}
		}
		return true, nil

	case ObjMap:
		if a.Len() != b.Len() {
			return false, nil
		}
		for _, k := range a.order {
			av, _ := a.MapGet(k)
			bv, ok := b.MapGet(k)
			if !ok {
				return false, nil
			}
			eq, err := Equal(av, bv)
			if err != nil || !eq {
				return false, nil
			}
		}
		return true, nil

	case ObjMapEntry:
		if !a.EntryKey.equal(b.EntryKey) {
			return false, nil
		}
		av, _ := a.EntryValue()
		bv, _ := b.EntryValue()
		eq, err := Equal(av, bv)
		if err != nil {
			return false, nil
		}
		return eq, nil

	default:
		return false, ErrIncompatible
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
