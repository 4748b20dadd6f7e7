package value

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// keyKind distinguishes the two possible Key payloads.
type keyKind byte

const (
	keyInt keyKind = iota
	keyStr
)

// Key is a map key: either a 64-bit int or a byte string (spec §3.1/"Key").
// Two keys of different kinds are never equal, matching spec wording.
// Object's Map payload buckets its entries by Key.Hash(), so Key need not
// be Go-comparable, but it is anyway (plain value equality) for cheap
// copying and use as a map literal's lookup argument.
type Key struct {
	kind keyKind
	i    int64
	s    string
}

func IntKey(i int64) Key    { return Key{kind: keyInt, i: i} }
func StrKey(s string) Key   { return Key{kind: keyStr, s: s} }
func (k Key) IsInt() bool   { return k.kind == keyInt }
func (k Key) IsStr() bool   { return k.kind == keyStr }
func (k Key) Int() int64    { return k.i }
func (k Key) Str() string   { return k.s }

// Hash returns a fast non-cryptographic hash of the key's raw bytes, per
// spec §3.1 ("Hashing uses a fast non-cryptographic hash (e.g. Wyhash)").
// Object's Map payload (pkg/value/object.go) buckets its entries by this
// hash in a separate-chaining table, so every MapGet/MapSet/MapDelete
// reaches it.
func (k Key) Hash() uint64 {
	switch k.kind {
	case keyInt:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(k.i))
		return xxhash.Sum64(b[:])
	default:
		return xxhash.Sum64String(k.s)
	}
}

// KeyFromValue converts a Value into a Key, for INDEX_GET/map-literal
// construction. Only Int and Str/Buffer values are valid keys.
func KeyFromValue(v Value) (Key, bool) {
	switch v.Kind() {
	case KindInt:
		return IntKey(v.AsInt()), true
	case KindStr:
		return StrKey(string(v.AsBytes())), true
	case KindRef:
		if v.AsRef().Kind == ObjBuffer {
			return StrKey(string(v.AsRef().Buf)), true
		}
		return Key{}, false
	default:
		return Key{}, false
	}
}

// Value converts a Key back to a Value (used when formatting/iterating a
// Map's keys).
func (k Key) Value() Value {
	if k.kind == keyInt {
		return Int(k.i)
	}
	return StrS(k.s)
}

func (k Key) write(w *[]byte, escape bool) {
	k.Value().Write(w, escape)
}

func (k Key) equal(o Key) bool {
	if k.kind != o.kind {
		return false
	}
	if k.kind == keyInt {
		return k.i == o.i
	}
	return k.s == o.s
}
