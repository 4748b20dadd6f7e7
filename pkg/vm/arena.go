package vm

import "github.com/kristofer/embervm/pkg/value"

// Arena is the per-run allocator spec §3/§5 describes: every heap object
// (buffer, list, map, iterator, map entry) created through it while running
// a single bytecode image is attributed to one Arena, which is discarded
// wholesale at VM teardown. Runtime error descriptions are plain Go strings
// and are not counted by it.
//
// Go's garbage collector owns the actual memory — there is no manual free
// list here, matching the latitude spec §9 gives implementations in
// garbage-collected host languages ("the counter is redundant and may be
// omitted so long as iterator/container lifetimes are otherwise pinned").
// What Arena does provide is the allocation *accounting* spec §7's
// OutOfMemory error needs: an optional object-count budget a host can set
// to bound a single render, and a live count of everything allocated so
// far.
type Arena struct {
	limit int // 0 means unlimited
	count int
}

// NewArena creates an arena. limit bounds the number of heap objects this
// run may allocate (0 = unlimited); exceeding it surfaces as OutOfMemory.
func NewArena(limit int) *Arena {
	return &Arena{limit: limit}
}

// errArenaExhausted is returned by the alloc helpers below when limit would
// be exceeded; the VM's decode loop turns it into a RuntimeError{OutOfMemory}.
var errArenaExhausted = &RuntimeError{Kind: OutOfMemory, Message: "arena exhausted"}

func (a *Arena) reserve() error {
	if a.limit > 0 && a.count >= a.limit {
		return errArenaExhausted
	}
	a.count++
	return nil
}

func (a *Arena) NewBuffer(b []byte) (*value.Object, error) {
	if err := a.reserve(); err != nil {
		return nil, err
	}
	return value.NewBuffer(b), nil
}

func (a *Arena) NewList(elems []value.Value) (*value.Object, error) {
	if err := a.reserve(); err != nil {
		return nil, err
	}
	return value.NewList(elems), nil
}

func (a *Arena) NewMap() (*value.Object, error) {
	if err := a.reserve(); err != nil {
		return nil, err
	}
	return value.NewMap(), nil
}

func (a *Arena) NewListIterator(list *value.Object) (*value.Object, error) {
	if err := a.reserve(); err != nil {
		return nil, err
	}
	return value.NewListIterator(list), nil
}

func (a *Arena) NewMapIterator(m *value.Object) (*value.Object, error) {
	if err := a.reserve(); err != nil {
		return nil, err
	}
	return value.NewMapIterator(m), nil
}

func (a *Arena) NewMapEntry(m *value.Object, k value.Key) (*value.Object, error) {
	if err := a.reserve(); err != nil {
		return nil, err
	}
	return value.NewMapEntry(m, k), nil
}

// Count reports how many heap objects this arena has handed out so far.
func (a *Arena) Count() int { return a.count }
