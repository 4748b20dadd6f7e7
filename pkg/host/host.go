// Package host defines the two pure external interfaces spec §4.4/§6 keep
// out of the runtime core: the host function extension mechanism ("call")
// and @include partial resolution. Both are implemented by whatever embeds
// embervm; this package only names the seam.
package host

import "github.com/kristofer/embervm/pkg/value"

// Host is the callout surface a compiled template's host environment
// provides. Neither method is invoked by pkg/vm today — spec §4.3 lists a
// CALL_HOST opcode as "reserved, not part of the core instruction table" —
// but the interface exists so a compiler/host pair can add that dispatch
// without changing the VM.
type Host interface {
	// Call invokes a host-registered function by id with the given
	// arguments, returning its result or an error.
	Call(functionID uint32, argv []value.Value) (value.Value, error)

	// ResolvePartial resolves an @include reference: given the including
	// template's key and the include expression's key, it returns the
	// partial's source text and a (possibly rewritten) key identifying it.
	ResolvePartial(templateKey, includeKey string) (source []byte, resolvedKey string, err error)
}

// Nop is a Host that errors on every call; useful as a VM's default host
// when the embedding application has no extensions or partials to offer.
type Nop struct{}

func (Nop) Call(functionID uint32, argv []value.Value) (value.Value, error) {
	return value.Value{}, &UnsupportedError{Op: "call"}
}

func (Nop) ResolvePartial(templateKey, includeKey string) ([]byte, string, error) {
	return nil, "", &UnsupportedError{Op: "@include"}
}

// UnsupportedError reports that a Host implementation does not support a
// given extension point.
type UnsupportedError struct {
	Op string
}

func (e *UnsupportedError) Error() string {
	return "embervm/host: " + e.Op + " not supported by this host"
}
