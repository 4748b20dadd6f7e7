// Operand execution helpers for the decode loop in decode.go — arithmetic,
// comparison, indexing, and call/return, mirroring the teacher's
// primitives.go in spirit (one small function per operation family) even
// though none of its message-send plumbing survives.
package vm

import (
	"github.com/kristofer/embervm/pkg/bytecode"
	"github.com/kristofer/embervm/pkg/value"
)

func (vm *VM) execIncr(slot uint32, delta byte) error {
	cur := vm.local(slot)
	if cur.Kind() != value.KindInt {
		return vm.fail(TypeError, "INCR on non-int local (kind=%s)", cur.Kind())
	}
	// delta==0 is the spec's sentinel for a step of -1.
	step := int64(delta)
	if delta == 0 {
		step = -1
	}
	next := value.Int(cur.AsInt() + step)
	vm.setLocal(slot, next)
	// INCR is an expression: the updated value is also pushed.
	vm.push(next)
	return nil
}

// execBinaryArith implements ADD/SUBTRACT/MULTIPLY/DIVIDE/MODULUS, each
// requiring two numeric operands per spec §4.3's instruction table. Two
// int operands stay int (with two's-complement wraparound on overflow,
// matching Go's native int64 arithmetic); any float operand promotes both
// to float and follows IEEE 754 semantics. MODULUS additionally requires
// both operands to be int (spec §4.3/§8).
func (vm *VM) execBinaryArith(op bytecode.Opcode) error {
	b := vm.pop()
	a := vm.pop()

	aIsInt, bIsInt := a.Kind() == value.KindInt, b.Kind() == value.KindInt
	aIsFloat, bIsFloat := a.Kind() == value.KindFloat, b.Kind() == value.KindFloat

	if !((aIsInt || aIsFloat) && (bIsInt || bIsFloat)) {
		return vm.fail(TypeError, "%s requires two numbers (got %s, %s)", op, a.Kind(), b.Kind())
	}

	if aIsInt && bIsInt {
		ai, bi := a.AsInt(), b.AsInt()
		switch op {
		case bytecode.OpAdd:
			vm.push(value.Int(ai + bi))
		case bytecode.OpSubtract:
			vm.push(value.Int(ai - bi))
		case bytecode.OpMultiply:
			vm.push(value.Int(ai * bi))
		case bytecode.OpDivide:
			if bi == 0 {
				return vm.fail(TypeError, "integer division by zero")
			}
			vm.push(value.Int(ai / bi))
		case bytecode.OpModulus:
			if bi == 0 {
				return vm.fail(TypeError, "integer modulus by zero")
			}
			// floor-mod: result takes the divisor's sign.
			m := ai % bi
			if m != 0 && (m < 0) != (bi < 0) {
				m += bi
			}
			vm.push(value.Int(m))
		}
		return nil
	}

	if op == bytecode.OpModulus {
		return vm.fail(TypeError, "MODULUS requires two ints (got %s, %s)", a.Kind(), b.Kind())
	}

	af, bf := asNumF(a), asNumF(b)
	switch op {
	case bytecode.OpAdd:
		vm.push(value.Float(af + bf))
	case bytecode.OpSubtract:
		vm.push(value.Float(af - bf))
	case bytecode.OpMultiply:
		vm.push(value.Float(af * bf))
	case bytecode.OpDivide:
		vm.push(value.Float(af / bf))
	}
	return nil
}

func asNumF(v value.Value) float64 {
	if v.Kind() == value.KindInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

func (vm *VM) execNegate() error {
	a := vm.pop()
	switch a.Kind() {
	case value.KindInt:
		vm.push(value.Int(-a.AsInt()))
	case value.KindFloat:
		vm.push(value.Float(-a.AsFloat()))
	default:
		return vm.fail(TypeError, "NEGATE requires a number (got %s)", a.Kind())
	}
	return nil
}

func (vm *VM) execNot() error {
	a := vm.pop()
	if a.Kind() != value.KindBool {
		return vm.fail(TypeError, "NOT requires a bool (got %s)", a.Kind())
	}
	vm.push(value.Bool(!a.IsTrue()))
	return nil
}

func (vm *VM) execEqual() error {
	b := vm.pop()
	a := vm.pop()
	eq, err := value.Equal(a, b)
	if err != nil {
		return vm.fail(TypeError, "EQUAL: %v", err)
	}
	vm.push(value.Bool(eq))
	return nil
}

func (vm *VM) execCompare(want value.Ordering) {
	b := vm.pop()
	a := vm.pop()
	vm.push(value.Bool(value.Order(a, b) == want))
}

func (vm *VM) execInitializeArray(count uint32) error {
	n := int(count)
	if n > len(vm.stack) {
		return vm.fail(OutOfRange, "INITIALIZE_ARRAY count %d exceeds stack depth %d", n, len(vm.stack))
	}
	elems := make([]value.Value, n)
	copy(elems, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]

	obj, err := vm.arena.NewList(elems)
	if err != nil {
		return vm.fail(OutOfMemory, "%v", err)
	}
	vm.push(value.Ref(obj))
	return nil
}

// execIndexGet implements INDEX_GET over List, Map, and Str/Buffer
// receivers: list[int] (negative indices count from the end), map[key]
// (Int/Str keys only, Null when absent), and str[int] (single-byte
// slice, negative from the end).
func (vm *VM) execIndexGet() error {
	idx := vm.pop()
	recv := vm.pop()

	switch recv.Kind() {
	case value.KindStr:
		if idx.Kind() != value.KindInt {
			return vm.fail(TypeError, "string index must be an int (got %s)", idx.Kind())
		}
		b := recv.AsBytes()
		i, ok := resolveIndex(idx, len(b))
		if !ok {
			return vm.fail(OutOfRange, "string index out of range")
		}
		vm.push(value.Str(b[i : i+1]))
		return nil

	case value.KindRef:
		obj := recv.AsRef()
		switch obj.Kind {
		case value.ObjList:
			if idx.Kind() != value.KindInt {
				return vm.fail(TypeError, "list index must be an int (got %s)", idx.Kind())
			}
			i, ok := resolveIndex(idx, len(obj.List))
			if !ok {
				return vm.fail(OutOfRange, "list index out of range")
			}
			vm.push(obj.List[i])
			return nil

		case value.ObjMap:
			k, ok := value.KeyFromValue(idx)
			if !ok {
				return vm.fail(TypeError, "map index must be an int or string (got %s)", idx.Kind())
			}
			v, found := obj.MapGet(k)
			if !found {
				vm.push(value.Null())
				return nil
			}
			vm.push(v)
			return nil

		case value.ObjBuffer:
			if idx.Kind() != value.KindInt {
				return vm.fail(TypeError, "buffer index must be an int (got %s)", idx.Kind())
			}
			b := obj.Buf
			i, ok := resolveIndex(idx, len(b))
			if !ok {
				return vm.fail(OutOfRange, "buffer index out of range")
			}
			vm.push(value.Str(b[i : i+1]))
			return nil
		}
	}

	return vm.fail(TypeError, "INDEX_GET requires a list, map, or string receiver (got %s)", recv.Kind())
}

func resolveIndex(idx value.Value, length int) (int, bool) {
	if idx.Kind() != value.KindInt {
		return 0, false
	}
	i := idx.AsInt()
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, false
	}
	return int(i), true
}

// execCall implements CALL: args already sit on top of the stack (arity of
// them, per the descriptor), so the callee's frame pointer is the stack
// depth below those args (len(stack) - arity), making them its slots
// 0..arity-1. The caller's own frame
// pointer is saved so RETURN can restore it.
func (vm *VM) execCall(descOff uint32) error {
	if vm.frameCount >= len(vm.frames) {
		return vm.fail(StackOverflow, "call stack exhausted (max %d frames)", len(vm.frames))
	}

	desc := vm.img.FuncAt(descOff)
	arity := int(desc.Arity)
	if arity > len(vm.stack) {
		return vm.fail(OutOfRange, "CALL arity %d exceeds stack depth %d", arity, len(vm.stack))
	}

	vm.frames[vm.frameCount] = callFrame{returnIP: vm.ip, savedFP: vm.fp}
	vm.frameCount++

	vm.fp = len(vm.stack) - arity
	vm.ip = desc.CodeOffset
	return nil
}

// execReturn implements RETURN: the returning value is popped, the stack is
// truncated back to this call's own frame pointer (discarding its args and
// locals), the caller's frame pointer is restored, and execution resumes at
// the saved return ip. A RETURN with no active call frame ends the run.
func (vm *VM) execReturn() stepResult {
	result := vm.pop()

	if vm.frameCount == 0 {
		return stepResult{done: true, value: result}
	}

	calleeFP := vm.fp
	vm.frameCount--
	f := vm.frames[vm.frameCount]

	vm.stack = vm.stack[:calleeFP]
	vm.push(result)

	vm.fp = f.savedFP
	vm.ip = f.returnIP
	return stepResult{}
}
