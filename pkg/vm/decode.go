package vm

import (
	"encoding/binary"
	"math"

	"github.com/kristofer/embervm/pkg/bytecode"
	"github.com/kristofer/embervm/pkg/value"
)

func (vm *VM) readU8(code []byte) byte {
	b := code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readU16(code []byte) uint16 {
	v := binary.LittleEndian.Uint16(code[vm.ip : vm.ip+2])
	vm.ip += 2
	return v
}

func (vm *VM) readI16(code []byte) int16 {
	return int16(vm.readU16(code))
}

func (vm *VM) readU32(code []byte) uint32 {
	v := binary.LittleEndian.Uint32(code[vm.ip : vm.ip+4])
	vm.ip += 4
	return v
}

func (vm *VM) readI64(code []byte) int64 {
	v := int64(binary.LittleEndian.Uint64(code[vm.ip : vm.ip+8]))
	vm.ip += 8
	return v
}

func (vm *VM) readF64(code []byte) float64 {
	v := math.Float64frombits(binary.LittleEndian.Uint64(code[vm.ip : vm.ip+8]))
	vm.ip += 8
	return v
}

func (vm *VM) readLocalSlot(code []byte) uint32 {
	if vm.cfg.LocalWidth() == 1 {
		return uint32(vm.readU8(code))
	}
	return uint32(vm.readU16(code))
}

// step decodes and executes a single instruction whose opcode byte has
// already been consumed (vm.ip points at its first operand byte).
func (vm *VM) step(op bytecode.Opcode, code []byte) (stepResult, error) {
	switch op {
	case bytecode.OpPop:
		vm.pop()

	case bytecode.OpConstantI64:
		vm.push(value.Int(vm.readI64(code)))

	case bytecode.OpConstantF64:
		vm.push(value.Float(vm.readF64(code)))

	case bytecode.OpConstantBool:
		vm.push(value.Bool(vm.readU8(code) != 0))

	case bytecode.OpConstantString:
		off := vm.readU32(code)
		vm.push(value.Str(vm.img.StringAt(off)))

	case bytecode.OpConstantNull:
		vm.push(value.Null())

	case bytecode.OpGetLocal:
		slot := vm.readLocalSlot(code)
		vm.push(vm.local(slot))

	case bytecode.OpSetLocal:
		slot := vm.readLocalSlot(code)
		vm.setLocal(slot, vm.top())

	case bytecode.OpIncr:
		delta := vm.readU8(code)
		slot := vm.readLocalSlot(code)
		if err := vm.execIncr(slot, delta); err != nil {
			return stepResult{}, err
		}

	case bytecode.OpAdd, bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide, bytecode.OpModulus:
		if err := vm.execBinaryArith(op); err != nil {
			return stepResult{}, err
		}

	case bytecode.OpNegate:
		if err := vm.execNegate(); err != nil {
			return stepResult{}, err
		}

	case bytecode.OpNot:
		if err := vm.execNot(); err != nil {
			return stepResult{}, err
		}

	case bytecode.OpEqual:
		if err := vm.execEqual(); err != nil {
			return stepResult{}, err
		}

	case bytecode.OpGreater:
		vm.execCompare(value.Greater)

	case bytecode.OpLesser:
		vm.execCompare(value.Less)

	case bytecode.OpJump:
		rel := vm.readI16(code)
		vm.branch(rel)

	case bytecode.OpJumpIfFalse:
		rel := vm.readI16(code)
		// top is NOT popped — spec §4.3: "the compiler emits an explicit
		// POP where needed."
		if !vm.top().IsTrue() {
			vm.branch(rel)
		}

	case bytecode.OpInitializeArray:
		count := vm.readU32(code)
		if err := vm.execInitializeArray(count); err != nil {
			return stepResult{}, err
		}

	case bytecode.OpIndexGet:
		if err := vm.execIndexGet(); err != nil {
			return stepResult{}, err
		}

	case bytecode.OpCall:
		off := vm.readU32(code)
		if err := vm.execCall(off); err != nil {
			return stepResult{}, err
		}

	case bytecode.OpReturn:
		return vm.execReturn(), nil

	case bytecode.OpPrint:
		v := vm.pop()
		var buf []byte
		v.Write(&buf, vm.cfg.EscapeByDefault)
		if vm.Out != nil {
			vm.Out.Write(buf)
		}

	case bytecode.OpDebug:
		length := vm.readU16(code)
		vm.ip += uint32(length)

	default:
		return stepResult{}, vm.fail(TypeError, "unknown opcode %d at ip=%d", op, vm.ip-1)
	}

	return stepResult{}, nil
}

// branch applies a relative jump measured from the byte immediately after
// the 16-bit operand (spec §4.3 "Branch semantics"), asserting the target
// stays within the code section.
func (vm *VM) branch(rel int16) {
	target := int64(vm.ip) + int64(rel)
	if target < 0 || target > int64(len(vm.img.Code())) {
		panic("embervm: jump target out of code section bounds")
	}
	vm.ip = uint32(target)
}
