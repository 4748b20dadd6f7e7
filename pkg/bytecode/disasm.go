package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Disassemble writes a human-readable listing of img's code section to w,
// one instruction per line, in the column style of the teacher's
// pkg/bytecode/format.go disassembler (offset, mnemonic, decoded operand),
// adapted here from a struct-instruction stream to a byte-offset decode
// loop over Image's packed encoding.
func Disassemble(w io.Writer, img Image, cfg Config) error {
	fmt.Fprintf(w, "; code_section_end=%d entry_offset=%d\n", img.CodeSectionEnd(), img.EntryOffset())
	code := img.Code()
	ip := uint32(0)
	for ip < uint32(len(code)) {
		start := ip
		op := Opcode(code[ip])
		ip++

		operand, n, err := decodeOperandText(code[ip:], op, img, cfg)
		if err != nil {
			return fmt.Errorf("disassemble at %d: %w", start, err)
		}
		ip += n

		if start == img.EntryOffset() {
			fmt.Fprintf(w, "entry:\n")
		}
		if operand == "" {
			fmt.Fprintf(w, "%6d  %s\n", start, op)
		} else {
			fmt.Fprintf(w, "%6d  %-18s%s\n", start, op, operand)
		}
	}
	return nil
}

func decodeOperandText(rest []byte, op Opcode, img Image, cfg Config) (string, uint32, error) {
	switch op {
	case OpConstantI64:
		v := int64(binary.LittleEndian.Uint64(rest[0:8]))
		return fmt.Sprintf("%d", v), 8, nil
	case OpConstantF64:
		v := math.Float64frombits(binary.LittleEndian.Uint64(rest[0:8]))
		return fmt.Sprintf("%g", v), 8, nil
	case OpConstantBool:
		return fmt.Sprintf("%v", rest[0] != 0), 1, nil
	case OpConstantString:
		off := binary.LittleEndian.Uint32(rest[0:4])
		return fmt.Sprintf("%d ; %q", off, img.StringAt(off)), 4, nil
	case OpGetLocal, OpSetLocal:
		slot, n := decodeLocal(rest, cfg)
		return fmt.Sprintf("%d", slot), n, nil
	case OpIncr:
		delta := rest[0]
		slot, n := decodeLocal(rest[1:], cfg)
		return fmt.Sprintf("delta=%d slot=%d", delta, slot), 1 + n, nil
	case OpJump, OpJumpIfFalse:
		rel := int16(binary.LittleEndian.Uint16(rest[0:2]))
		return fmt.Sprintf("%+d", rel), 2, nil
	case OpInitializeArray:
		count := binary.LittleEndian.Uint32(rest[0:4])
		return fmt.Sprintf("%d", count), 4, nil
	case OpCall:
		off := binary.LittleEndian.Uint32(rest[0:4])
		desc := img.FuncAt(off)
		return fmt.Sprintf("%d ; arity=%d code=%d", off, desc.Arity, desc.CodeOffset), 4, nil
	case OpDebug:
		length := binary.LittleEndian.Uint16(rest[0:2])
		return fmt.Sprintf("len=%d", length), 2 + uint32(length), nil
	default:
		return "", 0, nil
	}
}

func decodeLocal(rest []byte, cfg Config) (uint32, uint32) {
	if cfg.LocalWidth() == 1 {
		return uint32(rest[0]), 1
	}
	return uint32(binary.LittleEndian.Uint16(rest[0:2])), 2
}
