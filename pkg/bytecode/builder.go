package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Builder assembles a valid Image in memory without a real front-end
// compiler — the external collaborator spec §1 keeps out of scope. It is
// used by this repo's own tests (the textually-assembled scenarios of
// spec §8) and by cmd/embervm's demo programs.
//
// The label/backpatch approach mirrors the two-pass label resolution in
// KTStephano-GVM's assembler (preprocessLine collects label->line, then
// parseInputLine resolves references); here labels are relative-jump
// backpatches over a growing code buffer instead of line substitutions.
type Builder struct {
	cfg Config

	code []byte
	data []byte

	entry       uint32
	entrySet    bool
	stringCache map[string]uint32 // used only when cfg.DeduplicateStringLiterals
}

// NewBuilder creates an assembler using cfg to decide local-slot width and
// string deduplication.
func NewBuilder(cfg Config) *Builder {
	b := &Builder{
		cfg:  cfg,
		code: make([]byte, 0, cfg.InitialCodeSize),
		data: make([]byte, 0, cfg.InitialDataSize),
	}
	if cfg.DeduplicateStringLiterals {
		b.stringCache = make(map[string]uint32)
	}
	return b
}

// Label is an unresolved jump target. Call Place to bind it to the current
// code offset, and pass it to EmitJump/EmitJumpIfFalse before or after
// placing it — forward and backward jumps are both supported.
type Label struct {
	resolved bool
	target   uint32
	patches  []uint32 // code offsets of i16 operands awaiting this label
}

// NewLabel creates an unbound jump target.
func (b *Builder) NewLabel() *Label { return &Label{} }

// Here returns the current code offset (useful for loop-back labels placed
// before the jump that targets them).
func (b *Builder) Here() uint32 { return uint32(len(b.code)) }

// Place binds l to the current code offset and backpatches every jump
// already emitted against it.
func (b *Builder) Place(l *Label) {
	l.resolved = true
	l.target = b.Here()
	for _, patchAt := range l.patches {
		b.patchJump(patchAt, l.target)
	}
	l.patches = nil
}

func (b *Builder) patchJump(operandAt, target uint32) {
	// offsets are measured from the byte immediately after the i16 operand
	// (spec §4.3 "Branch semantics").
	from := operandAt + 2
	rel := int32(target) - int32(from)
	if rel < math.MinInt16 || rel > math.MaxInt16 {
		panic(fmt.Sprintf("embervm/bytecode: jump offset %d out of i16 range", rel))
	}
	binary.LittleEndian.PutUint16(b.code[operandAt:operandAt+2], uint16(int16(rel)))
}

func (b *Builder) emitJumpLike(op Opcode, l *Label) {
	b.code = append(b.code, byte(op))
	operandAt := uint32(len(b.code))
	b.code = append(b.code, 0, 0)
	if l.resolved {
		b.patchJump(operandAt, l.target)
	} else {
		l.patches = append(l.patches, operandAt)
	}
}

// EmitJump appends an unconditional JUMP to l.
func (b *Builder) EmitJump(l *Label) { b.emitJumpLike(OpJump, l) }

// EmitJumpIfFalse appends a JUMP_IF_FALSE to l. Per spec §4.3 the top of
// stack is not popped by this instruction.
func (b *Builder) EmitJumpIfFalse(l *Label) { b.emitJumpLike(OpJumpIfFalse, l) }

func (b *Builder) emitOp(op Opcode) { b.code = append(b.code, byte(op)) }

func (b *Builder) EmitPop()           { b.emitOp(OpPop) }
func (b *Builder) EmitConstantNull()  { b.emitOp(OpConstantNull) }
func (b *Builder) EmitAdd()           { b.emitOp(OpAdd) }
func (b *Builder) EmitSubtract()      { b.emitOp(OpSubtract) }
func (b *Builder) EmitMultiply()      { b.emitOp(OpMultiply) }
func (b *Builder) EmitDivide()        { b.emitOp(OpDivide) }
func (b *Builder) EmitModulus()       { b.emitOp(OpModulus) }
func (b *Builder) EmitNegate()        { b.emitOp(OpNegate) }
func (b *Builder) EmitNot()           { b.emitOp(OpNot) }
func (b *Builder) EmitEqual()         { b.emitOp(OpEqual) }
func (b *Builder) EmitGreater()       { b.emitOp(OpGreater) }
func (b *Builder) EmitLesser()        { b.emitOp(OpLesser) }
func (b *Builder) EmitIndexGet()      { b.emitOp(OpIndexGet) }
func (b *Builder) EmitReturn()        { b.emitOp(OpReturn) }
func (b *Builder) EmitPrint()         { b.emitOp(OpPrint) }

func (b *Builder) EmitConstantI64(v int64) {
	b.emitOp(OpConstantI64)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	b.code = append(b.code, buf[:]...)
}

func (b *Builder) EmitConstantF64(v float64) {
	b.emitOp(OpConstantF64)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	b.code = append(b.code, buf[:]...)
}

func (b *Builder) EmitConstantBool(v bool) {
	b.emitOp(OpConstantBool)
	if v {
		b.code = append(b.code, 1)
	} else {
		b.code = append(b.code, 0)
	}
}

// EmitConstantString appends a CONSTANT_STRING instruction for s,
// interning it into the data section (deduplicated when
// cfg.DeduplicateStringLiterals is set).
func (b *Builder) EmitConstantString(s string) {
	off := b.AddString(s)
	b.emitOp(OpConstantString)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], off)
	b.code = append(b.code, buf[:]...)
}

// AddString interns s into the data section and returns its data-section
// offset, without emitting any instruction (used when a caller needs the
// offset itself, e.g. to read the string back with Image.StringAt).
func (b *Builder) AddString(s string) uint32 {
	if b.stringCache != nil {
		if off, ok := b.stringCache[s]; ok {
			return off
		}
	}
	off := uint32(len(b.data))
	var buf [4]byte
	end := off + 4 + uint32(len(s))
	binary.LittleEndian.PutUint32(buf[:], end)
	b.data = append(b.data, buf[:]...)
	b.data = append(b.data, s...)
	if b.stringCache != nil {
		b.stringCache[s] = off
	}
	return off
}

func (b *Builder) emitLocalOp(op Opcode, slot uint32) {
	b.emitOp(op)
	switch b.cfg.LocalWidth() {
	case 1:
		b.code = append(b.code, byte(slot))
	default:
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(slot))
		b.code = append(b.code, buf[:]...)
	}
}

func (b *Builder) EmitGetLocal(slot uint32) { b.emitLocalOp(OpGetLocal, slot) }
func (b *Builder) EmitSetLocal(slot uint32) { b.emitLocalOp(OpSetLocal, slot) }

// EmitIncr appends INCR. delta must be 0 (meaning -1, per spec §4.3's
// documented sentinel) or a positive increment amount.
func (b *Builder) EmitIncr(delta byte, slot uint32) {
	b.emitOp(OpIncr)
	b.code = append(b.code, delta)
	switch b.cfg.LocalWidth() {
	case 1:
		b.code = append(b.code, byte(slot))
	default:
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(slot))
		b.code = append(b.code, buf[:]...)
	}
}

func (b *Builder) EmitInitializeArray(count uint32) {
	b.emitOp(OpInitializeArray)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], count)
	b.code = append(b.code, buf[:]...)
}

// EmitCall appends a CALL against the function descriptor at data offset
// descOff (see DefineFunction).
func (b *Builder) EmitCall(descOff uint32) {
	b.emitOp(OpCall)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], descOff)
	b.code = append(b.code, buf[:]...)
}

// EmitDebug appends a DEBUG sidecar record carrying payload, skipped
// verbatim by the VM's decode loop (spec §4.3).
func (b *Builder) EmitDebug(payload []byte) {
	b.emitOp(OpDebug)
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(len(payload)))
	b.code = append(b.code, buf[:]...)
	b.code = append(b.code, payload...)
}

// DefineFunction writes a function descriptor {arity, codeOffset} into the
// data section and returns its offset, for use with EmitCall. codeOffset
// is relative to the start of the code section, typically obtained from
// Here() taken right before emitting the function's own body.
func (b *Builder) DefineFunction(arity byte, codeOffset uint32) uint32 {
	off := uint32(len(b.data))
	b.data = append(b.data, arity)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], codeOffset)
	b.data = append(b.data, buf[:]...)
	return off
}

// SetEntry marks offset (relative to the code section) as the
// main-script entry point. If never called, the entry point defaults to
// offset 0 (the start of the code section).
func (b *Builder) SetEntry(offset uint32) {
	b.entry = offset
	b.entrySet = true
}

// Finish assembles the header, code, and data sections into a complete
// Image.
func (b *Builder) Finish() Image {
	codeEnd := headerSize + uint32(len(b.code))
	entry := b.entry
	if !b.entrySet {
		entry = 0
	}

	img := make(Image, 0, codeEnd+uint32(len(b.data)))
	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[0:4], codeEnd)
	binary.LittleEndian.PutUint32(header[4:8], entry)
	img = append(img, header[:]...)
	img = append(img, b.code...)
	img = append(img, b.data...)
	return img
}
