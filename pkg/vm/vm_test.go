package vm

import (
	"bytes"
	"testing"

	"github.com/kristofer/embervm/pkg/bytecode"
	"github.com/kristofer/embervm/pkg/value"
)

func run(t *testing.T, b *bytecode.Builder) (value.Value, []byte, error) {
	t.Helper()
	img := b.Finish()
	if err := img.Validate(); err != nil {
		t.Fatalf("invalid image: %v", err)
	}
	var out bytes.Buffer
	machine := New(img, DefaultConfig(), NewArena(0), nil, &out)
	result, err := machine.Run()
	return result, out.Bytes(), err
}

func TestIntegerArithmetic(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantI64(10)
	b.EmitConstantI64(3)
	b.EmitSubtract()
	b.EmitReturn()

	result, _, err := run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.AsInt() != 7 {
		t.Errorf("result = %d, want 7", result.AsInt())
	}
}

func TestIntDivideByZeroIsTypeError(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantI64(1)
	b.EmitConstantI64(0)
	b.EmitDivide()
	b.EmitReturn()

	_, _, err := run(t, b)
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T (%v)", err, err)
	}
	if rerr.Kind != TypeError {
		t.Errorf("Kind = %v, want TypeError", rerr.Kind)
	}
}

func TestFloatDivideByZeroIsInf(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantF64(1.0)
	b.EmitConstantF64(0.0)
	b.EmitDivide()
	b.EmitReturn()

	result, _, err := run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.String() != "inf" {
		t.Errorf("result = %s, want inf", result.String())
	}
}

func TestModulusFloorsTowardDivisorSign(t *testing.T) {
	tests := []struct{ a, b, want int64 }{
		{5, 3, 2},
		{-5, 3, 1},
		{5, -3, -1},
		{-5, -3, -2},
	}
	for _, tt := range tests {
		b := bytecode.NewBuilder(bytecode.DefaultConfig())
		b.EmitConstantI64(tt.a)
		b.EmitConstantI64(tt.b)
		b.EmitModulus()
		b.EmitReturn()

		result, _, err := run(t, b)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.AsInt() != tt.want {
			t.Errorf("%d mod %d = %d, want %d", tt.a, tt.b, result.AsInt(), tt.want)
		}
	}
}

func TestAddOnStringsIsTypeError(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantString("foo")
	b.EmitConstantString("bar")
	b.EmitAdd()
	b.EmitReturn()

	_, _, err := run(t, b)
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T (%v)", err, err)
	}
	if rerr.Kind != TypeError {
		t.Errorf("Kind = %v, want TypeError", rerr.Kind)
	}
}

func TestModulusOnFloatIsTypeError(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantF64(5.5)
	b.EmitConstantF64(2.0)
	b.EmitModulus()
	b.EmitReturn()

	_, _, err := run(t, b)
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T (%v)", err, err)
	}
	if rerr.Kind != TypeError {
		t.Errorf("Kind = %v, want TypeError", rerr.Kind)
	}
}

func TestModulusOnMixedIntFloatIsTypeError(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantI64(5)
	b.EmitConstantF64(2.0)
	b.EmitModulus()
	b.EmitReturn()

	_, _, err := run(t, b)
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T (%v)", err, err)
	}
	if rerr.Kind != TypeError {
		t.Errorf("Kind = %v, want TypeError", rerr.Kind)
	}
}

func TestLocalsGetSetIncr(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantNull() // reserves local slot 0
	b.EmitConstantI64(0)
	b.EmitSetLocal(0)
	b.EmitPop()
	b.EmitIncr(5, 0)
	b.EmitIncr(0, 0) // delta 0 means -1
	b.EmitGetLocal(0)
	b.EmitReturn()

	result, _, err := run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.AsInt() != 4 {
		t.Errorf("result = %d, want 4", result.AsInt())
	}
}

func TestJumpIfFalseDoesNotPop(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	skip := b.NewLabel()
	b.EmitConstantBool(false)
	b.EmitJumpIfFalse(skip)
	b.EmitConstantI64(999) // unreachable
	b.Place(skip)
	// the Bool(false) condition is still on the stack; the compiler is
	// responsible for popping it where needed (spec semantics), so an
	// explicit POP must run before whatever uses the stack next.
	b.EmitPop()
	b.EmitConstantI64(1)
	b.EmitReturn()

	result, _, err := run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.AsInt() != 1 {
		t.Errorf("result = %d, want 1", result.AsInt())
	}
}

func TestCallAndReturnRestoresCallerFrame(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())

	skip := b.NewLabel()
	b.EmitConstantI64(4)
	b.EmitJump(skip)

	square := b.Here()
	b.EmitGetLocal(0)
	b.EmitGetLocal(0)
	b.EmitMultiply()
	b.EmitReturn()
	desc := b.DefineFunction(1, square)

	b.Place(skip)
	b.EmitCall(desc)
	b.EmitReturn()

	result, _, err := run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.AsInt() != 16 {
		t.Errorf("result = %d, want 16", result.AsInt())
	}
}

func TestNestedCallsRestoreFrameCountToZero(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())

	skip := b.NewLabel()
	b.EmitConstantI64(3)
	b.EmitJump(skip)

	// inc(n) = addOne(n) ; addOne(n) = n + 1
	addOneBody := b.Here()
	b.EmitGetLocal(0)
	b.EmitConstantI64(1)
	b.EmitAdd()
	b.EmitReturn()
	addOneDesc := b.DefineFunction(1, addOneBody)

	incBody := b.Here()
	b.EmitGetLocal(0)
	b.EmitCall(addOneDesc)
	b.EmitReturn()
	incDesc := b.DefineFunction(1, incBody)

	b.Place(skip)
	b.EmitCall(incDesc)
	b.EmitReturn()

	img := b.Finish()
	machine := New(img, DefaultConfig(), NewArena(0), nil, nil)
	result, err := machine.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.AsInt() != 4 {
		t.Errorf("result = %d, want 4", result.AsInt())
	}
	if machine.FrameCount() != 0 {
		t.Errorf("FrameCount() after top-level return = %d, want 0", machine.FrameCount())
	}
}

func TestNegateNumbers(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantI64(5)
	b.EmitNegate()
	b.EmitReturn()

	result, _, err := run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.AsInt() != -5 {
		t.Errorf("result = %d, want -5", result.AsInt())
	}
}

func TestNegateRejectsNonNumber(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantBool(true)
	b.EmitNegate()
	b.EmitReturn()

	_, _, err := run(t, b)
	rerr, ok := err.(*RuntimeError)
	if !ok || rerr.Kind != TypeError {
		t.Fatalf("expected TypeError, got %v", err)
	}
}

func TestNot(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantBool(false)
	b.EmitNot()
	b.EmitReturn()

	result, _, err := run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.AsBool() {
		t.Errorf("NOT false = %v, want true", result.AsBool())
	}
}

func TestEqualAndCompareOpcodes(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantI64(2)
	b.EmitConstantI64(2)
	b.EmitEqual()
	b.EmitReturn()

	result, _, err := run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.AsBool() {
		t.Errorf("EQUAL(2,2) = %v, want true", result.AsBool())
	}

	b = bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantI64(3)
	b.EmitConstantI64(2)
	b.EmitGreater()
	b.EmitReturn()

	result, _, err = run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.AsBool() {
		t.Errorf("GREATER(3,2) = %v, want true", result.AsBool())
	}

	b = bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantI64(1)
	b.EmitConstantI64(2)
	b.EmitLesser()
	b.EmitReturn()

	result, _, err = run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.AsBool() {
		t.Errorf("LESSER(1,2) = %v, want true", result.AsBool())
	}
}

func TestDebugSidecarIsSkipped(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitDebug([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	b.EmitConstantI64(1)
	b.EmitReturn()

	result, _, err := run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.AsInt() != 1 {
		t.Errorf("result = %d, want 1 (DEBUG sidecar must not affect execution)", result.AsInt())
	}
}

func TestConstantNull(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantNull()
	b.EmitReturn()

	result, _, err := run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.IsNull() {
		t.Errorf("result = %v, want null", result)
	}
}

func TestIndexGetNegativeIndices(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantI64(1)
	b.EmitConstantI64(2)
	b.EmitConstantI64(3)
	b.EmitInitializeArray(3)
	b.EmitConstantI64(-1)
	b.EmitIndexGet()
	b.EmitReturn()

	result, _, err := run(t, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.AsInt() != 3 {
		t.Errorf("list[-1] = %d, want 3", result.AsInt())
	}
}

func TestIndexGetOutOfRange(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantI64(1)
	b.EmitInitializeArray(1)
	b.EmitConstantI64(-2)
	b.EmitIndexGet()
	b.EmitReturn()

	_, _, err := run(t, b)
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T (%v)", err, err)
	}
	if rerr.Kind != OutOfRange {
		t.Errorf("Kind = %v, want OutOfRange", rerr.Kind)
	}
}

func TestIndexGetNonIntIndexIsTypeError(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantI64(1)
	b.EmitInitializeArray(1)
	b.EmitConstantString("nope")
	b.EmitIndexGet()
	b.EmitReturn()

	_, _, err := run(t, b)
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T (%v)", err, err)
	}
	if rerr.Kind != TypeError {
		t.Errorf("Kind = %v, want TypeError", rerr.Kind)
	}
}

func TestIndexGetOnBuffer(t *testing.T) {
	img := bytecode.NewBuilder(bytecode.DefaultConfig()).Finish()
	machine := New(img, DefaultConfig(), NewArena(0), nil, nil)

	obj, err := machine.arena.NewBuffer([]byte("hello"))
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	machine.push(value.Ref(obj))
	machine.push(value.Int(-1))
	if err := machine.execIndexGet(); err != nil {
		t.Fatalf("execIndexGet() error = %v", err)
	}
	got := machine.pop()
	if got.Kind() != value.KindStr || string(got.AsBytes()) != "o" {
		t.Errorf("buffer[-1] = %v, want \"o\"", got)
	}
}

func TestPrintWritesEscapedOutput(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantString("<b>")
	b.EmitPrint()
	b.EmitConstantI64(0)
	b.EmitReturn()

	cfg := DefaultConfig()
	cfg.EscapeByDefault = true
	img := b.Finish()
	var out bytes.Buffer
	machine := New(img, cfg, NewArena(0), nil, &out)
	if _, err := machine.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.String() != "&lt;b&gt;" {
		t.Errorf("PRINT output = %q, want &lt;b&gt;", out.String())
	}
}

func TestCallStackOverflow(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())

	skip := b.NewLabel()
	b.EmitJump(skip)

	recurse := b.Here()
	self := b.DefineFunction(0, recurse)
	b.EmitConstantI64(0) // placeholder arg slot isn't used (arity 0)
	b.EmitPop()
	b.EmitCall(self)
	b.EmitReturn()

	b.Place(skip)
	b.EmitCall(self)
	b.EmitReturn()

	cfg := DefaultConfig()
	cfg.MaxCallFrames = 4
	img := b.Finish()
	machine := New(img, cfg, NewArena(0), nil, nil)
	_, err := machine.Run()

	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T (%v)", err, err)
	}
	if rerr.Kind != StackOverflow {
		t.Errorf("Kind = %v, want StackOverflow", rerr.Kind)
	}
}

func TestArenaExhaustionIsOutOfMemory(t *testing.T) {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())
	b.EmitConstantI64(1)
	b.EmitInitializeArray(1)
	b.EmitPop()
	b.EmitConstantI64(2)
	b.EmitInitializeArray(1)
	b.EmitReturn()

	img := b.Finish()
	machine := New(img, DefaultConfig(), NewArena(1), nil, nil)
	_, err := machine.Run()

	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T (%v)", err, err)
	}
	if rerr.Kind != OutOfMemory {
		t.Errorf("Kind = %v, want OutOfMemory", rerr.Kind)
	}
}
