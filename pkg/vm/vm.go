// Package vm implements the stack-based bytecode virtual machine described
// in spec §4.3: a fixed-capacity call-frame array, locals addressed
// relative to a frame pointer, and a central decode loop dispatching the
// opcode table in pkg/bytecode.
//
// Architecture (adapted from the teacher's pkg/vm/vm.go, whose stack/sp/
// locals/constants layout this keeps, restructured around a byte-offset ip
// into a packed Image rather than a struct-instruction array, and around
// frame-pointer-relative locals rather than a flat locals array shared by
// every call):
//
//	Image (code + data) -> VM.Run() -> Value | RuntimeError
//
// Execution model:
//
// The VM executes instructions sequentially using an instruction pointer
// (ip) into the image's code section. Each instruction manipulates the
// value stack, a local slot, or control flow (ip itself). Locals for the
// currently executing call live at stack[fp+0 .. fp+N); CALL computes a
// fresh fp for the callee from the stack depth at the call site, and
// RETURN truncates the stack back down to that fp before pushing the
// result, per spec §4.3 "Call/return discipline".
package vm

import (
	"github.com/rs/zerolog"

	"github.com/kristofer/embervm/pkg/bytecode"
	"github.com/kristofer/embervm/pkg/host"
	"github.com/kristofer/embervm/pkg/value"
)

// Config bundles the bytecode-level compile-time constants (which must
// match whatever produced the Image, per spec §9) with VM-only runtime
// options.
type Config struct {
	bytecode.Config
	Logger zerolog.Logger
}

// DefaultConfig returns spec §6's defaults with a disabled (no-op) logger.
func DefaultConfig() Config {
	return Config{Config: bytecode.Config{
		MaxLocals:                 256,
		MaxCallFrames:              255,
		InitialCodeSize:            512,
		InitialDataSize:            512,
		DeduplicateStringLiterals:  true,
		EscapeByDefault:            false,
		Debug:                      bytecode.DebugNone,
	}, Logger: zerolog.Nop()}
}

type callFrame struct {
	returnIP     uint32
	savedFP      int
}

// VM is a stack machine attached to one compiled Image (spec §6
// "Vm::new(bytecode, arena) -> Vm"). It is not safe for concurrent Run
// calls (spec §5); construct a fresh VM per render.
type VM struct {
	cfg Config
	img bytecode.Image
	host host.Host

	stack []value.Value
	fp    int

	frames     []callFrame
	frameCount int

	arena *Arena

	ip uint32

	// debugger is optional interactive debugging support (see
	// debugger.go); nil unless EnableDebugger was called.
	debugger *Debugger

	// Out receives PRINT output — the host-supplied writer spec §6
	// describes ("the writer is not part of the core VM beyond the
	// formatter in §4.1"). embervm uses the same writer for both rendered
	// template text and PRINT diagnostics, since the core VM has no
	// second output channel of its own.
	Out writer
}

// writer is the minimal sink PRINT writes into.
type writer interface {
	Write(p []byte) (int, error)
}

// New attaches a VM to img using cfg and arena, with h as the host
// callout surface (host.Nop{} if the embedder offers none).
func New(img bytecode.Image, cfg Config, arena *Arena, h host.Host, out writer) *VM {
	if h == nil {
		h = host.Nop{}
	}
	return &VM{
		cfg:    cfg,
		img:    img,
		host:   h,
		arena:  arena,
		frames: make([]callFrame, cfg.MaxCallFrames),
		Out:    out,
	}
}

// StackDepth reports the current value-stack depth (debugger/test use).
func (vm *VM) StackDepth() int { return len(vm.stack) }

// FrameCount reports the current call depth (0 = executing the main
// script), exposed for tests verifying spec §8 invariant 5.
func (vm *VM) FrameCount() int { return vm.frameCount }

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) top() value.Value { return vm.stack[len(vm.stack)-1] }

func (vm *VM) local(slot uint32) value.Value { return vm.stack[vm.fp+int(slot)] }

func (vm *VM) setLocal(slot uint32, v value.Value) { vm.stack[vm.fp+int(slot)] = v }

func (vm *VM) frameInfo() []FrameInfo {
	infos := make([]FrameInfo, 0, vm.frameCount+1)
	infos = append(infos, FrameInfo{IP: vm.ip, FramePointer: vm.fp})
	for i := vm.frameCount - 1; i >= 0; i-- {
		infos = append(infos, FrameInfo{IP: vm.frames[i].returnIP, FramePointer: vm.frames[i].savedFP})
	}
	return infos
}

func (vm *VM) fail(kind ErrKind, format string, args ...interface{}) *RuntimeError {
	err := newError(kind, format, args...)
	err.Frames = vm.frameInfo()
	return err
}

// Run executes img from its entry point (spec §6 "Vm::run() -> Value |
// RuntimeError") and returns the value produced by the top-level RETURN, or
// the first typed error encountered. No partial-state recovery is
// attempted: any typed error terminates the run immediately (spec §4.3
// "State machine").
func (vm *VM) Run() (value.Value, error) {
	vm.ip = vm.img.EntryOffset()
	code := vm.img.Code()

	for {
		if vm.cfg.Debug == bytecode.DebugFull {
			vm.trace(code)
		}

		if vm.debugger != nil && vm.debugger.ShouldPause(vm.ip) {
			if !vm.debugger.InteractivePrompt() {
				return value.Value{}, vm.fail(TypeError, "execution aborted from debugger")
			}
		}

		op := bytecode.Opcode(code[vm.ip])
		vm.ip++

		result, err := vm.step(op, code)
		if err != nil {
			return value.Value{}, err
		}
		if result.done {
			return result.value, nil
		}
	}
}

// stepResult communicates whether the decode loop should keep running or
// the program has returned from its top-level frame.
type stepResult struct {
	done  bool
	value value.Value
}

// EnableDebugger attaches and enables an interactive Debugger on vm,
// creating it on first use (teacher's VM.EnableDebugger/GetDebugger
// pattern).
func (vm *VM) EnableDebugger() *Debugger {
	if vm.debugger == nil {
		vm.debugger = NewDebugger(vm)
	}
	vm.debugger.Enable()
	return vm.debugger
}

// GetDebugger returns vm's debugger, or nil if EnableDebugger was never
// called.
func (vm *VM) GetDebugger() *Debugger { return vm.debugger }

func (vm *VM) trace(code []byte) {
	op := bytecode.Opcode(code[vm.ip])
	vm.cfg.Logger.Debug().
		Uint32("ip", vm.ip).
		Str("op", op.String()).
		Int("stack_depth", len(vm.stack)).
		Int("frame", vm.frameCount).
		Msg("embervm: step")
}
