// Package vm - debugger support, adapted from the teacher's
// pkg/vm/debugger.go (breakpoint set, step mode, interactive prompt) and
// KTStephano-GVM's PrintCurrentState dump, retargeted at this VM's
// ip/stack/frame shape instead of smog's instruction-stream/globals/call
// stack.
package vm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kristofer/embervm/pkg/bytecode"
)

// Debugger provides interactive debugging over a running VM: breakpoints
// keyed by code-section byte offset, an optional step mode that pauses
// after every instruction, and a REPL-style prompt for inspecting stack,
// locals, and call frames.
type Debugger struct {
	vm          *VM
	breakpoints map[uint32]bool
	stepMode    bool
	enabled     bool
}

// NewDebugger creates a debugger bound to vm, disabled by default.
func NewDebugger(vm *VM) *Debugger {
	return &Debugger{vm: vm, breakpoints: make(map[uint32]bool)}
}

func (d *Debugger) Enable()  { d.enabled = true }
func (d *Debugger) Disable() { d.enabled = false }

// SetStepMode toggles pause-after-every-instruction behavior.
func (d *Debugger) SetStepMode(enabled bool) { d.stepMode = enabled }

// AddBreakpoint pauses execution before the instruction at code offset ip.
func (d *Debugger) AddBreakpoint(ip uint32) { d.breakpoints[ip] = true }

// RemoveBreakpoint clears a previously set breakpoint.
func (d *Debugger) RemoveBreakpoint(ip uint32) { delete(d.breakpoints, ip) }

// ClearBreakpoints removes every breakpoint.
func (d *Debugger) ClearBreakpoints() { d.breakpoints = make(map[uint32]bool) }

// ShouldPause reports whether execution should halt before the instruction
// at ip: either step mode is on, or ip carries a breakpoint.
func (d *Debugger) ShouldPause(ip uint32) bool {
	if !d.enabled {
		return false
	}
	if d.stepMode {
		return true
	}
	return d.breakpoints[ip]
}

func (d *Debugger) showCurrentInstruction() {
	code := d.vm.img.Code()
	if int(d.vm.ip) >= len(code) {
		fmt.Println("no current instruction (at end of code)")
		return
	}
	fmt.Printf("  %6d: %s\n", d.vm.ip, bytecode.Opcode(code[d.vm.ip]))
}

func (d *Debugger) showStack() {
	fmt.Println("Stack (top to bottom):")
	if len(d.vm.stack) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := len(d.vm.stack) - 1; i >= 0; i-- {
		fmt.Printf("  [%d] %s\n", i, d.vm.stack[i].String())
	}
}

func (d *Debugger) showLocals() {
	fmt.Println("Locals (current frame):")
	if d.vm.fp >= len(d.vm.stack) {
		fmt.Println("  (none)")
		return
	}
	for i := d.vm.fp; i < len(d.vm.stack); i++ {
		fmt.Printf("  [%d] %s\n", i-d.vm.fp, d.vm.stack[i].String())
	}
}

func (d *Debugger) showCallStack() {
	fmt.Println("Call stack (innermost first):")
	if d.vm.frameCount == 0 {
		fmt.Println("  (top level)")
		return
	}
	for i := d.vm.frameCount - 1; i >= 0; i-- {
		f := d.vm.frames[i]
		fmt.Printf("  frame %d: return_ip=%d saved_fp=%d\n", i, f.returnIP, f.savedFP)
	}
}

// InteractivePrompt pauses at the current instruction and reads commands
// from stdin until one resumes execution. It returns false if the user
// asked to abort the run.
func (d *Debugger) InteractivePrompt() (continueExecution bool) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("\n=== paused ===")
	d.showCurrentInstruction()

	for {
		fmt.Print("debug> ")
		if !scanner.Scan() {
			return false
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		switch parts[0] {
		case "help", "h", "?":
			d.printHelp()
		case "continue", "c":
			d.SetStepMode(false)
			return true
		case "step", "s":
			d.SetStepMode(true)
			return true
		case "stack", "st":
			d.showStack()
		case "locals", "l":
			d.showLocals()
		case "callstack", "cs":
			d.showCallStack()
		case "instruction", "i":
			d.showCurrentInstruction()
		case "break", "b":
			if len(parts) < 2 {
				fmt.Println("usage: break <ip>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("invalid ip")
				continue
			}
			d.AddBreakpoint(uint32(ip))
			fmt.Printf("breakpoint set at %d\n", ip)
		case "delete", "d":
			if len(parts) < 2 {
				fmt.Println("usage: delete <ip>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("invalid ip")
				continue
			}
			d.RemoveBreakpoint(uint32(ip))
			fmt.Printf("breakpoint removed at %d\n", ip)
		case "quit", "q":
			return false
		default:
			fmt.Printf("unknown command %q (type 'help')\n", parts[0])
		}
	}
}

func (d *Debugger) printHelp() {
	fmt.Println("Debugger commands:")
	fmt.Println("  help, h, ?        show this help")
	fmt.Println("  continue, c       resume execution")
	fmt.Println("  step, s           resume, pausing after every instruction")
	fmt.Println("  stack, st         show value stack")
	fmt.Println("  locals, l         show current frame's locals")
	fmt.Println("  callstack, cs     show call frames")
	fmt.Println("  instruction, i    show the instruction about to run")
	fmt.Println("  break <ip>, b     set a breakpoint at code offset ip")
	fmt.Println("  delete <ip>, d    remove a breakpoint")
	fmt.Println("  quit, q           abort execution")
}
