// Package render offers the one-shot convenience entry point a host
// embedding embervm most often wants: compile image in hand, run it once,
// get the rendered output and/or return value. Nothing here is reachable
// from pkg/vm itself — it is purely a thin wrapper a caller may skip in
// favor of constructing a vm.VM directly for finer control (streaming
// output across multiple partial renders, reusing an Arena, attaching a
// debugger).
package render

import (
	"bytes"
	"io"

	"github.com/kristofer/embervm/pkg/bytecode"
	"github.com/kristofer/embervm/pkg/host"
	"github.com/kristofer/embervm/pkg/value"
	"github.com/kristofer/embervm/pkg/vm"
)

// Options configures a single Render call.
type Options struct {
	// Config carries the VM/bytecode compile-time constants; zero value
	// falls back to vm.DefaultConfig().
	Config vm.Config
	// ArenaLimit bounds heap-object allocation for this run (0 = unlimited).
	ArenaLimit int
	// Host supplies call()/@include extensions; nil uses host.Nop{}.
	Host host.Host
}

// Render runs img to completion, writing any PRINT output to w (or, if w is
// nil, discarding it) and returning the value produced by the top-level
// RETURN.
func Render(img bytecode.Image, w io.Writer, opts Options) (value.Value, error) {
	if err := img.Validate(); err != nil {
		return value.Value{}, err
	}
	if w == nil {
		w = io.Discard
	}
	cfg := opts.Config
	if cfg.MaxLocals == 0 {
		cfg = vm.DefaultConfig()
	}
	arena := vm.NewArena(opts.ArenaLimit)
	machine := vm.New(img, cfg, arena, opts.Host, w)
	return machine.Run()
}

// RenderToString is Render with its PRINT output captured and returned as a
// string, for callers (tests, CLIs) that don't already hold a writer.
func RenderToString(img bytecode.Image, opts Options) (string, value.Value, error) {
	var buf bytes.Buffer
	result, err := Render(img, &buf, opts)
	return buf.String(), result, err
}
