// Command embervm loads and runs compiled bytecode images, disassembles
// them, and demonstrates the runtime with a small built-in program. It
// replaces the teacher's hand-rolled os.Args switch (cmd/smog/main.go) with
// a cobra command tree; there is no parser/compiler here (see DESIGN.md), so
// unlike smog there is no repl or compile subcommand — only operations a
// bare Image and a VM can perform.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kristofer/embervm/pkg/bytecode"
	"github.com/kristofer/embervm/pkg/host"
	"github.com/kristofer/embervm/pkg/render"
	"github.com/kristofer/embervm/pkg/vm"
)

var (
	debugFlag bool
	traceFlag bool
)

func main() {
	root := &cobra.Command{
		Use:   "embervm",
		Short: "embervm runs and inspects compiled embervm bytecode images",
	}
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable the interactive debugger")
	root.PersistentFlags().BoolVar(&traceFlag, "trace", false, "log every instruction executed")

	root.AddCommand(runCmd(), disasmCmd(), demoCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.bc>",
		Short: "execute a compiled bytecode image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			cfg := vmConfig()

			machine := vm.New(img, cfg, vm.NewArena(0), host.Nop{}, os.Stdout)
			if debugFlag {
				machine.EnableDebugger().SetStepMode(true)
			}
			result, err := machine.Run()
			if err != nil {
				fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "\n=> %s\n", result.String())
			return nil
		},
	}
}

func disasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file.bc>",
		Short: "print a human-readable listing of a bytecode image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			return bytecode.Disassemble(os.Stdout, img, bytecode.DefaultConfig())
		},
	}
}

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "assemble and run a small built-in program",
		RunE: func(cmd *cobra.Command, args []string) error {
			img := buildDemoImage()
			out, result, err := render.RenderToString(img, render.Options{Config: vmConfig()})
			if err != nil {
				return err
			}
			fmt.Print(out)
			fmt.Fprintf(os.Stderr, "\n=> %s\n", result.String())
			return nil
		},
	}
}

func vmConfig() vm.Config {
	cfg := vm.DefaultConfig()
	if traceFlag {
		cfg.Debug = bytecode.DebugFull
		cfg.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return cfg
}

func loadImage(path string) (bytecode.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	img := bytecode.Image(data)
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// buildDemoImage assembles a tiny program by hand: it calls square(6),
// prints the result, builds a list literal, and returns its last element
// via a negative INDEX_GET. It exists to exercise Builder/Image/VM end to
// end without a front-end compiler, matching the scope this repo actually
// implements.
func buildDemoImage() bytecode.Image {
	b := bytecode.NewBuilder(bytecode.DefaultConfig())

	skip := b.NewLabel()

	// main: CALL square(6), PRINT, build [10, 20, 30], RETURN list[-1].
	b.SetEntry(b.Here())
	b.EmitConstantI64(6)
	b.EmitJump(skip) // jump over the function body placed inline below

	squareBody := b.Here()
	{
		// square(n) { locals[0] = n }
		b.EmitGetLocal(0)
		b.EmitGetLocal(0)
		b.EmitMultiply()
		b.EmitReturn()
	}
	squareOffset := b.DefineFunction(1, squareBody)

	b.Place(skip)
	b.EmitConstantString("embervm demo: 6 squared is ")
	b.EmitPrint()
	b.EmitCall(squareOffset)
	b.EmitPrint()
	b.EmitConstantI64(10)
	b.EmitConstantI64(20)
	b.EmitConstantI64(30)
	b.EmitInitializeArray(3)
	b.EmitConstantI64(-1)
	b.EmitIndexGet()
	b.EmitReturn()

	return b.Finish()
}
