// Command gvm8 is the driver around the assembler and execution core: it
// loads a source file, assembles it, runs it, and prints register state
// on exit.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gvm8/asm"
	"gvm8/vm"
)

var (
	debugFlag bool
	memFlag   = 256
	stackFlag = 64
)

// demoProgram is the embedded demo: a CALL/RET round trip.
const demoProgram = `
	MOV r0, 1
	CALL sub
	MOV r2, 3
	HALT
sub:
	MOV r1, 2
	RET
`

func main() {
	root := &cobra.Command{
		Use:           "gvm8",
		Short:         "An 8-bit register VM and its two-pass assembler",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debugFlag {
				zerolog.SetGlobalLevel(zerolog.TraceLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&debugFlag, "debug", "v", false, "enable step tracing and verbose OUT formatting")
	root.PersistentFlags().IntVar(&memFlag, "mem", 256, "total memory size in bytes")
	root.PersistentFlags().IntVar(&stackFlag, "stack", 64, "bytes reserved for the data stack")

	root.AddCommand(runCmd(), asmCmd(), demoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func config() vm.Config {
	cfg := vm.DefaultConfig()
	cfg.MemorySize = memFlag
	cfg.StackSize = stackFlag
	cfg.Debug = debugFlag
	return cfg
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Assemble and execute a program, printing register state on exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return runSource(string(src))
		},
	}
}

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the embedded demo program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSource(demoProgram)
		},
	}
}

func runSource(src string) error {
	a := asm.NewAssembler()
	program, err := a.Assemble(src)
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}

	cpu, err := vm.NewCPU(config(), os.Stdout)
	if err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	if err := cpu.LoadProgram(program); err != nil {
		return fmt.Errorf("load: %w", err)
	}

	runErr := cpu.Run()

	if debugFlag {
		cpu.DumpState(os.Stderr)
	}
	for i, r := range cpu.Registers() {
		fmt.Printf("r%d=%d\n", i, r)
	}

	if runErr != nil {
		return fmt.Errorf("run: %w", runErr)
	}
	return nil
}

func asmCmd() *cobra.Command {
	var dump bool
	var outPath string

	cmd := &cobra.Command{
		Use:   "asm <file>",
		Short: "Assemble a program to byte-code without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			a := asm.NewAssembler()
			program, err := a.Assemble(string(src))
			if err != nil {
				return fmt.Errorf("assemble: %w", err)
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, program, 0o644); err != nil {
					return err
				}
			}

			if dump {
				dumpDisassembly(program)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "print a colorized disassembly of the emitted byte-code")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write raw byte-code to this path")
	return cmd
}

// dumpDisassembly walks the emitted byte-code with the same decoder the
// execution core uses, so what the CLI prints can never drift from what
// the CPU would actually run.
func dumpDisassembly(program []byte) {
	mnemonic := color.New(color.FgCyan, color.Bold)
	operand := color.New(color.FgYellow)

	pc := 0
	for pc < len(program) {
		op, n, truncated := vm.Decode(program, pc)
		if truncated {
			operand.Printf("  %3d: <truncated>\n", pc)
			return
		}
		if !op.Known {
			operand.Printf("  %3d: <unknown opcode %#02x>\n", pc, program[pc])
			pc++
			continue
		}

		mnemonic.Printf("  %3d: %-6s", pc, op.Opcode.String())
		for _, b := range op.Operands {
			operand.Printf(" %d", b)
		}
		fmt.Println()
		pc += n
	}
}
