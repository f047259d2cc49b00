// Package vm implements the opcode decoder and the CPU execution core:
// fetch/decode/execute loop, registers, flags, memory, and both stacks.
// It shares the instruction encoding in package isa with package asm so
// runtime semantics can never disagree with what was assembled.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"gvm8/isa"
)

// CPU is the full machine state. It exclusively owns its registers,
// memory, flags, stack pointer, and call stack; nothing outside touches
// them except through the methods below.
type CPU struct {
	registers []byte
	pc        int
	memory    []byte
	flags     byte
	sp        int
	callStack []int

	cfg Config
	out *bufio.Writer

	log zerolog.Logger
}

// Flag bits within CPU.flags.
const (
	flagZero    byte = 1 << 0
	flagGreater byte = 1 << 1
)

// NewCPU constructs a CPU from a configuration. out is where OUT writes
// its decimal output; a nil out defaults to os.Stdout.
func NewCPU(cfg Config, out io.Writer) (*CPU, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if out == nil {
		out = os.Stdout
	}

	c := &CPU{
		registers: make([]byte, cfg.NumRegisters),
		pc:        int(cfg.PCStart),
		memory:    make([]byte, cfg.MemorySize),
		sp:        cfg.MemorySize,
		cfg:       cfg,
		out:       bufio.NewWriter(out),
		log:       zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
	if !cfg.Debug {
		c.log = zerolog.Nop()
	}

	return c, nil
}

// LoadProgram copies program bytes into memory starting at address 0. It
// is the only way bytes cross from the assembler into the execution core;
// after this call the two components share no mutable state.
func (c *CPU) LoadProgram(program []byte) error {
	if len(program) > len(c.memory) {
		return newMemoryAccessError(len(program) - 1)
	}
	copy(c.memory, program)
	return nil
}

// Register returns the current value of register i.
func (c *CPU) Register(i int) (byte, error) {
	if i < 0 || i >= len(c.registers) {
		return 0, newRegisterError(i)
	}
	return c.registers[i], nil
}

// Registers returns a defensive copy of every register, most useful for
// tests and the CLI's post-run dump.
func (c *CPU) Registers() []byte {
	out := make([]byte, len(c.registers))
	copy(out, c.registers)
	return out
}

// PC, SP, and Flags expose CPU state for introspection (debugging, tests,
// the CLI's --debug tracer).
func (c *CPU) PC() int       { return c.pc }
func (c *CPU) SP() int       { return c.sp }
func (c *CPU) Flags() byte   { return c.flags }
func (c *CPU) Zero() bool    { return c.flags&flagZero != 0 }
func (c *CPU) Greater() bool { return c.flags&flagGreater != 0 }

// DumpState writes a human-readable snapshot of the machine: the next
// instruction (disassembled with the same decoder the execution core
// uses), the registers, the live data-stack region, and the condition
// flags. Enabled in the CLI by the debug flag.
func (c *CPU) DumpState(w io.Writer) {
	if c.pc < c.cfg.MemorySize {
		op, _, truncated := Decode(c.memory, c.pc)
		if !truncated && op.Known {
			fmt.Fprintf(w, "  next instruction> %d: %s %v\n", c.pc, op.Opcode, op.Operands)
		}
	}
	fmt.Fprintln(w, "  registers>", c.registers)
	fmt.Fprintln(w, "  stack>", c.memory[c.sp:])
	fmt.Fprintf(w, "  flags> zero=%t greater=%t\n", c.Zero(), c.Greater())
}

// stackBottom is the lowest valid stack address: the data stack region
// reserves cfg.StackSize bytes at the top of memory.
func (c *CPU) stackBottom() int {
	return c.cfg.MemorySize - c.cfg.StackSize
}

// Run executes until HALT, a decode truncation at the end of memory
// (treated as an implicit halt), or a fault. It is a terminal operation:
// calling Run again after HALT is allowed but has no defined effect,
// since pc is already at or past the end of memory.
func (c *CPU) Run() error {
	for c.pc < c.cfg.MemorySize {
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step performs one fetch/decode/execute cycle.
func (c *CPU) Step() error {
	if c.pc >= c.cfg.MemorySize {
		return nil
	}

	op, n, truncated := Decode(c.memory, c.pc)
	if truncated {
		// Missing operand bytes at the end of memory: treat as if
		// execution had already halted.
		c.pc = c.cfg.MemorySize
		return nil
	}
	if !op.Known {
		return newOpcodeError(c.memory[c.pc])
	}

	faultPC := c.pc
	c.pc += n

	if c.cfg.Debug {
		c.log.Trace().
			Int("pc", faultPC).
			Str("op", op.Opcode.String()).
			Hex("operands", op.Operands).
			Msg("step")
	}

	if err := c.execute(op); err != nil {
		return err
	}
	return nil
}

// execute dispatches on the decoded opcode. Each case leaves c.pc exactly
// where the fetch already advanced it, except for jumps/calls/ret and
// HALT, which further adjust it themselves.
func (c *CPU) execute(op DecodedOp) error {
	switch op.Opcode {
	case isa.Inc:
		r, err := c.regIndex(op.Operands[0])
		if err != nil {
			return err
		}
		c.registers[r]++
	case isa.Dec:
		r, err := c.regIndex(op.Operands[0])
		if err != nil {
			return err
		}
		c.registers[r]--
	case isa.Out:
		r, err := c.regIndex(op.Operands[0])
		if err != nil {
			return err
		}
		c.writeOut(c.registers[r])
	case isa.Mov:
		d, err := c.regIndex(op.Operands[0])
		if err != nil {
			return err
		}
		// The second operand byte is written literally, whether it was
		// spelled as a register name or an immediate at assemble time:
		// MOV never reads the source register's contents.
		c.registers[d] = op.Operands[1]

	case isa.Push:
		r, err := c.regIndex(op.Operands[0])
		if err != nil {
			return err
		}
		if c.sp-1 < c.stackBottom() {
			return ErrStackOverflow
		}
		c.sp--
		c.memory[c.sp] = c.registers[r]
	case isa.Pop:
		r, err := c.regIndex(op.Operands[0])
		if err != nil {
			return err
		}
		if c.sp >= c.cfg.MemorySize {
			return ErrStackUnderflow
		}
		c.registers[r] = c.memory[c.sp]
		c.sp++

	case isa.Call:
		addr := int(op.Operands[0])
		c.callStack = append(c.callStack, c.pc)
		c.pc = addr
	case isa.Ret:
		if len(c.callStack) == 0 {
			// RET with nothing to return to falls through.
			return nil
		}
		last := len(c.callStack) - 1
		c.pc = c.callStack[last]
		c.callStack = c.callStack[:last]

	case isa.Load:
		r, err := c.regIndex(op.Operands[0])
		if err != nil {
			return err
		}
		addr := int(op.Operands[1])
		if addr >= len(c.memory) {
			return newMemoryAccessError(addr)
		}
		c.registers[r] = c.memory[addr]
	case isa.Store:
		r, err := c.regIndex(op.Operands[0])
		if err != nil {
			return err
		}
		addr := int(op.Operands[1])
		if addr >= len(c.memory) {
			return newMemoryAccessError(addr)
		}
		c.memory[addr] = c.registers[r]

	case isa.Ldidx:
		r, err := c.regIndex(op.Operands[0])
		if err != nil {
			return err
		}
		base := int(op.Operands[1])
		addr := base + int(c.registers[1])
		if addr >= len(c.memory) {
			return newMemoryAccessError(addr)
		}
		c.registers[r] = c.memory[addr]
	case isa.Stidx:
		r, err := c.regIndex(op.Operands[0])
		if err != nil {
			return err
		}
		base := int(op.Operands[1])
		addr := base + int(c.registers[1])
		if addr >= len(c.memory) {
			return newMemoryAccessError(addr)
		}
		c.memory[addr] = c.registers[r]

	case isa.Add, isa.Sub, isa.Mul, isa.Div:
		return c.arithmetic(op)

	case isa.Jmp:
		c.pc = int(op.Operands[0])
	case isa.Jeq:
		if c.Zero() {
			c.pc = int(op.Operands[0])
		}
	case isa.Jgt:
		if c.Greater() {
			c.pc = int(op.Operands[0])
		}
	case isa.Jne:
		if !c.Zero() {
			c.pc = int(op.Operands[0])
		}
	case isa.Cmp:
		a, err := c.regIndex(op.Operands[0])
		if err != nil {
			return err
		}
		b, err := c.regIndex(op.Operands[1])
		if err != nil {
			return err
		}
		c.flags = 0
		if c.registers[a] == c.registers[b] {
			c.flags |= flagZero
		}
		if c.registers[a] > c.registers[b] {
			c.flags |= flagGreater
		}

	case isa.Halt:
		c.pc = c.cfg.MemorySize

	default:
		return newOpcodeError(byte(op.Opcode))
	}

	return nil
}

// regIndex validates a register-index operand byte against the CPU's
// configured register count.
func (c *CPU) regIndex(b byte) (int, error) {
	idx := int(b)
	if idx < 0 || idx >= len(c.registers) {
		return 0, newRegisterError(idx)
	}
	return idx, nil
}

// arithmetic implements ADD/SUB/MUL/DIV: modular 8-bit wrap, with DIV by
// zero a fault that leaves the destination register untouched and aborts
// Run.
func (c *CPU) arithmetic(op DecodedOp) error {
	d, err := c.regIndex(op.Operands[0])
	if err != nil {
		return err
	}
	s, err := c.regIndex(op.Operands[1])
	if err != nil {
		return err
	}

	x, y := c.registers[d], c.registers[s]
	switch op.Opcode {
	case isa.Add:
		c.registers[d] = x + y
	case isa.Sub:
		c.registers[d] = x - y
	case isa.Mul:
		c.registers[d] = x * y
	case isa.Div:
		if y == 0 {
			return ErrDivisionByZero
		}
		c.registers[d] = x / y
	}
	return nil
}

// writeOut writes a register's value to the configured output stream.
// Debug mode is meant for human-legible step tracing, so OUT gets a
// trailing newline there; the non-debug path emits bare space-separated
// decimals.
func (c *CPU) writeOut(v byte) {
	if c.cfg.Debug {
		fmt.Fprintf(c.out, "%d\n", v)
	} else {
		fmt.Fprintf(c.out, "%d ", v)
	}
	c.out.Flush()
}
