package vm

import "gvm8/isa"

// DecodedOp is what Decode hands back: the opcode and its raw operand
// bytes, not yet interpreted (register index vs. address is up to the
// executor, which already knows the opcode's shape from package isa).
type DecodedOp struct {
	Opcode   isa.Opcode
	Known    bool
	Operands []byte
}

// Decode is a pure function from (memory, pc) to a decoded operation
// plus the number of bytes it consumed. It never mutates memory and never
// reads past it.
//
// Two outcomes short-circuit the normal decode:
//   - an unrecognized opcode byte yields a DecodedOp with Known == false;
//     the caller (CPU.Step) turns this into ErrInvalidOpcode.
//   - required operand bytes that would run past the end of memory yield
//     truncated == true; callers treat this as if execution had already
//     halted, not as a fault.
func Decode(memory []byte, pc int) (op DecodedOp, consumed int, truncated bool) {
	if pc < 0 || pc >= len(memory) {
		return DecodedOp{}, 0, true
	}

	b := memory[pc]
	def, known := isa.ByOpcode[isa.Opcode(b)]
	if !known {
		return DecodedOp{Opcode: isa.Opcode(b), Known: false}, 1, false
	}

	size := def.Size()
	if pc+size > len(memory) {
		return DecodedOp{}, 0, true
	}

	var operands []byte
	if n := size - 1; n > 0 {
		operands = memory[pc+1 : pc+size]
	}

	return DecodedOp{Opcode: def.Opcode, Known: true, Operands: operands}, size, false
}
