// Package asm implements the two-pass assembler: a line lexer, the
// two-pass driver that resolves labels and emits bytes, and the errors
// the assembler can report. It shares the instruction encoding table in
// package isa with the vm package so the two can never disagree about
// what a byte means.
package asm

import (
	"strings"

	"gvm8/isa"
)

// addressSpace is the total number of addresses a single operand byte can
// reach (program memory is at most 256 bytes; addresses are 0..255).
const addressSpace = 256

// Assembler turns assembly text into byte-code. It holds no state between
// calls to Assemble; each call starts a fresh two-pass compilation.
type Assembler struct{}

// NewAssembler constructs an Assembler. There is currently nothing to
// configure, but the constructor exists so callers don't depend on the
// zero value shape of the struct.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// pass1Result is what pass 1 hands to pass 2: the instruction list in
// source order and the fully resolved label table.
type pass1Result struct {
	instructions []Instruction
	labels       map[string]uint8
}

// Assemble compiles source text into byte-code in two passes: pass 1 lays
// out addresses and resolves labels, pass 2 validates operands and emits
// bytes. No partial byte-code is ever returned on failure.
func (a *Assembler) Assemble(source string) ([]byte, error) {
	lines := strings.Split(source, "\n")

	p1, err := a.pass1(lines)
	if err != nil {
		return nil, err
	}

	return a.pass2(p1.instructions, p1.labels)
}

// pass1 walks the source computing label addresses and collecting
// Instruction records, without yet resolving any operand values. Forward
// references are legal because label addresses are all known before pass 2
// starts.
func (a *Assembler) pass1(lines []string) (pass1Result, error) {
	labels := make(map[string]uint8)
	instructions := make([]Instruction, 0, len(lines))

	currentAddress := 0
	for i, raw := range lines {
		lineNum := i + 1
		lexed, err := lexLine(raw, lineNum)
		if err != nil {
			return pass1Result{}, err
		}

		switch lexed.Kind {
		case LineBlank:
			continue
		case LineLabel:
			if _, dup := labels[lexed.Label]; dup {
				return pass1Result{}, newTokenError(ErrInvalidLabel, lexed.Label, lineNum)
			}
			if currentAddress >= addressSpace {
				return pass1Result{}, newTokenError(ErrInvalidAddress, lexed.Label, lineNum)
			}
			labels[lexed.Label] = uint8(currentAddress)
		case LineInstruction:
			def, ok := isa.ByMnemonic[lexed.Instr.Mnemonic]
			if !ok {
				return pass1Result{}, newTokenError(ErrInvalidInstruction, lexed.Instr.Mnemonic, lineNum)
			}
			currentAddress += def.Size()
			if currentAddress > addressSpace {
				return pass1Result{}, newTokenError(ErrInvalidAddress, lexed.Instr.Mnemonic, lineNum)
			}
			instructions = append(instructions, lexed.Instr)
		}
	}

	return pass1Result{instructions: instructions, labels: labels}, nil
}

// pass2 validates each instruction's operands against the encoding table
// and emits its bytes, resolving jump/call targets against the label table
// built in pass 1.
func (a *Assembler) pass2(instructions []Instruction, labels map[string]uint8) ([]byte, error) {
	out := make([]byte, 0, len(instructions)*3)

	for _, instr := range instructions {
		def := isa.ByMnemonic[instr.Mnemonic] // presence already checked in pass1

		if len(instr.Operands) != len(def.Operands) {
			return nil, newOperandCountError(instr.Mnemonic, len(def.Operands), len(instr.Operands), instr.Line)
		}

		out = append(out, byte(def.Opcode))

		for i, kind := range def.Operands {
			tok := instr.Operands[i]
			b, err := a.resolveOperand(tok, kind, labels, instr.Line)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
	}

	return out, nil
}

// resolveOperand converts one operand token into its encoded byte,
// dispatching on the operand kind the instruction table declares for that
// position.
func (a *Assembler) resolveOperand(tok string, kind isa.OperandKind, labels map[string]uint8, line int) (byte, error) {
	switch kind {
	case isa.OperandReg:
		idx, ok := isRegisterToken(tok)
		if !ok {
			return 0, newTokenError(ErrInvalidRegister, tok, line)
		}
		if idx >= isa.NumRegisters {
			return 0, newTokenError(ErrInvalidRegister, tok, line)
		}
		return byte(idx), nil

	case isa.OperandRegOrAddr:
		// MOV/LDIDX/STIDX ambiguity: a register-shaped token emits its
		// index as a literal byte, not its runtime value.
		if idx, ok := isRegisterToken(tok); ok {
			return byte(idx), nil
		}
		return a.resolveAddressLike(tok, labels, line)

	case isa.OperandAddr:
		return a.resolveAddressLike(tok, labels, line)

	default:
		return 0, newTokenError(ErrSyntaxError, tok, line)
	}
}

// resolveAddressLike handles the "known label, else numeric literal, else error"
// resolution order spec §4.3 specifies for jump/call targets and plain
// address operands.
func (a *Assembler) resolveAddressLike(tok string, labels map[string]uint8, line int) (byte, error) {
	if addr, ok := labels[tok]; ok {
		return addr, nil
	}

	if v, ok := isNumericToken(tok); ok {
		if v < 0 || v > 255 {
			return 0, newTokenError(ErrInvalidValue, tok, line)
		}
		return byte(v), nil
	}

	// Not a known label and not numeric: if it looks like a label
	// reference (a bare identifier) it's undefined; otherwise it's just
	// malformed input.
	if labelRe.MatchString(tok) {
		return 0, newTokenError(ErrUndefinedLabel, tok, line)
	}

	return 0, newTokenError(ErrInvalidValue, tok, line)
}
