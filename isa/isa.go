// Package isa is the canonical instruction encoding shared by the assembler
// and the execution engine. Opcodes, operand layouts, and addressing modes
// live here exactly once so the two collaborators can never drift apart.
package isa

import "fmt"

// Opcode is a single encoded instruction byte.
type Opcode byte

const (
	Inc Opcode = 0x01
	Dec Opcode = 0x02
	Out Opcode = 0x03
	Mov Opcode = 0x04

	Push Opcode = 0x10
	Pop  Opcode = 0x11
	Call Opcode = 0x12
	Ret  Opcode = 0x13

	Load  Opcode = 0x20
	Store Opcode = 0x21
	Ldidx Opcode = 0x22
	Stidx Opcode = 0x23

	Add Opcode = 0x30
	Sub Opcode = 0x31
	Mul Opcode = 0x32
	Div Opcode = 0x33

	Jmp  Opcode = 0x40
	Jeq  Opcode = 0x41
	Jgt  Opcode = 0x42
	Cmp  Opcode = 0x43
	Jne  Opcode = 0x44

	Halt Opcode = 0xFF
)

// OperandKind describes what a single operand byte means, for decoder and
// assembler purposes alike.
type OperandKind int

const (
	// OperandReg is a register index in [0, 8).
	OperandReg OperandKind = iota
	// OperandAddr is a raw address, immediate, or label reference in
	// [0, 256), unambiguous in source (never shaped like a register token).
	OperandAddr
	// OperandRegOrAddr is the MOV/LDIDX/STIDX ambiguity: the token may be
	// shaped like a register (r0..r7) or like an immediate/label, but in
	// both cases the assembler emits the literal byte the token denotes
	// (the register's index, not its runtime contents).
	OperandRegOrAddr
)

// Def is the canonical metadata for one opcode: its mnemonic, its operand
// shape, and its total encoded size (opcode byte plus operands).
type Def struct {
	Mnemonic string
	Opcode   Opcode
	Operands []OperandKind
}

// Size is the number of bytes the instruction occupies, opcode included.
func (d Def) Size() int {
	return 1 + len(d.Operands)
}

// ByMnemonic and ByOpcode are built once in init, both derived from the
// defs slice, which is the single source of truth.
var (
	defs = []Def{
		{"INC", Inc, []OperandKind{OperandReg}},
		{"DEC", Dec, []OperandKind{OperandReg}},
		{"OUT", Out, []OperandKind{OperandReg}},
		{"MOV", Mov, []OperandKind{OperandReg, OperandRegOrAddr}},

		{"PUSH", Push, []OperandKind{OperandReg}},
		{"POP", Pop, []OperandKind{OperandReg}},
		{"CALL", Call, []OperandKind{OperandAddr}},
		{"RET", Ret, nil},

		{"LOAD", Load, []OperandKind{OperandReg, OperandAddr}},
		{"STORE", Store, []OperandKind{OperandReg, OperandAddr}},
		{"LDIDX", Ldidx, []OperandKind{OperandReg, OperandRegOrAddr}},
		{"STIDX", Stidx, []OperandKind{OperandReg, OperandRegOrAddr}},

		{"ADD", Add, []OperandKind{OperandReg, OperandReg}},
		{"SUB", Sub, []OperandKind{OperandReg, OperandReg}},
		{"MUL", Mul, []OperandKind{OperandReg, OperandReg}},
		{"DIV", Div, []OperandKind{OperandReg, OperandReg}},

		{"JMP", Jmp, []OperandKind{OperandAddr}},
		{"JEQ", Jeq, []OperandKind{OperandAddr}},
		{"JGT", Jgt, []OperandKind{OperandAddr}},
		{"CMP", Cmp, []OperandKind{OperandReg, OperandReg}},
		{"JNE", Jne, []OperandKind{OperandAddr}},

		{"HALT", Halt, nil},
	}

	// ByMnemonic maps an upper-cased mnemonic to its Def. HLT is registered
	// as an alias of HALT, per the assembly text format.
	ByMnemonic map[string]Def

	// ByOpcode maps an encoded opcode byte back to its Def.
	ByOpcode map[Opcode]Def
)

func init() {
	ByMnemonic = make(map[string]Def, len(defs)+1)
	ByOpcode = make(map[Opcode]Def, len(defs))

	for _, d := range defs {
		ByMnemonic[d.Mnemonic] = d
		ByOpcode[d.Opcode] = d
	}

	// HLT is accepted as an alias of HALT.
	ByMnemonic["HLT"] = ByMnemonic["HALT"]
}

// NumRegisters is the count of register names (r0..r7) the assembler
// accepts, independent of a CPU's configured NumRegisters.
const NumRegisters = 8

// String renders an opcode back to its canonical mnemonic, used by
// disassembly and by debug tracing. HLT is never returned since it is
// only ever an input alias for HALT.
func (o Opcode) String() string {
	if d, ok := ByOpcode[o]; ok {
		return d.Mnemonic
	}
	return fmt.Sprintf("?%#02x?", byte(o))
}
