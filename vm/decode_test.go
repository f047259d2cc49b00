package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gvm8/asm"
	"gvm8/isa"
	"gvm8/vm"
)

// TestDecodeRoundTrip checks that decoding the bytes emitted for an
// instruction yields an equivalent decoded op with the same operand
// values, for every opcode.
func TestDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		src      string
		opcode   isa.Opcode
		operands []byte
	}{
		{"INC r0", isa.Inc, []byte{0}},
		{"DEC r3", isa.Dec, []byte{3}},
		{"OUT r2", isa.Out, []byte{2}},
		{"MOV r0, 42", isa.Mov, []byte{0, 42}},
		{"MOV r1, r5", isa.Mov, []byte{1, 5}},
		{"PUSH r4", isa.Push, []byte{4}},
		{"POP r4", isa.Pop, []byte{4}},
		{"CALL 0x20", isa.Call, []byte{0x20}},
		{"RET", isa.Ret, nil},
		{"LOAD r0, 0x50", isa.Load, []byte{0, 0x50}},
		{"STORE r0, 0x50", isa.Store, []byte{0, 0x50}},
		{"LDIDX r0, 7", isa.Ldidx, []byte{0, 7}},
		{"STIDX r0, 7", isa.Stidx, []byte{0, 7}},
		{"ADD r0, r1", isa.Add, []byte{0, 1}},
		{"SUB r0, r1", isa.Sub, []byte{0, 1}},
		{"MUL r0, r1", isa.Mul, []byte{0, 1}},
		{"DIV r0, r1", isa.Div, []byte{0, 1}},
		{"JMP 10", isa.Jmp, []byte{10}},
		{"JEQ 10", isa.Jeq, []byte{10}},
		{"JGT 10", isa.Jgt, []byte{10}},
		{"JNE 10", isa.Jne, []byte{10}},
		{"CMP r0, r1", isa.Cmp, []byte{0, 1}},
		{"HALT", isa.Halt, nil},
	}

	a := asm.NewAssembler()
	for _, c := range cases {
		program, err := a.Assemble(c.src)
		require.NoError(t, err, "assembling %q", c.src)

		op, n, truncated := vm.Decode(program, 0)
		require.False(t, truncated, "unexpected truncation decoding %q", c.src)
		require.True(t, op.Known, "unexpected unknown opcode decoding %q", c.src)
		require.Equal(t, c.opcode, op.Opcode, "opcode mismatch for %q", c.src)
		require.Equal(t, c.operands, op.Operands, "operand mismatch for %q", c.src)
		require.Equal(t, len(program), n, "bytes_consumed should equal full program length for %q", c.src)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	op, n, truncated := vm.Decode([]byte{0xEE}, 0)
	require.False(t, truncated)
	require.False(t, op.Known)
	require.Equal(t, 1, n)
}

func TestDecodeTruncatedOperands(t *testing.T) {
	// MOV needs 2 operand bytes but only 1 is present.
	_, _, truncated := vm.Decode([]byte{byte(isa.Mov), 0}, 0)
	require.True(t, truncated)
}

func TestDecodePastEndOfMemory(t *testing.T) {
	_, _, truncated := vm.Decode([]byte{byte(isa.Halt)}, 1)
	require.True(t, truncated)
}
